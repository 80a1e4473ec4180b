package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMail() Mail {
	return Mail{
		FromEmail: "noreply@example.com",
		FromName:  "Farm Alerts",
		To:        []string{"ops@example.com"},
		CC:        []string{"agro@example.com"},
		Subject:   "1 Critical Alert(s) at Farm Santa Rosa - 1 lot(s) affected",
		HTML:      "<p>digest</p>",
		Text:      "digest",
	}
}

func TestResendTransport_Send(t *testing.T) {
	var gotAuth string
	var gotBody resendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resendResponse{ID: "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"})
	}))
	defer srv.Close()

	transport, err := NewResendTransport(srv.URL, "re_test_key")
	require.NoError(t, err)

	id, err := transport.Send(context.Background(), testMail())
	require.NoError(t, err)
	assert.Equal(t, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", id)

	assert.Equal(t, "Bearer re_test_key", gotAuth)
	assert.Equal(t, "Farm Alerts <noreply@example.com>", gotBody.From)
	assert.Equal(t, []string{"ops@example.com"}, gotBody.To)
	assert.Equal(t, []string{"agro@example.com"}, gotBody.CC)
	assert.Empty(t, gotBody.BCC)
	assert.Equal(t, "<p>digest</p>", gotBody.HTML)
}

func TestResendTransport_APIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(resendError{Name: "validation_error", Message: "Invalid `to` field"})
	}))
	defer srv.Close()

	transport, err := NewResendTransport(srv.URL, "re_test_key")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), testMail())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid `to` field")
}

func TestResendTransport_NoRecipients(t *testing.T) {
	transport, err := NewResendTransport("https://api.resend.com", "re_test_key")
	require.NoError(t, err)

	m := testMail()
	m.To = nil
	_, err = transport.Send(context.Background(), m)
	require.Error(t, err)
}

func TestNewResendTransport_RequiresAPIKey(t *testing.T) {
	_, err := NewResendTransport("https://api.resend.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
}
