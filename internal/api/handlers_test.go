package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-dispatch-service/internal/consolidator"
	"alert-dispatch-service/internal/db"
	"alert-dispatch-service/internal/delivery"
	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/mailer"
	"alert-dispatch-service/internal/models"
	"alert-dispatch-service/internal/ws"
)

// The in-memory stores below back the pipeline trigger endpoints; the
// db-bound audit and contact routes need a live database and are
// covered by the integration environment instead.

type memAlertStore struct {
	alerts []models.Alert
}

func (s *memAlertStore) SelectUnconsolidated(_ context.Context, since time.Time) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if a.MessageID == nil && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memAlertStore) StampMessageID(_ context.Context, alertIDs []int64, messageID int64) error {
	for _, id := range alertIDs {
		for i := range s.alerts {
			if s.alerts[i].ID == id {
				mid := messageID
				s.alerts[i].MessageID = &mid
			}
		}
	}
	return nil
}

type memMessageStore struct {
	nextID   int64
	messages map[int64]*models.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{messages: make(map[int64]*models.Message)}
}

func (s *memMessageStore) CreateMessage(_ context.Context, m models.Message) (int64, error) {
	s.nextID++
	m.ID = s.nextID
	s.messages[m.ID] = &m
	return m.ID, nil
}

func (s *memMessageStore) LinkAlerts(context.Context, int64, []int64) error { return nil }

func (s *memMessageStore) SelectPending(_ context.Context, maxAttempts int) ([]models.Message, error) {
	var out []models.Message
	for id := int64(1); id <= s.nextID; id++ {
		m := s.messages[id]
		if m != nil && m.State == models.MessagePending && m.AttemptCount < maxAttempts {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMessageStore) GetMessage(_ context.Context, id int64) (*models.Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMessageStore) MarkSending(_ context.Context, id int64, requirePending bool) (bool, error) {
	m, ok := s.messages[id]
	if !ok || (requirePending && m.State != models.MessagePending) {
		return false, nil
	}
	m.State = models.MessageSending
	m.AttemptCount++
	return true, nil
}

func (s *memMessageStore) MarkSent(_ context.Context, id int64, providerID string) error {
	s.messages[id].State = models.MessageSent
	s.messages[id].ProviderMessageID = &providerID
	return nil
}

func (s *memMessageStore) MarkError(_ context.Context, id int64, errorMessage string) error {
	s.messages[id].State = models.MessageError
	s.messages[id].ErrorMessage = &errorMessage
	return nil
}

func (s *memMessageStore) CascadeAlertsSent(context.Context, int64) error { return nil }

type memDetails struct{}

func (memDetails) GetLotInfo(_ context.Context, lotID int64) (*models.LotInfo, error) {
	return &models.LotInfo{LotID: lotID, LotName: "L-1", SectorID: 1, SectorName: "S-1", FarmID: "0001", FarmName: "Santa Rosa"}, nil
}

func (memDetails) GetThresholdInfo(_ context.Context, id int64) (*models.ThresholdInfo, error) {
	return &models.ThresholdInfo{ID: id, Description: "Below minimum"}, nil
}

type staticResolver struct{ addrs []string }

func (r staticResolver) Resolve(context.Context, models.ThresholdKind, *int64, *string, *int64) []string {
	return r.addrs
}

type okTransport struct{ sent int }

func (t *okTransport) Send(context.Context, mailer.Mail) (string, error) {
	t.sent++
	return "prov-1", nil
}

func newTestRouter(t *testing.T, alerts *memAlertStore, messages *memMessageStore) (*gin.Engine, *okTransport) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.Discard()

	cons := consolidator.New(alerts, messages, memDetails{}, staticResolver{addrs: []string{"ops@example.com"}}, logger)
	transport := &okTransport{}
	worker := delivery.NewWorker(messages, transport, "noreply@example.com", "Farm Alerts", 3, nil, logger)
	h := NewHandler(nil, cons, worker, ws.NewHub(logger), 24, logger)
	return NewRouter(h, "/api/v1", logger), transport
}

func pendingAlert(id int64) models.Alert {
	return models.Alert{
		ID:            id,
		LotID:         1,
		ThresholdID:   1,
		LightPct:      18,
		ThresholdKind: models.ThresholdCriticalRed,
		Severity:      "Critical",
		State:         models.AlertPending,
		CreatedAt:     time.Now().Add(-time.Hour),
		FarmID:        "0001",
		FarmName:      "Santa Rosa",
	}
}

func TestConsolidateEndpoint(t *testing.T) {
	alerts := &memAlertStore{alerts: []models.Alert{pendingAlert(1), pendingAlert(2)}}
	router, _ := newTestRouter(t, alerts, newMemMessageStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/consolidate", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages_created": 1}`, w.Body.String())
}

func TestConsolidateEndpoint_NegativeLookback(t *testing.T) {
	router, _ := newTestRouter(t, &memAlertStore{}, newMemMessageStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/consolidate",
		strings.NewReader(`{"lookback_hours": -1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsolidateEndpoint_MalformedBody(t *testing.T) {
	router, _ := newTestRouter(t, &memAlertStore{}, newMemMessageStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/consolidate",
		strings.NewReader(`{"lookback_hours": "two days"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessPendingEndpoint(t *testing.T) {
	alerts := &memAlertStore{alerts: []models.Alert{pendingAlert(1)}}
	messages := newMemMessageStore()
	router, transport := newTestRouter(t, alerts, messages)

	// consolidate first so there is something to drain
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/consolidate", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages/process", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"succeeded": 1, "failed": 0}`, w.Body.String())
	assert.Equal(t, 1, transport.sent)
	assert.Equal(t, models.MessageSent, messages.messages[1].State)
}

func TestSendMessageEndpoint_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, &memAlertStore{}, newMemMessageStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages/42/send", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageEndpoint_InvalidID(t *testing.T) {
	router, _ := newTestRouter(t, &memAlertStore{}, newMemMessageStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/messages/zero/send", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &memAlertStore{}, newMemMessageStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}
