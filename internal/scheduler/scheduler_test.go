package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-dispatch-service/internal/logging"
)

type noopConsolidator struct{}

func (noopConsolidator) Consolidate(context.Context, int) (int, error) { return 0, nil }

type noopDrainer struct{}

func (noopDrainer) DrainPending(context.Context) (int, int, error) { return 0, 0, nil }

func validConfig() Config {
	return Config{
		Enabled:         true,
		ConsolidateCron: "0 8 * * *",
		DrainCron:       "0 * * * *",
		Timezone:        "America/Santiago",
		LookbackHours:   24,
	}
}

func TestNew_ValidConfig(t *testing.T) {
	s, err := New(validConfig(), noopConsolidator{}, noopDrainer{}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, s)

	s.Start()
	s.Stop()
}

func TestNew_InvalidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	_, err := New(cfg, noopConsolidator{}, noopDrainer{}, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestNew_InvalidCronSpec(t *testing.T) {
	cfg := validConfig()
	cfg.ConsolidateCron = "every day at dawn"

	_, err := New(cfg, noopConsolidator{}, noopDrainer{}, logging.Discard())
	require.Error(t, err)
}

func TestDisabledSchedulerIsInert(t *testing.T) {
	cfg := validConfig()
	cfg.Enabled = false

	s, err := New(cfg, noopConsolidator{}, noopDrainer{}, logging.Discard())
	require.NoError(t, err)

	// neither call may panic despite the nil cron
	s.Start()
	s.Stop()
}
