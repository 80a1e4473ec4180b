package content

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-dispatch-service/internal/models"
)

func testDetail(kind models.ThresholdKind, lot string, pct float64) AlertDetail {
	return AlertDetail{
		Alert: models.Alert{
			ID:            1,
			LotID:         10,
			LightPct:      pct,
			ThresholdKind: kind,
			Severity:      "Critical",
			CreatedAt:     time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		Lot: &models.LotInfo{
			LotID:      10,
			LotName:    lot,
			SectorID:   3,
			SectorName: "Sector 3",
			FarmID:     "0001",
			FarmName:   "Santa Rosa",
		},
		Threshold: &models.ThresholdInfo{ID: 5, Description: "Light below critical minimum"},
	}
}

func TestKindWord(t *testing.T) {
	assert.Equal(t, "Critical Alert", KindWord(models.ThresholdCriticalRed))
	assert.Equal(t, "Warning", KindWord(models.ThresholdCriticalYellow))
}

func TestBuildConsolidated_Deterministic(t *testing.T) {
	details := []AlertDetail{
		testDetail(models.ThresholdCriticalRed, "L-12", 18.25),
		testDetail(models.ThresholdCriticalYellow, "L-14", 34.00),
	}

	first := BuildConsolidated("Santa Rosa", details)
	second := BuildConsolidated("Santa Rosa", details)

	assert.Equal(t, first.Subject, second.Subject)
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, first.Text, second.Text)
}

func TestBuildConsolidated_SubjectLeadsWithCriticalCount(t *testing.T) {
	details := []AlertDetail{
		testDetail(models.ThresholdCriticalRed, "L-12", 18.25),
		testDetail(models.ThresholdCriticalYellow, "L-14", 34.00),
		testDetail(models.ThresholdCriticalYellow, "L-15", 36.10),
	}

	got := BuildConsolidated("Santa Rosa", details)
	assert.Equal(t, "1 Critical Alert(s) at Farm Santa Rosa - 3 lot(s) affected", got.Subject)
}

func TestBuildConsolidated_AdvisoryOnlySubject(t *testing.T) {
	details := []AlertDetail{
		testDetail(models.ThresholdCriticalYellow, "L-14", 34.00),
		testDetail(models.ThresholdCriticalYellow, "L-15", 36.10),
	}

	got := BuildConsolidated("Santa Rosa", details)
	assert.Equal(t, "2 Warning(s) at Farm Santa Rosa - 2 lot(s) affected", got.Subject)
}

func TestBuildConsolidated_BodyListsEveryLot(t *testing.T) {
	details := []AlertDetail{
		testDetail(models.ThresholdCriticalRed, "L-12", 18.25),
		testDetail(models.ThresholdCriticalYellow, "L-14", 34.00),
	}

	got := BuildConsolidated("Santa Rosa", details)
	for _, lot := range []string{"L-12", "L-14"} {
		assert.Contains(t, got.HTML, lot)
		assert.Contains(t, got.Text, lot)
	}
	assert.Contains(t, got.HTML, "18.25%")
	assert.Contains(t, got.Text, "Critical: 1 | Warnings: 1")
}

func TestBuildConsolidated_MissingLotRendersPlaceholder(t *testing.T) {
	d := testDetail(models.ThresholdCriticalRed, "L-12", 18.25)
	d.Lot = nil

	got := BuildConsolidated("Santa Rosa", []AlertDetail{d})
	assert.Contains(t, got.Text, "Lot: N/A")
}

func TestBuildSingle(t *testing.T) {
	d := testDetail(models.ThresholdCriticalRed, "L-12", 18.25)

	got := BuildSingle(d)
	require.NotEmpty(t, got.HTML)
	assert.Equal(t, "Critical Alert - Lot L-12 (18.25% light)", got.Subject)
	assert.Contains(t, got.HTML, "Light below critical minimum")
	assert.Contains(t, got.Text, "Farm: Santa Rosa")
	assert.True(t, strings.HasPrefix(got.HTML, "<!DOCTYPE html>"))

	// identical input twice renders byte-identical output
	again := BuildSingle(d)
	assert.Equal(t, got, again)
}
