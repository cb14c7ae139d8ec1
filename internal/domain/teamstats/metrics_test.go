package teamstats

import (
	"testing"
	"time"
)

func ptrFloat(v float64) *float64 {
	return &v
}

func TestComputeMetrics_FullExpectedGoalsData(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	matches := []RecentMatch{
		{PlayedAt: base, GoalsFor: 0, GoalsAgainst: 1, XG: ptrFloat(0.8)},
		{PlayedAt: base.Add(48 * time.Hour), GoalsFor: 2, GoalsAgainst: 0, XG: ptrFloat(2.1)},
		{PlayedAt: base.Add(24 * time.Hour), GoalsFor: 1, GoalsAgainst: 1, XG: ptrFloat(1.3)},
	}

	got := ComputeMetrics(matches)
	if got.AvgXG == nil || *got.AvgXG != 1.4 {
		t.Fatalf("unexpected avg xg: got=%v want=1.4", got.AvgXG)
	}
	if got.FormString != "W-D-L" {
		t.Fatalf("unexpected form: got=%s want=W-D-L", got.FormString)
	}
	if got.CleanSheets != 1 {
		t.Fatalf("unexpected clean sheets: got=%d want=1", got.CleanSheets)
	}
	if got.DataCompleteness != 1 || got.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected completeness/confidence: %v/%s", got.DataCompleteness, got.Confidence)
	}
	if got.FallbackMode != "" {
		t.Fatalf("expected no fallback mode, got=%s", got.FallbackMode)
	}
}

func TestComputeMetrics_PartialExpectedGoalsData(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	matches := []RecentMatch{
		{PlayedAt: base, GoalsFor: 3, GoalsAgainst: 0, XG: ptrFloat(1.5)},
		{PlayedAt: base.Add(time.Hour), GoalsFor: 1, GoalsAgainst: 2},
	}

	got := ComputeMetrics(matches)
	if got.AvgXG == nil || *got.AvgXG != 1.5 {
		t.Fatalf("unexpected avg xg: got=%v want=1.5", got.AvgXG)
	}
	if got.DataCompleteness != 0.5 || got.Confidence != ConfidenceMedium {
		t.Fatalf("unexpected completeness/confidence: %v/%s", got.DataCompleteness, got.Confidence)
	}
}

func TestComputeMetrics_NoExpectedGoalsDegradesGracefully(t *testing.T) {
	t.Parallel()

	matches := []RecentMatch{
		{GoalsFor: 1, GoalsAgainst: 0},
		{GoalsFor: 0, GoalsAgainst: 0},
		{GoalsFor: 0, GoalsAgainst: 2},
	}

	got := ComputeMetrics(matches)
	if got.AvgXG != nil {
		t.Fatalf("expected nil avg xg, got=%v", *got.AvgXG)
	}
	if got.Confidence != ConfidenceLow || got.FallbackMode != FallbackModeTraditionalForm {
		t.Fatalf("unexpected confidence/fallback: %s/%s", got.Confidence, got.FallbackMode)
	}
	if got.FormString != "W-D-L" {
		t.Fatalf("unexpected form: got=%s want=W-D-L", got.FormString)
	}
	if got.CleanSheets != 2 {
		t.Fatalf("unexpected clean sheets: got=%d want=2", got.CleanSheets)
	}
}

func TestSnapshotValidity(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	snap := NewSnapshot("nor", Metrics{}, SourceProvider, fetched, 24*time.Hour)
	if !snap.ExpiresAt.Equal(fetched.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expires_at: %s", snap.ExpiresAt)
	}
	if !snap.ValidAt(fetched.Add(23 * time.Hour)) {
		t.Fatalf("expected snapshot valid before expiry")
	}
	if snap.ValidAt(fetched.Add(24 * time.Hour)) {
		t.Fatalf("expected snapshot invalid at expiry")
	}

	def := DefaultSnapshot("nor", fetched, time.Hour)
	if !def.Degraded() || def.Confidence != ConfidenceLow {
		t.Fatalf("unexpected default snapshot: %+v", def)
	}
}
