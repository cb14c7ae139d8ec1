package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
)

func statsFor(teamID string, xg float64, form string) teamstats.Snapshot {
	return teamstats.NewSnapshot(teamID, teamstats.Metrics{
		AvgXG:            floatPtr(xg),
		CleanSheets:      1,
		FormString:       form,
		MatchesAnalyzed:  5,
		DataCompleteness: 1,
		Confidence:       teamstats.ConfidenceHigh,
	}, teamstats.SourceProvider, fixedNow, 24*time.Hour)
}

func TestPredictionCacheService_Lookup(t *testing.T) {
	t.Parallel()

	home := statsFor("nor", 1.8, "W-W-D")
	away := statsFor("fra", 1.4, "W-D-W")
	repo := newStubPredictionCacheRepo()
	svc := NewPredictionCacheService(repo, nil)
	svc.now = fixedClock

	miss, err := svc.Lookup(context.Background(), "m-1", home, away)
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if miss.Found || miss.Reusable {
		t.Fatalf("expected miss on empty cache, got %+v", miss)
	}

	if _, err := svc.Store(context.Background(), "m-1", miss.Fingerprint, prediction.Prediction{Winner: "Norway", Reasoning: "xG"}, prediction.SourceAI); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	// Statistics refetched much later with identical values: still reusable.
	svc.now = func() time.Time { return fixedNow.Add(30 * 24 * time.Hour) }
	refetchedHome := home
	refetchedHome.FetchedAt = fixedNow.Add(29 * 24 * time.Hour)
	refetchedHome.ExpiresAt = refetchedHome.FetchedAt.Add(24 * time.Hour)

	hit, err := svc.Lookup(context.Background(), "m-1", refetchedHome, away)
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !hit.Reusable {
		t.Fatalf("expected reuse when statistics are unchanged")
	}
	if hit.Entry.Prediction.Winner != "Norway" {
		t.Fatalf("unexpected cached winner: got=%s want=Norway", hit.Entry.Prediction.Winner)
	}

	changedAway := statsFor("fra", 2.1, "W-W-W")
	changed, err := svc.Lookup(context.Background(), "m-1", home, changedAway)
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if !changed.Found || changed.Reusable {
		t.Fatalf("expected regeneration after statistics change, got found=%v reusable=%v", changed.Found, changed.Reusable)
	}
	if changed.Fingerprint == hit.Fingerprint {
		t.Fatalf("fingerprint must change with statistics")
	}
}

func TestPredictionCacheService_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPredictionCacheService(newStubPredictionCacheRepo(), nil)
	if _, err := svc.Lookup(context.Background(), " ", teamstats.Snapshot{}, teamstats.Snapshot{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Store(context.Background(), "m-1", "", prediction.Prediction{}, prediction.SourceAI); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
