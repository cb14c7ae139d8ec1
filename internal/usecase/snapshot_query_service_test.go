package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
)

type failingSnapshotStore struct {
	stubSnapshotStore
}

func (s *failingSnapshotStore) Latest(context.Context) (snapshot.Document, bool, error) {
	return snapshot.Document{}, false, errors.New("connection reset")
}

func TestSnapshotQueryService_LatestNotFound(t *testing.T) {
	t.Parallel()

	svc := NewSnapshotQueryService(&stubTournamentRepo{}, &stubSnapshotStore{}, newStubHistoryRepo(), nil)
	_, err := svc.Latest(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}

func TestSnapshotQueryService_MatchHistory(t *testing.T) {
	t.Parallel()

	history := newStubHistoryRepo()
	ctx := context.Background()
	for _, winner := range []string{"Mexico", "Draw"} {
		_ = history.Append(ctx, prediction.HistoryEntry{MatchID: "wc26-001", Winner: winner, RecordedAt: fixedNow})
	}
	svc := NewSnapshotQueryService(&stubTournamentRepo{}, &stubSnapshotStore{}, history, nil)

	if _, err := svc.MatchHistory(ctx, "  ", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank match id, got=%v", err)
	}

	items, err := svc.MatchHistory(ctx, "wc26-001", 0)
	if err != nil {
		t.Fatalf("match history: %v", err)
	}
	if len(items) != 2 || items[0].Winner != "Draw" {
		t.Fatalf("unexpected history got=%+v", items)
	}
}

func TestSnapshotQueryService_Health(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &stubSnapshotStore{}
	svc := NewSnapshotQueryService(&stubTournamentRepo{}, store, newStubHistoryRepo(), nil)
	svc.now = fixedClock

	report := svc.Health(ctx)
	if report.Status != HealthStatusHealthy || report.Components[1].Status != "empty" {
		t.Fatalf("unexpected empty-store report: %+v", report)
	}

	_ = store.Put(ctx, snapshot.Document{RunID: "run-1", UpdatedAt: fixedNow}, []byte(`{}`))
	report = svc.Health(ctx)
	if report.LastRunID != "run-1" || report.LastRunAt == nil || !report.LastRunAt.Equal(fixedNow) {
		t.Fatalf("unexpected report after publish: %+v", report)
	}

	degraded := NewSnapshotQueryService(&stubTournamentRepo{}, &failingSnapshotStore{}, newStubHistoryRepo(), nil)
	report = degraded.Health(ctx)
	if report.Status != HealthStatusDegraded || report.Components[1].Error == "" {
		t.Fatalf("expected degraded report, got=%+v", report)
	}
}
