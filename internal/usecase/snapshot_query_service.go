package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
)

type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthReport struct {
	Status     HealthStatus      `json:"status"`
	CheckedAt  time.Time         `json:"checked_at"`
	RunActive  bool              `json:"run_active"`
	LastRunID  string            `json:"last_run_id,omitempty"`
	LastRunAt  *time.Time        `json:"last_run_at,omitempty"`
	Components []ComponentHealth `json:"components"`
}

// SnapshotQueryService serves the read side: latest document, per-match
// history and health.
type SnapshotQueryService struct {
	tournaments tournament.Repository
	snapshots   snapshot.Store
	history     prediction.HistoryRepository
	pipeline    *PipelineService
	now         func() time.Time
}

func NewSnapshotQueryService(
	tournaments tournament.Repository,
	snapshots snapshot.Store,
	history prediction.HistoryRepository,
	pipeline *PipelineService,
) *SnapshotQueryService {
	return &SnapshotQueryService{
		tournaments: tournaments,
		snapshots:   snapshots,
		history:     history,
		pipeline:    pipeline,
		now:         time.Now,
	}
}

func (s *SnapshotQueryService) Latest(ctx context.Context) (snapshot.Document, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotQueryService.Latest")
	defer span.End()

	doc, exists, err := s.snapshots.Latest(ctx)
	if err != nil {
		return snapshot.Document{}, fmt.Errorf("get latest snapshot: %w", err)
	}
	if !exists {
		return snapshot.Document{}, fmt.Errorf("%w: no snapshot has been published yet", ErrNotFound)
	}
	return doc, nil
}

// MatchHistory returns newest entries first. A limit outside 1..200 falls back
// to the default page size.
func (s *SnapshotQueryService) MatchHistory(ctx context.Context, matchID string, limit int) ([]prediction.HistoryEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotQueryService.MatchHistory")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	items, err := s.history.ListByMatch(ctx, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list prediction history match_id=%s: %w", matchID, err)
	}
	return items, nil
}

func (s *SnapshotQueryService) Health(ctx context.Context) HealthReport {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotQueryService.Health")
	defer span.End()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		CheckedAt: s.now().UTC(),
	}
	if s.pipeline != nil {
		report.RunActive = s.pipeline.Running()
	}

	tournamentCheck := ComponentHealth{Name: "tournament_store", Status: "ok"}
	if _, err := s.tournaments.ListTeams(ctx); err != nil {
		tournamentCheck.Status = "error"
		tournamentCheck.Error = err.Error()
		report.Status = HealthStatusDegraded
	}

	snapshotCheck := ComponentHealth{Name: "snapshot_store", Status: "ok"}
	doc, exists, err := s.snapshots.Latest(ctx)
	switch {
	case err != nil:
		snapshotCheck.Status = "error"
		snapshotCheck.Error = err.Error()
		report.Status = HealthStatusDegraded
	case !exists:
		snapshotCheck.Status = "empty"
	default:
		report.LastRunID = doc.RunID
		updatedAt := doc.UpdatedAt.UTC()
		report.LastRunAt = &updatedAt
	}

	report.Components = []ComponentHealth{tournamentCheck, snapshotCheck}
	return report
}
