package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/rawdata"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const statsProviderSource = "api-football"

type StatsOutcome string

const (
	StatsOutcomeHit       StatsOutcome = "hit"
	StatsOutcomeRefreshed StatsOutcome = "refreshed"
	StatsOutcomeDefaulted StatsOutcome = "defaulted"
)

func (o StatsOutcome) CacheHit() bool {
	return o == StatsOutcomeHit
}

type StatsCacheConfig struct {
	TTL           time.Duration
	FallbackTTL   time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	RecentMatches int
	Workers       int
}

func DefaultStatsCacheConfig() StatsCacheConfig {
	return StatsCacheConfig{
		TTL:           24 * time.Hour,
		FallbackTTL:   time.Hour,
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		RecentMatches: 10,
		Workers:       4,
	}
}

func normalizeStatsCacheConfig(cfg StatsCacheConfig) StatsCacheConfig {
	defaults := DefaultStatsCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.FallbackTTL <= 0 || cfg.FallbackTTL >= cfg.TTL {
		cfg.FallbackTTL = minDuration(defaults.FallbackTTL, cfg.TTL/2)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = defaults.BackoffBase
	}
	if cfg.RecentMatches < 1 {
		cfg.RecentMatches = defaults.RecentMatches
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaults.Workers
	}
	return cfg
}

// StatsLookup is the per-team answer of GetMany.
type StatsLookup struct {
	Snapshot teamstats.Snapshot
	Outcome  StatsOutcome
	Err      error
}

// StatsCacheService decides hit or miss for each team independently and
// refreshes misses from the statistics provider.
type StatsCacheService struct {
	repo     teamstats.Repository
	provider teamstats.Provider
	archive  rawdata.Repository
	cfg      StatsCacheConfig
	logger   *logging.Logger
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

func NewStatsCacheService(
	repo teamstats.Repository,
	provider teamstats.Provider,
	archive rawdata.Repository,
	cfg StatsCacheConfig,
	logger *logging.Logger,
) *StatsCacheService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsCacheService{
		repo:     repo,
		provider: provider,
		archive:  archive,
		cfg:      normalizeStatsCacheConfig(cfg),
		logger:   logger.Named("stats_cache"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Get returns a valid snapshot for team. Provider failures never surface as
// errors: after the last attempt a low-confidence default snapshot is cached
// with the shorter fallback TTL. An error is returned only when ctx ends or
// the snapshot cannot be stored.
func (s *StatsCacheService) Get(ctx context.Context, team tournament.Team) (teamstats.Snapshot, StatsOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsCacheService.Get")
	defer span.End()

	if team.ID == "" {
		return teamstats.Snapshot{}, "", fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	cached, ok, err := s.repo.GetByTeam(ctx, team.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached team stats failed, treating as miss", "team_id", team.ID, "error", err)
	} else if ok && cached.ValidAt(s.now()) {
		return cached, StatsOutcomeHit, nil
	}

	result, fetchErr := s.fetchWithRetry(ctx, team)
	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return teamstats.Snapshot{}, "", ctxErr
		}

		snapshot := teamstats.DefaultSnapshot(team.ID, s.now().UTC(), s.cfg.FallbackTTL)
		s.logger.WarnContext(ctx, "team stats unavailable, caching default snapshot",
			"team_id", team.ID,
			"team_name", team.Name,
			"attempts", s.cfg.MaxAttempts,
			"degraded", true,
			"error", fetchErr,
		)
		if err := s.repo.Upsert(ctx, snapshot); err != nil {
			return snapshot, StatsOutcomeDefaulted, fmt.Errorf("store default team stats team_id=%s: %w", team.ID, err)
		}
		return snapshot, StatsOutcomeDefaulted, nil
	}

	s.archiveRaw(ctx, team, result.RawPayload)

	metrics := teamstats.ComputeMetrics(result.Matches)
	snapshot := teamstats.NewSnapshot(team.ID, metrics, teamstats.SourceProvider, s.now().UTC(), s.cfg.TTL)
	if err := s.repo.Upsert(ctx, snapshot); err != nil {
		return snapshot, StatsOutcomeRefreshed, fmt.Errorf("store team stats team_id=%s: %w", team.ID, err)
	}

	s.logger.DebugContext(ctx, "team stats refreshed",
		"team_id", team.ID,
		"matches_analyzed", metrics.MatchesAnalyzed,
		"confidence", metrics.Confidence,
	)
	return snapshot, StatsOutcomeRefreshed, nil
}

// GetMany resolves every team on the worker pool. The map is keyed by team id.
func (s *StatsCacheService) GetMany(ctx context.Context, teams []tournament.Team) (map[string]StatsLookup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsCacheService.GetMany")
	defer span.End()

	unique := make([]tournament.Team, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		if _, ok := seen[team.ID]; ok || team.ID == "" {
			continue
		}
		seen[team.ID] = struct{}{}
		unique = append(unique, team)
	}

	out := make(map[string]StatsLookup, len(unique))
	if len(unique) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(minInt(s.cfg.Workers, len(unique)))
	if err != nil {
		return nil, fmt.Errorf("create stats worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		workers sync.WaitGroup
		hits    atomic.Int32
	)
	for _, team := range unique {
		team := team
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			snapshot, outcome, getErr := s.Get(ctx, team)
			if outcome.CacheHit() {
				hits.Add(1)
			}
			mu.Lock()
			out[team.ID] = StatsLookup{Snapshot: snapshot, Outcome: outcome, Err: getErr}
			mu.Unlock()
		}); err != nil {
			workers.Done()
			mu.Lock()
			out[team.ID] = StatsLookup{Err: fmt.Errorf("submit stats job team_id=%s: %w", team.ID, err)}
			mu.Unlock()
		}
	}
	workers.Wait()

	s.logger.InfoContext(ctx, "team stats resolved",
		"teams", len(unique),
		"cache_hits", hits.Load(),
	)
	return out, nil
}

// fetchWithRetry makes up to MaxAttempts calls, waiting BackoffBase, then
// twice that, between them.
func (s *StatsCacheService) fetchWithRetry(ctx context.Context, team tournament.Team) (teamstats.FetchResult, error) {
	if team.ExternalID <= 0 {
		return teamstats.FetchResult{}, fmt.Errorf("%w: team %s has no provider id", ErrNotFound, team.ID)
	}
	if s.provider == nil {
		return teamstats.FetchResult{}, fmt.Errorf("%w: stats provider is not configured", ErrDependencyUnavailable)
	}

	var lastErr error
	delay := s.cfg.BackoffBase
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		result, err := s.provider.FetchRecentMatches(ctx, team.ExternalID, s.cfg.RecentMatches)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return teamstats.FetchResult{}, ctx.Err()
		}

		s.logger.WarnContext(ctx, "fetch team stats attempt failed",
			"team_id", team.ID,
			"attempt", attempt,
			"max_attempts", s.cfg.MaxAttempts,
			"error", err,
		)
		if attempt == s.cfg.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, delay); err != nil {
			return teamstats.FetchResult{}, err
		}
		delay *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("stats fetch failed")
	}
	return teamstats.FetchResult{}, lastErr
}

func (s *StatsCacheService) archiveRaw(ctx context.Context, team tournament.Team, raw []byte) {
	if s.archive == nil || len(raw) == 0 {
		return
	}

	payload := rawdata.Payload{
		Source:      statsProviderSource,
		EntityType:  "team_recent_fixtures",
		EntityKey:   strconv.FormatInt(team.ExternalID, 10),
		TeamID:      team.ID,
		PayloadJSON: string(raw),
		PayloadHash: rawdata.HashPayload(raw),
		FetchedAt:   s.now().UTC(),
	}
	if err := s.archive.UpsertMany(ctx, []rawdata.Payload{payload}); err != nil {
		s.logger.WarnContext(ctx, "archive raw team stats failed", "team_id", team.ID, "error", err)
	}
}

func minInt(left, right int) int {
	if left < right {
		return left
	}
	return right
}

func minDuration(left, right time.Duration) time.Duration {
	if left < right {
		return left
	}
	return right
}
