package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/bracket"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/standing"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/id"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type RunMode string

const (
	RunModeRecomputeTournament RunMode = "recompute_tournament"
	RunModeRefreshPredictions  RunMode = "refresh_predictions"
)

type RunStatus string

const (
	RunStatusSuccess        RunStatus = "success"
	RunStatusPartialSuccess RunStatus = "partial_success"
)

type RunResult struct {
	RunID                string    `json:"run_id"`
	Mode                 RunMode   `json:"mode"`
	Status               RunStatus `json:"status"`
	UpdatedAt            time.Time `json:"updated_at"`
	FixturesUpdated      int       `json:"fixtures_updated"`
	FixtureConflicts     int       `json:"fixture_conflicts"`
	GroupsCalculated     int       `json:"groups_calculated"`
	BracketSlotsResolved int       `json:"bracket_slots_resolved"`
	UnresolvedSlots      int       `json:"unresolved_slots"`
	PredictionsGenerated int       `json:"predictions_generated"`
	PredictionsReused    int       `json:"predictions_reused"`
	FallbackPredictions  int       `json:"fallback_predictions"`
	StatsCacheHits       int       `json:"stats_cache_hits"`
	StatsCacheMisses     int       `json:"stats_cache_misses"`
	HistoryAppended      int       `json:"history_appended"`
	Errors               []string  `json:"errors,omitempty"`
}

func (r *RunResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

type PipelineConfig struct {
	QualifyingThirds      int
	PredictionConcurrency int
}

type PipelineDependencies struct {
	Tournaments tournament.Repository
	// Fixtures pulls played results before standings are computed. Nil keeps
	// the stored results as they are.
	Fixtures    *FixtureSyncService
	Stats       *StatsCacheService
	Predictions *PredictionCacheService
	Generator   *PredictionGenerator
	Publisher   *SnapshotPublisher
	// Rankings and Priors are optional prompt enrichments.
	Rankings *RankingService
	Priors   prediction.PriorProvider
	IDs      id.Generator
}

// PipelineService runs standings, bracket, stats, predictions and publish in
// that order. Only one run may be active at a time.
type PipelineService struct {
	deps        PipelineDependencies
	resolver    *bracket.Resolver
	concurrency int
	logger      *logging.Logger
	now         func() time.Time
	running     atomic.Bool
}

func NewPipelineService(deps PipelineDependencies, cfg PipelineConfig, logger *logging.Logger) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	if deps.IDs == nil {
		deps.IDs = id.NewRunIDGenerator()
	}
	if cfg.PredictionConcurrency < 1 {
		cfg.PredictionConcurrency = 4
	}
	return &PipelineService{
		deps:        deps,
		resolver:    bracket.NewResolver(cfg.QualifyingThirds),
		concurrency: cfg.PredictionConcurrency,
		logger:      logger.Named("pipeline"),
		now:         time.Now,
	}
}

// RecomputeTournament recomputes standings, resolves and persists bracket
// slots, then refreshes stats and predictions and publishes.
func (s *PipelineService) RecomputeTournament(ctx context.Context) (RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RecomputeTournament")
	defer span.End()

	return s.run(ctx, RunModeRecomputeTournament)
}

// RefreshPredictions works from the persisted bracket. Slots that would
// resolve now are shown in the document but only persisted by a recompute.
func (s *PipelineService) RefreshPredictions(ctx context.Context) (RunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.RefreshPredictions")
	defer span.End()

	return s.run(ctx, RunModeRefreshPredictions)
}

func (s *PipelineService) Running() bool {
	return s.running.Load()
}

// syncFixtures only fails the run on cancellation. A provider or store error
// leaves the stored results in place and marks the run partial.
func (s *PipelineService) syncFixtures(ctx context.Context, logger *logging.Logger, result *RunResult) error {
	if s.deps.Fixtures == nil {
		return nil
	}

	synced, err := s.deps.Fixtures.Sync(ctx)
	result.FixturesUpdated = synced.Updated
	result.FixtureConflicts = synced.Conflicts
	result.Errors = append(result.Errors, synced.Errors...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.WarnContext(ctx, "fixture sync failed, using stored results", "degraded", true, "error", err)
		result.addError("fixture sync: %v", err)
	}
	return nil
}

func (s *PipelineService) run(ctx context.Context, mode RunMode) (RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunResult{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	runID, err := s.deps.IDs.NewID()
	if err != nil {
		return RunResult{}, fmt.Errorf("generate run id: %w", err)
	}
	result := RunResult{RunID: runID, Mode: mode, UpdatedAt: s.now().UTC()}
	logger := s.logger.With("run_id", runID, "mode", mode)
	started := time.Now()

	if err := s.syncFixtures(ctx, logger, &result); err != nil {
		return result, err
	}

	dataset, err := s.loadDataset(ctx)
	if err != nil {
		return result, err
	}

	tables := s.calculateStandings(dataset)
	result.GroupsCalculated = len(tables)

	resolved := s.resolver.Resolve(tables, dataset.Knockout)
	result.BracketSlotsResolved = resolved.NewlyResolved
	result.UnresolvedSlots = len(resolved.Unresolved)
	if mode == RunModeRecomputeTournament && resolved.NewlyResolved > 0 {
		if err := s.deps.Tournaments.SaveKnockoutSlots(ctx, resolved.Matches); err != nil {
			return result, fmt.Errorf("persist knockout slots: %w", err)
		}
	}

	targets := s.predictionTargets(dataset, resolved.Matches, &result)
	predictions, err := s.predict(ctx, targets, teamsOf(targets), &result)
	if err != nil {
		return result, err
	}

	doc := snapshot.Document{
		RunID:       runID,
		UpdatedAt:   result.UpdatedAt,
		Groups:      tables,
		ThirdPlaced: resolved.ThirdPlaced,
		Bracket:     bracketView(resolved.Matches, dataset.TeamsByID()),
		Unresolved:  resolved.Unresolved,
		Predictions: predictions,
	}
	published, err := s.deps.Publisher.Publish(ctx, doc)
	result.HistoryAppended = published.HistoryAppended
	if err != nil {
		logger.ErrorContext(ctx, "publish snapshot failed", "error", err)
		return result, fmt.Errorf("publish snapshot: %w", err)
	}

	result.Status = RunStatusSuccess
	if len(result.Errors) > 0 {
		result.Status = RunStatusPartialSuccess
	}

	logger.InfoContext(ctx, "pipeline run finished",
		"status", result.Status,
		"elapsed", time.Since(started).String(),
		"groups", result.GroupsCalculated,
		"slots_resolved", result.BracketSlotsResolved,
		"slots_unresolved", result.UnresolvedSlots,
		"predictions_generated", result.PredictionsGenerated,
		"predictions_reused", result.PredictionsReused,
		"predictions_fallback", result.FallbackPredictions,
		"stats_hits", result.StatsCacheHits,
		"stats_misses", result.StatsCacheMisses,
		"history_appended", result.HistoryAppended,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *PipelineService) loadDataset(ctx context.Context) (tournament.Dataset, error) {
	teams, err := s.deps.Tournaments.ListTeams(ctx)
	if err != nil {
		return tournament.Dataset{}, fmt.Errorf("list teams: %w", err)
	}
	matches, err := s.deps.Tournaments.ListMatches(ctx)
	if err != nil {
		return tournament.Dataset{}, fmt.Errorf("list matches: %w", err)
	}
	knockout, err := s.deps.Tournaments.ListKnockoutMatches(ctx)
	if err != nil {
		return tournament.Dataset{}, fmt.Errorf("list knockout matches: %w", err)
	}
	return tournament.Dataset{Teams: teams, Matches: matches, Knockout: knockout}, nil
}

func (s *PipelineService) calculateStandings(dataset tournament.Dataset) map[string]standing.Table {
	resultsByGroup := dataset.ResultsByGroup()
	tables := make(map[string]standing.Table)
	for group, teams := range dataset.TeamsByGroup() {
		tables[group] = standing.Calculate(group, teams, resultsByGroup[group])
	}
	return tables
}

type predictionTarget struct {
	MatchID    string
	Number     int
	Stage      tournament.Stage
	KickoffAt  time.Time
	ExternalID int64
	Home       tournament.Team
	Away       tournament.Team
}

// predictionTargets lists every unplayed match whose two teams are known.
func (s *PipelineService) predictionTargets(dataset tournament.Dataset, knockout []tournament.KnockoutMatch, result *RunResult) []predictionTarget {
	teams := dataset.TeamsByID()
	out := make([]predictionTarget, 0, len(dataset.Matches)+len(knockout))

	add := func(matchID string, number int, stage tournament.Stage, kickoff time.Time, externalID int64, homeID, awayID string) {
		home, okHome := teams[homeID]
		away, okAway := teams[awayID]
		if !okHome || !okAway {
			result.addError("match %s: missing team mapping home=%q away=%q", matchID, homeID, awayID)
			return
		}
		out = append(out, predictionTarget{
			MatchID:    matchID,
			Number:     number,
			Stage:      stage,
			KickoffAt:  kickoff,
			ExternalID: externalID,
			Home:       home,
			Away:       away,
		})
	}

	for _, item := range dataset.Matches {
		if item.Stage != tournament.StageGroup || item.Finished() {
			continue
		}
		add(item.ID, item.Number, item.Stage, item.KickoffAt, item.ExternalID, item.HomeTeamID, item.AwayTeamID)
	}
	for _, item := range knockout {
		if item.Finished() || !item.Home.Resolved() || !item.Away.Resolved() {
			continue
		}
		add(item.ID, item.Number, item.Stage, item.KickoffAt, item.ExternalID, item.Home.TeamID, item.Away.TeamID)
	}
	return out
}

func teamsOf(targets []predictionTarget) []tournament.Team {
	out := make([]tournament.Team, 0, len(targets)*2)
	for _, item := range targets {
		out = append(out, item.Home, item.Away)
	}
	return out
}

type matchOutcome struct {
	prediction snapshot.MatchPrediction
	reused     bool
	fallback   bool
	errs       []string
	skipped    bool
}

func (s *PipelineService) predict(ctx context.Context, targets []predictionTarget, teams []tournament.Team, result *RunResult) ([]snapshot.MatchPrediction, error) {
	if len(targets) == 0 {
		return []snapshot.MatchPrediction{}, nil
	}

	lookups, err := s.deps.Stats.GetMany(ctx, teams)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for teamID, lookup := range lookups {
		if lookup.Err != nil {
			result.addError("team %s stats: %v", teamID, lookup.Err)
		}
		if lookup.Outcome.CacheHit() {
			result.StatsCacheHits++
		} else {
			result.StatsCacheMisses++
		}
	}

	var rankings RankingIndex
	if s.deps.Rankings != nil {
		rankings = s.deps.Rankings.Index(ctx)
	}

	p := pool.NewWithResults[matchOutcome]().WithMaxGoroutines(s.concurrency)
	for _, target := range targets {
		target := target
		p.Go(func() matchOutcome {
			return s.predictMatch(ctx, target, lookups, rankings)
		})
	}
	outcomes := p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	predictions := make([]snapshot.MatchPrediction, 0, len(outcomes))
	for _, item := range outcomes {
		result.Errors = append(result.Errors, item.errs...)
		if item.skipped {
			continue
		}
		switch {
		case item.reused:
			result.PredictionsReused++
		case item.fallback:
			result.PredictionsGenerated++
			result.FallbackPredictions++
		default:
			result.PredictionsGenerated++
		}
		predictions = append(predictions, item.prediction)
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].MatchNumber != predictions[j].MatchNumber {
			return predictions[i].MatchNumber < predictions[j].MatchNumber
		}
		return predictions[i].MatchID < predictions[j].MatchID
	})
	return predictions, nil
}

func (s *PipelineService) predictMatch(ctx context.Context, target predictionTarget, lookups map[string]StatsLookup, rankings RankingIndex) matchOutcome {
	var out matchOutcome

	home, okHome := snapshotFor(lookups, target.Home.ID)
	away, okAway := snapshotFor(lookups, target.Away.ID)
	if !okHome || !okAway {
		out.skipped = true
		out.errs = append(out.errs, fmt.Sprintf("match %s: team stats unavailable", target.MatchID))
		return out
	}

	view := snapshot.MatchPrediction{
		MatchID:     target.MatchID,
		MatchNumber: target.Number,
		Stage:       string(target.Stage),
		HomeTeam:    target.Home.Name,
		AwayTeam:    target.Away.Name,
	}

	lookup, err := s.deps.Predictions.Lookup(ctx, target.MatchID, home, away)
	if err != nil {
		out.skipped = true
		out.errs = append(out.errs, fmt.Sprintf("match %s: %v", target.MatchID, err))
		return out
	}
	if lookup.Reusable {
		view.Prediction = lookup.Entry.Prediction
		view.Source = lookup.Entry.Source
		view.Fingerprint = lookup.Entry.Fingerprint
		view.GeneratedAt = lookup.Entry.GeneratedAt
		out.prediction = view
		out.reused = true
		return out
	}

	matchup := Matchup{
		MatchID: target.MatchID,
		Stage:   target.Stage,
		Home:    TeamContext{Team: target.Home, Stats: home, Ranking: rankings.Find(target.Home)},
		Away:    TeamContext{Team: target.Away, Stats: away, Ranking: rankings.Find(target.Away)},
		Prior:   s.fetchPrior(ctx, target),
	}
	generation := s.deps.Generator.Generate(ctx, matchup)

	entry, err := s.deps.Predictions.Store(ctx, target.MatchID, lookup.Fingerprint, generation.Prediction, generation.Source)
	if err != nil {
		out.errs = append(out.errs, fmt.Sprintf("match %s: %v", target.MatchID, err))
	}

	view.Prediction = generation.Prediction
	view.Source = generation.Source
	view.Fingerprint = lookup.Fingerprint
	view.GeneratedAt = entry.GeneratedAt
	out.prediction = view
	out.fallback = generation.Outcome == GenerationFallback
	return out
}

func (s *PipelineService) fetchPrior(ctx context.Context, target predictionTarget) *prediction.Prior {
	if s.deps.Priors == nil || target.ExternalID <= 0 {
		return nil
	}
	prior, ok, err := s.deps.Priors.FetchPrior(ctx, target.ExternalID)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch provider prior failed", "match_id", target.MatchID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &prior
}

func snapshotFor(lookups map[string]StatsLookup, teamID string) (teamstats.Snapshot, bool) {
	lookup, ok := lookups[teamID]
	if !ok || strings.TrimSpace(lookup.Snapshot.TeamID) == "" {
		return teamstats.Snapshot{}, false
	}
	return lookup.Snapshot, true
}

func bracketView(matches []tournament.KnockoutMatch, teams map[string]tournament.Team) []snapshot.BracketMatch {
	side := func(slot tournament.KnockoutSlot) snapshot.BracketSide {
		out := snapshot.BracketSide{Placeholder: slot.Placeholder, TeamID: slot.TeamID}
		if team, ok := teams[slot.TeamID]; ok {
			out.TeamName = team.Name
		}
		return out
	}

	out := make([]snapshot.BracketMatch, 0, len(matches))
	for _, item := range matches {
		out = append(out, snapshot.BracketMatch{
			MatchID:   item.ID,
			Number:    item.Number,
			Stage:     string(item.Stage),
			Venue:     item.Venue,
			KickoffAt: item.KickoffAt,
			Home:      side(item.Home),
			Away:      side(item.Away),
		})
	}
	return out
}
