package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/bracket"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	predictionmock "github.com/riskibarqy/worldcup-predictor/internal/mocks/domain/prediction"
	teamstatsmock "github.com/riskibarqy/worldcup-predictor/internal/mocks/domain/teamstats"
	"github.com/stretchr/testify/mock"
)

type pipelineFixture struct {
	service     *PipelineService
	tournaments *stubTournamentRepo
	store       *stubSnapshotStore
	history     *stubHistoryRepo
	predCache   *stubPredictionCacheRepo
	provider    *teamstatsmock.Provider
	ai          *predictionmock.Generator
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	tournaments := &stubTournamentRepo{
		teams: []tournament.Team{
			{ID: "nor", Name: "Norway", Group: "A", ExternalID: 1090},
			{ID: "fra", Name: "France", Group: "A", ExternalID: 2},
			{ID: "bra", Name: "Brazil", Group: "B", ExternalID: 6},
			{ID: "arg", Name: "Argentina", Group: "B", ExternalID: 26},
		},
		matches: []tournament.Match{
			{ID: "g-1", Number: 1, Stage: tournament.StageGroup, Group: "A", HomeTeamID: "nor", AwayTeamID: "fra", Status: tournament.MatchStatusFinished, HomeGoals: intPtr(2), AwayGoals: intPtr(1)},
			{ID: "g-2", Number: 2, Stage: tournament.StageGroup, Group: "B", HomeTeamID: "bra", AwayTeamID: "arg", Status: tournament.MatchStatusScheduled},
		},
		knockout: []tournament.KnockoutMatch{
			{ID: "ko-73", Number: 73, Stage: tournament.StageRoundOf32, Home: tournament.KnockoutSlot{Placeholder: "Winner A"}, Away: tournament.KnockoutSlot{Placeholder: "Runner-up A"}},
			{ID: "ko-74", Number: 74, Stage: tournament.StageRoundOf32, Home: tournament.KnockoutSlot{Placeholder: "Winner B"}, Away: tournament.KnockoutSlot{Placeholder: "Runner-up B"}},
		},
	}

	provider := teamstatsmock.NewProvider(t)
	ai := predictionmock.NewGenerator(t)
	statsSvc, _ := newTestStatsService(newStubStatsRepo(), provider, &stubRawRepo{})
	predCache := newStubPredictionCacheRepo()
	cacheSvc := NewPredictionCacheService(predCache, nil)
	cacheSvc.now = fixedClock
	generator, _ := newTestGenerator(ai)
	store := &stubSnapshotStore{}
	history := newStubHistoryRepo()

	svc := NewPipelineService(PipelineDependencies{
		Tournaments: tournaments,
		Stats:       statsSvc,
		Predictions: cacheSvc,
		Generator:   generator,
		Publisher:   NewSnapshotPublisher(store, history, nil, nil),
	}, PipelineConfig{PredictionConcurrency: 2}, nil)
	svc.now = fixedClock
	svc.resolver = bracket.NewResolver(bracket.DefaultQualifyingThirds)

	return &pipelineFixture{
		service:     svc,
		tournaments: tournaments,
		store:       store,
		history:     history,
		predCache:   predCache,
		provider:    provider,
		ai:          ai,
	}
}

func TestPipelineService_RecomputeThenRefreshReusesEverything(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.provider.
		On("FetchRecentMatches", mock.Anything, mock.AnythingOfType("int64"), 10).
		Return(teamstats.FetchResult{Matches: recentMatches()}, nil).
		Times(4)
	f.ai.
		On("GenerateContent", mock.Anything, mock.AnythingOfType("string")).
		Return(validAIResponse, nil).
		Times(2)

	first, err := f.service.RecomputeTournament(context.Background())
	if err != nil {
		t.Fatalf("RecomputeTournament error: %v", err)
	}
	if first.Status != RunStatusSuccess {
		t.Fatalf("unexpected status: got=%s errors=%v", first.Status, first.Errors)
	}
	if first.GroupsCalculated != 2 {
		t.Fatalf("unexpected groups: got=%d want=2", first.GroupsCalculated)
	}
	if first.BracketSlotsResolved != 2 || first.UnresolvedSlots != 2 {
		t.Fatalf("unexpected bracket counts: resolved=%d unresolved=%d", first.BracketSlotsResolved, first.UnresolvedSlots)
	}
	if first.PredictionsGenerated != 2 || first.PredictionsReused != 0 {
		t.Fatalf("unexpected prediction counts: generated=%d reused=%d", first.PredictionsGenerated, first.PredictionsReused)
	}
	if first.StatsCacheMisses != 4 || first.StatsCacheHits != 0 {
		t.Fatalf("unexpected stats counts: hits=%d misses=%d", first.StatsCacheHits, first.StatsCacheMisses)
	}
	if first.HistoryAppended != 2 {
		t.Fatalf("unexpected history appends: got=%d want=2", first.HistoryAppended)
	}
	if f.tournaments.saves != 1 {
		t.Fatalf("expected resolved slots persisted once, got=%d", f.tournaments.saves)
	}

	doc, ok, _ := f.store.Latest(context.Background())
	if !ok {
		t.Fatalf("expected published document")
	}
	if doc.Bracket[0].Home.TeamName != "Norway" || doc.Bracket[0].Away.TeamName != "France" {
		t.Fatalf("unexpected resolved bracket: %+v", doc.Bracket[0])
	}
	if len(doc.Unresolved) != 2 || doc.Unresolved[0].Reason != bracket.ReasonGroupIncomplete {
		t.Fatalf("unexpected unresolved slots: %+v", doc.Unresolved)
	}
	if len(doc.Predictions) != 2 || doc.Predictions[0].MatchID != "g-2" || doc.Predictions[1].MatchID != "ko-73" {
		t.Fatalf("unexpected predictions: %+v", doc.Predictions)
	}

	second, err := f.service.RefreshPredictions(context.Background())
	if err != nil {
		t.Fatalf("RefreshPredictions error: %v", err)
	}
	if second.StatsCacheHits != 4 || second.StatsCacheMisses != 0 {
		t.Fatalf("unexpected stats counts on refresh: hits=%d misses=%d", second.StatsCacheHits, second.StatsCacheMisses)
	}
	if second.PredictionsReused != 2 || second.PredictionsGenerated != 0 {
		t.Fatalf("unexpected prediction counts on refresh: generated=%d reused=%d", second.PredictionsGenerated, second.PredictionsReused)
	}
	if second.HistoryAppended != 0 {
		t.Fatalf("unchanged predictions must not append history: got=%d", second.HistoryAppended)
	}
	if second.BracketSlotsResolved != 0 {
		t.Fatalf("persisted slots must not resolve again: got=%d", second.BracketSlotsResolved)
	}
	if f.store.puts != 2 {
		t.Fatalf("document must be rewritten on every run: got=%d want=2", f.store.puts)
	}
}

func TestPipelineService_PublishFailureKeepsCaches(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.store.err = errStubWrite
	f.provider.
		On("FetchRecentMatches", mock.Anything, mock.AnythingOfType("int64"), 10).
		Return(teamstats.FetchResult{Matches: recentMatches()}, nil).
		Times(4)
	f.ai.
		On("GenerateContent", mock.Anything, mock.AnythingOfType("string")).
		Return(validAIResponse, nil).
		Times(2)

	_, err := f.service.RefreshPredictions(context.Background())
	if !errors.Is(err, errStubWrite) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if f.predCache.puts != 2 {
		t.Fatalf("predictions must stay cached after a failed publish: got=%d want=2", f.predCache.puts)
	}
	if f.service.Running() {
		t.Fatalf("run guard must be released after a failure")
	}
}

func TestPipelineService_RejectsOverlappingRuns(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.service.running.Store(true)

	if _, err := f.service.RecomputeTournament(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := f.service.RefreshPredictions(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestPipelineService_FixtureSyncFeedsStandings(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.service.deps.Fixtures = NewFixtureSyncService(f.tournaments, &stubFixtureProvider{
		feed: tournament.FixtureFeed{Fixtures: []tournament.ProviderFixture{
			{ExternalID: 700002, Status: tournament.MatchStatusFinished, HomeExternalTeamID: 6, AwayExternalTeamID: 26, HomeGoals: intPtr(1), AwayGoals: intPtr(0), WinnerExternalTeamID: 6},
		}},
	}, nil, FixtureSyncConfig{}, nil)
	f.provider.
		On("FetchRecentMatches", mock.Anything, mock.AnythingOfType("int64"), 10).
		Return(teamstats.FetchResult{Matches: recentMatches()}, nil).
		Times(4)
	f.ai.
		On("GenerateContent", mock.Anything, mock.AnythingOfType("string")).
		Return(validAIResponse, nil).
		Times(2)

	result, err := f.service.RecomputeTournament(context.Background())
	if err != nil {
		t.Fatalf("RecomputeTournament error: %v", err)
	}
	if result.Status != RunStatusSuccess || result.FixturesUpdated != 1 {
		t.Fatalf("unexpected run: status=%s updated=%d errors=%v", result.Status, result.FixturesUpdated, result.Errors)
	}
	if result.BracketSlotsResolved != 4 || result.UnresolvedSlots != 0 {
		t.Fatalf("unexpected bracket counts: resolved=%d unresolved=%d", result.BracketSlotsResolved, result.UnresolvedSlots)
	}

	doc, _, _ := f.store.Latest(context.Background())
	if len(doc.Predictions) != 2 || doc.Predictions[0].MatchID != "ko-73" || doc.Predictions[1].MatchID != "ko-74" {
		t.Fatalf("unexpected predictions: %+v", doc.Predictions)
	}
}

func TestPipelineService_FixtureSyncFailureIsPartial(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.service.deps.Fixtures = NewFixtureSyncService(f.tournaments, &stubFixtureProvider{err: ErrDependencyUnavailable}, nil, FixtureSyncConfig{}, nil)
	f.provider.
		On("FetchRecentMatches", mock.Anything, mock.AnythingOfType("int64"), 10).
		Return(teamstats.FetchResult{Matches: recentMatches()}, nil).
		Times(4)
	f.ai.
		On("GenerateContent", mock.Anything, mock.AnythingOfType("string")).
		Return(validAIResponse, nil).
		Times(2)

	result, err := f.service.RecomputeTournament(context.Background())
	if err != nil {
		t.Fatalf("RecomputeTournament error: %v", err)
	}
	if result.Status != RunStatusPartialSuccess || len(result.Errors) != 1 {
		t.Fatalf("unexpected run: status=%s errors=%v", result.Status, result.Errors)
	}
	if result.PredictionsGenerated != 2 || f.store.puts != 1 {
		t.Fatalf("run must continue on stored results: generated=%d puts=%d", result.PredictionsGenerated, f.store.puts)
	}
}
