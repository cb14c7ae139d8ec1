package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/rawdata"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const (
	defaultFixtureLeagueID = 1
	defaultFixtureSeason   = 2026
)

type FixtureSyncConfig struct {
	LeagueID int64
	Season   int
}

type FixtureSyncResult struct {
	Fetched   int
	Updated   int
	Unchanged int
	Unmatched int
	// Conflicts counts provider fixtures that disagree with an already
	// finished stored result. The stored result wins.
	Conflicts int
	Errors    []string
}

func (r *FixtureSyncResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// FixtureSyncService copies scores, cards and knockout winners from the
// results provider into the tournament store.
type FixtureSyncService struct {
	repo     tournament.Repository
	provider tournament.FixtureProvider
	archive  rawdata.Repository
	cfg      FixtureSyncConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewFixtureSyncService(
	repo tournament.Repository,
	provider tournament.FixtureProvider,
	archive rawdata.Repository,
	cfg FixtureSyncConfig,
	logger *logging.Logger,
) *FixtureSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LeagueID <= 0 {
		cfg.LeagueID = defaultFixtureLeagueID
	}
	if cfg.Season <= 0 {
		cfg.Season = defaultFixtureSeason
	}
	return &FixtureSyncService{
		repo:     repo,
		provider: provider,
		archive:  archive,
		cfg:      cfg,
		logger:   logger.Named("fixture_sync"),
		now:      time.Now,
	}
}

// Sync matches provider fixtures to stored matches by provider fixture id,
// falling back to the provider ids of both teams. A match without a known
// fixture id gets one recorded on its first update.
func (s *FixtureSyncService) Sync(ctx context.Context) (FixtureSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureSyncService.Sync")
	defer span.End()

	var result FixtureSyncResult
	feed, err := s.provider.FetchFixtures(ctx, s.cfg.LeagueID, s.cfg.Season)
	if err != nil {
		return result, fmt.Errorf("fetch fixtures: %w", err)
	}
	result.Fetched = len(feed.Fixtures)
	s.archiveRaw(ctx, feed.RawPayload)

	index, err := s.loadIndex(ctx)
	if err != nil {
		return result, err
	}

	updates := make([]tournament.ResultUpdate, 0)
	for _, fixture := range feed.Fixtures {
		var (
			update  tournament.ResultUpdate
			changed bool
		)
		if match, ok := index.group(fixture); ok {
			update, changed = s.groupUpdate(ctx, index, match, fixture, &result)
		} else if match, ok := index.knockout(fixture); ok {
			update, changed = s.knockoutUpdate(index, match, fixture, &result)
		} else {
			result.Unmatched++
			continue
		}

		if !changed {
			result.Unchanged++
			continue
		}
		updates = append(updates, update)
	}

	if len(updates) > 0 {
		if err := s.repo.SaveResults(ctx, updates); err != nil {
			return result, fmt.Errorf("save fixture results: %w", err)
		}
	}
	result.Updated = len(updates)

	s.logger.InfoContext(ctx, "fixture sync finished",
		"league_id", s.cfg.LeagueID,
		"season", s.cfg.Season,
		"fetched", result.Fetched,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"unmatched", result.Unmatched,
		"conflicts", result.Conflicts,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *FixtureSyncService) groupUpdate(
	ctx context.Context,
	index fixtureIndex,
	match tournament.Match,
	fixture tournament.ProviderFixture,
	result *FixtureSyncResult,
) (tournament.ResultUpdate, bool) {
	if match.Finished() {
		if fixture.Status == tournament.MatchStatusFinished && !sameScore(match.HomeGoals, match.AwayGoals, fixture.HomeGoals, fixture.AwayGoals) {
			result.Conflicts++
			s.logger.WarnContext(ctx, "provider disagrees with finished result, keeping stored result",
				"match_id", match.ID,
				"fixture_id", fixture.ExternalID,
			)
		}
		return tournament.ResultUpdate{}, false
	}
	if fixture.Status == tournament.MatchStatusFinished && (fixture.HomeGoals == nil || fixture.AwayGoals == nil) {
		return tournament.ResultUpdate{}, false
	}

	update := tournament.ResultUpdate{
		MatchID:    match.ID,
		ExternalID: fixture.ExternalID,
		Status:     fixture.Status,
		HomeGoals:  fixture.HomeGoals,
		AwayGoals:  fixture.AwayGoals,
		HomeCards:  match.HomeCards,
		AwayCards:  match.AwayCards,
	}
	if fixture.Status == tournament.MatchStatusFinished {
		cards, err := s.provider.FetchCards(ctx, fixture.ExternalID)
		if err != nil {
			result.addError("match %s cards: %v", match.ID, err)
			return tournament.ResultUpdate{}, false
		}
		update.HomeCards = cards[index.externalTeam[match.HomeTeamID]]
		update.AwayCards = cards[index.externalTeam[match.AwayTeamID]]
	}

	changed := match.Status != update.Status ||
		match.ExternalID != update.ExternalID ||
		!sameScore(match.HomeGoals, match.AwayGoals, update.HomeGoals, update.AwayGoals) ||
		match.HomeCards != update.HomeCards ||
		match.AwayCards != update.AwayCards
	return update, changed
}

func (s *FixtureSyncService) knockoutUpdate(
	index fixtureIndex,
	match tournament.KnockoutMatch,
	fixture tournament.ProviderFixture,
	result *FixtureSyncResult,
) (tournament.ResultUpdate, bool) {
	winner := index.teamByExternal[fixture.WinnerExternalTeamID]
	if match.Finished() {
		if fixture.Status == tournament.MatchStatusFinished && winner != "" && winner != match.WinnerTeamID {
			result.Conflicts++
		}
		return tournament.ResultUpdate{}, false
	}

	update := tournament.ResultUpdate{
		MatchID:    match.ID,
		Knockout:   true,
		ExternalID: fixture.ExternalID,
		Status:     fixture.Status,
		HomeGoals:  fixture.HomeGoals,
		AwayGoals:  fixture.AwayGoals,
	}
	if fixture.Status == tournament.MatchStatusFinished {
		if winner == "" || (winner != match.Home.TeamID && winner != match.Away.TeamID) {
			result.addError("match %s: finished without a known winner", match.ID)
			return tournament.ResultUpdate{}, false
		}
		update.WinnerTeamID = winner
	}

	changed := match.Status != update.Status ||
		match.ExternalID != update.ExternalID ||
		!sameScore(match.HomeGoals, match.AwayGoals, update.HomeGoals, update.AwayGoals) ||
		match.WinnerTeamID != update.WinnerTeamID
	return update, changed
}

func (s *FixtureSyncService) loadIndex(ctx context.Context) (fixtureIndex, error) {
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fixtureIndex{}, fmt.Errorf("list teams: %w", err)
	}
	matches, err := s.repo.ListMatches(ctx)
	if err != nil {
		return fixtureIndex{}, fmt.Errorf("list matches: %w", err)
	}
	knockout, err := s.repo.ListKnockoutMatches(ctx)
	if err != nil {
		return fixtureIndex{}, fmt.Errorf("list knockout matches: %w", err)
	}
	return newFixtureIndex(teams, matches, knockout), nil
}

func (s *FixtureSyncService) archiveRaw(ctx context.Context, raw []byte) {
	if s.archive == nil || len(raw) == 0 {
		return
	}

	payload := rawdata.Payload{
		Source:      statsProviderSource,
		EntityType:  "fixtures",
		EntityKey:   strconv.FormatInt(s.cfg.LeagueID, 10) + ":" + strconv.Itoa(s.cfg.Season),
		PayloadJSON: string(raw),
		PayloadHash: rawdata.HashPayload(raw),
		FetchedAt:   s.now().UTC(),
	}
	if err := s.archive.UpsertMany(ctx, []rawdata.Payload{payload}); err != nil {
		s.logger.WarnContext(ctx, "archive raw fixtures failed", "error", err)
	}
}

type teamPair struct {
	home int64
	away int64
}

type fixtureIndex struct {
	teamByExternal map[int64]string
	externalTeam   map[string]int64

	groupByFixture    map[int64]tournament.Match
	groupByTeams      map[teamPair]tournament.Match
	knockoutByFixture map[int64]tournament.KnockoutMatch
	knockoutByTeams   map[teamPair]tournament.KnockoutMatch
}

func newFixtureIndex(teams []tournament.Team, matches []tournament.Match, knockout []tournament.KnockoutMatch) fixtureIndex {
	idx := fixtureIndex{
		teamByExternal:    make(map[int64]string, len(teams)),
		externalTeam:      make(map[string]int64, len(teams)),
		groupByFixture:    make(map[int64]tournament.Match),
		groupByTeams:      make(map[teamPair]tournament.Match),
		knockoutByFixture: make(map[int64]tournament.KnockoutMatch),
		knockoutByTeams:   make(map[teamPair]tournament.KnockoutMatch),
	}
	for _, team := range teams {
		if team.ExternalID <= 0 {
			continue
		}
		idx.teamByExternal[team.ExternalID] = team.ID
		idx.externalTeam[team.ID] = team.ExternalID
	}

	for _, match := range matches {
		if match.Stage != tournament.StageGroup {
			continue
		}
		if match.ExternalID > 0 {
			idx.groupByFixture[match.ExternalID] = match
		}
		if pair, ok := idx.pair(match.HomeTeamID, match.AwayTeamID); ok {
			idx.groupByTeams[pair] = match
		}
	}
	for _, match := range knockout {
		if match.ExternalID > 0 {
			idx.knockoutByFixture[match.ExternalID] = match
		}
		if !match.Home.Resolved() || !match.Away.Resolved() {
			continue
		}
		if pair, ok := idx.pair(match.Home.TeamID, match.Away.TeamID); ok {
			idx.knockoutByTeams[pair] = match
		}
	}
	return idx
}

func (idx fixtureIndex) pair(homeTeamID, awayTeamID string) (teamPair, bool) {
	home, okHome := idx.externalTeam[homeTeamID]
	away, okAway := idx.externalTeam[awayTeamID]
	return teamPair{home: home, away: away}, okHome && okAway
}

func (idx fixtureIndex) group(fixture tournament.ProviderFixture) (tournament.Match, bool) {
	if match, ok := idx.groupByFixture[fixture.ExternalID]; ok {
		return match, true
	}
	match, ok := idx.groupByTeams[teamPair{home: fixture.HomeExternalTeamID, away: fixture.AwayExternalTeamID}]
	if !ok || (match.ExternalID > 0 && match.ExternalID != fixture.ExternalID) {
		return tournament.Match{}, false
	}
	return match, true
}

func (idx fixtureIndex) knockout(fixture tournament.ProviderFixture) (tournament.KnockoutMatch, bool) {
	if match, ok := idx.knockoutByFixture[fixture.ExternalID]; ok {
		return match, true
	}
	match, ok := idx.knockoutByTeams[teamPair{home: fixture.HomeExternalTeamID, away: fixture.AwayExternalTeamID}]
	if !ok || (match.ExternalID > 0 && match.ExternalID != fixture.ExternalID) {
		return tournament.KnockoutMatch{}, false
	}
	return match, true
}

func sameScore(leftHome, leftAway, rightHome, rightAway *int) bool {
	return sameInt(leftHome, rightHome) && sameInt(leftAway, rightAway)
}

func sameInt(left, right *int) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return *left == *right
}
