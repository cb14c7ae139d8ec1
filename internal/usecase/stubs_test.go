package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/rawdata"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

var errStubWrite = errors.New("stub write failed")

var fixedNow = time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type stubStatsRepo struct {
	mu    sync.Mutex
	items map[string]teamstats.Snapshot
	puts  int
}

func newStubStatsRepo(items ...teamstats.Snapshot) *stubStatsRepo {
	repo := &stubStatsRepo{items: make(map[string]teamstats.Snapshot)}
	for _, item := range items {
		repo.items[item.TeamID] = item
	}
	return repo
}

func (r *stubStatsRepo) GetByTeam(_ context.Context, teamID string) (teamstats.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[teamID]
	return item, ok, nil
}

func (r *stubStatsRepo) Upsert(_ context.Context, snap teamstats.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[snap.TeamID] = snap
	r.puts++
	return nil
}

type stubRawRepo struct {
	mu    sync.Mutex
	items []rawdata.Payload
}

func (r *stubRawRepo) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
	return nil
}

type stubPredictionCacheRepo struct {
	mu    sync.Mutex
	items map[string]prediction.CacheEntry
	puts  int
}

func newStubPredictionCacheRepo() *stubPredictionCacheRepo {
	return &stubPredictionCacheRepo{items: make(map[string]prediction.CacheEntry)}
}

func (r *stubPredictionCacheRepo) GetByMatch(_ context.Context, matchID string) (prediction.CacheEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[matchID]
	return item, ok, nil
}

func (r *stubPredictionCacheRepo) Upsert(_ context.Context, entry prediction.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[entry.MatchID] = entry
	r.puts++
	return nil
}

type stubHistoryRepo struct {
	mu       sync.Mutex
	items    map[string][]prediction.HistoryEntry
	failNext bool
}

func newStubHistoryRepo() *stubHistoryRepo {
	return &stubHistoryRepo{items: make(map[string][]prediction.HistoryEntry)}
}

func (r *stubHistoryRepo) Latest(_ context.Context, matchID string) (prediction.HistoryEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[matchID]
	if len(items) == 0 {
		return prediction.HistoryEntry{}, false, nil
	}
	return items[len(items)-1], true, nil
}

func (r *stubHistoryRepo) Append(_ context.Context, entry prediction.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errStubWrite
	}
	r.items[entry.MatchID] = append(r.items[entry.MatchID], entry)
	return nil
}

func (r *stubHistoryRepo) ListByMatch(_ context.Context, matchID string, limit int) ([]prediction.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[matchID]
	out := make([]prediction.HistoryEntry, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, items[i])
	}
	return out, nil
}

func (r *stubHistoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, items := range r.items {
		total += len(items)
	}
	return total
}

type stubSnapshotStore struct {
	mu      sync.Mutex
	latest  *snapshot.Document
	encoded []byte
	puts    int
	err     error
}

func (s *stubSnapshotStore) Put(_ context.Context, doc snapshot.Document, encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.latest = &doc
	s.encoded = encoded
	s.puts++
	return nil
}

func (s *stubSnapshotStore) Latest(_ context.Context) (snapshot.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return snapshot.Document{}, false, nil
	}
	return *s.latest, true, nil
}

type stubMirror struct {
	err     error
	uploads int
}

func (m *stubMirror) Upload(context.Context, snapshot.Document, []byte) error {
	m.uploads++
	return m.err
}

type stubTournamentRepo struct {
	mu       sync.Mutex
	teams    []tournament.Team
	matches  []tournament.Match
	knockout []tournament.KnockoutMatch
	saves    int
	results  []tournament.ResultUpdate
	saveErr  error
}

func (r *stubTournamentRepo) ListTeams(context.Context) ([]tournament.Team, error) {
	return r.teams, nil
}

func (r *stubTournamentRepo) ListMatches(context.Context) ([]tournament.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournament.Match(nil), r.matches...), nil
}

func (r *stubTournamentRepo) ListKnockoutMatches(context.Context) ([]tournament.KnockoutMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tournament.KnockoutMatch(nil), r.knockout...), nil
}

func (r *stubTournamentRepo) SaveKnockoutSlots(_ context.Context, matches []tournament.KnockoutMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knockout = append([]tournament.KnockoutMatch(nil), matches...)
	r.saves++
	return nil
}

func (r *stubTournamentRepo) SaveResults(_ context.Context, updates []tournament.ResultUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.results = append(r.results, updates...)
	for _, update := range updates {
		if update.Knockout {
			continue
		}
		for i := range r.matches {
			if r.matches[i].ID != update.MatchID || r.matches[i].Finished() {
				continue
			}
			r.matches[i].Status = update.Status
			r.matches[i].HomeGoals = update.HomeGoals
			r.matches[i].AwayGoals = update.AwayGoals
			r.matches[i].HomeCards = update.HomeCards
			r.matches[i].AwayCards = update.AwayCards
			r.matches[i].ExternalID = update.ExternalID
		}
	}
	return nil
}

type stubRankingRepo struct {
	items    []ranking.Ranking
	replaced int
}

func (r *stubRankingRepo) ListAll(context.Context) ([]ranking.Ranking, error) {
	return r.items, nil
}

func (r *stubRankingRepo) ReplaceAll(_ context.Context, items []ranking.Ranking) error {
	r.items = items
	r.replaced++
	return nil
}

type stubRankingProvider struct {
	items []ranking.Ranking
	err   error
	calls int
}

func (p *stubRankingProvider) FetchLatest(context.Context) ([]ranking.Ranking, error) {
	p.calls++
	return p.items, p.err
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}
