package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/rawdata"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
)

type TeamStatsRepository struct {
	mu    sync.RWMutex
	items map[string]teamstats.Snapshot
}

func NewTeamStatsRepository() *TeamStatsRepository {
	return &TeamStatsRepository{items: make(map[string]teamstats.Snapshot)}
}

func (r *TeamStatsRepository) GetByTeam(_ context.Context, teamID string) (teamstats.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[teamID]
	return item, ok, nil
}

func (r *TeamStatsRepository) Upsert(_ context.Context, snapshot teamstats.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[snapshot.TeamID] = snapshot
	return nil
}

type PredictionCacheRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.CacheEntry
}

func NewPredictionCacheRepository() *PredictionCacheRepository {
	return &PredictionCacheRepository{items: make(map[string]prediction.CacheEntry)}
}

func (r *PredictionCacheRepository) GetByMatch(_ context.Context, matchID string) (prediction.CacheEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[matchID]
	return item, ok, nil
}

func (r *PredictionCacheRepository) Upsert(_ context.Context, entry prediction.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[entry.MatchID] = entry
	return nil
}

// PredictionHistoryRepository keeps entries oldest first per match.
type PredictionHistoryRepository struct {
	mu      sync.RWMutex
	byMatch map[string][]prediction.HistoryEntry
}

func NewPredictionHistoryRepository() *PredictionHistoryRepository {
	return &PredictionHistoryRepository{byMatch: make(map[string][]prediction.HistoryEntry)}
}

func (r *PredictionHistoryRepository) Latest(_ context.Context, matchID string) (prediction.HistoryEntry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byMatch[matchID]
	if len(items) == 0 {
		return prediction.HistoryEntry{}, false, nil
	}
	return items[len(items)-1], true, nil
}

func (r *PredictionHistoryRepository) Append(_ context.Context, entry prediction.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byMatch[entry.MatchID] = append(r.byMatch[entry.MatchID], entry)
	return nil
}

func (r *PredictionHistoryRepository) ListByMatch(_ context.Context, matchID string, limit int) ([]prediction.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byMatch[matchID]
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]prediction.HistoryEntry, 0, limit)
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, items[i])
	}
	return out, nil
}

type RawDataRepository struct {
	mu    sync.Mutex
	items map[string]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{items: make(map[string]rawdata.Payload)}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.items[item.Source+"|"+item.EntityType+"|"+item.EntityKey] = item
	}
	return nil
}
