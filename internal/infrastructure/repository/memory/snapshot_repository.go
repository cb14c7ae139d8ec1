package memory

import (
	"context"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
)

// SnapshotRepository keeps the encoded bytes and decodes on read, so callers
// get the same view a durable store would return.
type SnapshotRepository struct {
	mu      sync.RWMutex
	encoded []byte
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

func (r *SnapshotRepository) Put(_ context.Context, _ snapshot.Document, encoded []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.encoded = append(r.encoded[:0], encoded...)
	return nil
}

func (r *SnapshotRepository) Latest(_ context.Context) (snapshot.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.encoded) == 0 {
		return snapshot.Document{}, false, nil
	}
	var doc snapshot.Document
	if err := sonic.Unmarshal(r.encoded, &doc); err != nil {
		return snapshot.Document{}, false, err
	}
	return doc, true, nil
}

type RankingRepository struct {
	mu    sync.RWMutex
	items []ranking.Ranking
}

func NewRankingRepository() *RankingRepository {
	return &RankingRepository{}
}

func (r *RankingRepository) ListAll(_ context.Context) ([]ranking.Ranking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ranking.Ranking, 0, len(r.items))
	out = append(out, r.items...)
	return out, nil
}

func (r *RankingRepository) ReplaceAll(_ context.Context, items []ranking.Ranking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]ranking.Ranking(nil), items...)
	return nil
}
