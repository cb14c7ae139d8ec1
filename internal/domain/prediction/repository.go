package prediction

import "context"

type CacheRepository interface {
	GetByMatch(ctx context.Context, matchID string) (CacheEntry, bool, error)
	Upsert(ctx context.Context, entry CacheEntry) error
}

type HistoryRepository interface {
	Latest(ctx context.Context, matchID string) (HistoryEntry, bool, error)
	Append(ctx context.Context, entry HistoryEntry) error
	ListByMatch(ctx context.Context, matchID string, limit int) ([]HistoryEntry, error)
}
