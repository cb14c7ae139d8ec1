package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
)

const defaultKeyPrefix = "wcp"

// Client is the subset of go-redis the repositories use. *goredis.Client
// satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

type keyspace string

func newKeyspace(prefix string) keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return keyspace(prefix)
}

func (k keyspace) stats(teamID string) string {
	return string(k) + ":stats:" + teamID
}

func (k keyspace) prediction(matchID string) string {
	return string(k) + ":prediction:" + matchID
}

// TeamStatsRepository stores snapshots as JSON. Keys outlive ExpiresAt by
// retention so a stale snapshot is still visible to the cache manager.
type TeamStatsRepository struct {
	client    Client
	keys      keyspace
	retention time.Duration
}

func NewTeamStatsRepository(client Client, prefix string, retention time.Duration) *TeamStatsRepository {
	return &TeamStatsRepository{client: client, keys: newKeyspace(prefix), retention: retention}
}

func (r *TeamStatsRepository) GetByTeam(ctx context.Context, teamID string) (teamstats.Snapshot, bool, error) {
	raw, err := r.client.Get(ctx, r.keys.stats(teamID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return teamstats.Snapshot{}, false, nil
		}
		return teamstats.Snapshot{}, false, fmt.Errorf("get team stats team_id=%s: %w", teamID, err)
	}

	var out teamstats.Snapshot
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return teamstats.Snapshot{}, false, fmt.Errorf("decode team stats team_id=%s: %w", teamID, err)
	}
	return out, true, nil
}

func (r *TeamStatsRepository) Upsert(ctx context.Context, snapshot teamstats.Snapshot) error {
	payload, err := sonic.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode team stats team_id=%s: %w", snapshot.TeamID, err)
	}

	var expiration time.Duration
	if r.retention > 0 {
		expiration = time.Until(snapshot.ExpiresAt) + r.retention
		if expiration <= 0 {
			expiration = r.retention
		}
	}
	if err := r.client.Set(ctx, r.keys.stats(snapshot.TeamID), payload, expiration).Err(); err != nil {
		return fmt.Errorf("set team stats team_id=%s: %w", snapshot.TeamID, err)
	}
	return nil
}

// PredictionCacheRepository keeps entries without expiry; reuse is decided by
// fingerprint, not age.
type PredictionCacheRepository struct {
	client Client
	keys   keyspace
}

func NewPredictionCacheRepository(client Client, prefix string) *PredictionCacheRepository {
	return &PredictionCacheRepository{client: client, keys: newKeyspace(prefix)}
}

func (r *PredictionCacheRepository) GetByMatch(ctx context.Context, matchID string) (prediction.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.keys.prediction(matchID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return prediction.CacheEntry{}, false, nil
		}
		return prediction.CacheEntry{}, false, fmt.Errorf("get prediction cache match_id=%s: %w", matchID, err)
	}

	var out prediction.CacheEntry
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return prediction.CacheEntry{}, false, fmt.Errorf("decode prediction cache match_id=%s: %w", matchID, err)
	}
	return out, true, nil
}

func (r *PredictionCacheRepository) Upsert(ctx context.Context, entry prediction.CacheEntry) error {
	payload, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode prediction cache match_id=%s: %w", entry.MatchID, err)
	}
	if err := r.client.Set(ctx, r.keys.prediction(entry.MatchID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set prediction cache match_id=%s: %w", entry.MatchID, err)
	}
	return nil
}
