package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/riskibarqy/worldcup-predictor/internal/config"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/rawdata"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/worldcup-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/worldcup-predictor/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/worldcup-predictor/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const (
	tournamentCacheTTL = 30 * time.Second
	snapshotCacheTTL   = time.Minute
	redisKeyPrefix     = "wcp"
)

type repositories struct {
	tournaments tournament.Repository
	snapshots   snapshot.Store
	history     prediction.HistoryRepository
	predictions prediction.CacheRepository
	stats       teamstats.Repository
	rankings    ranking.Repository
	raw         rawdata.Repository

	closers []func() error
}

func (r *repositories) close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func loadDataset(cfg config.Config) (tournament.Dataset, error) {
	if cfg.TournamentSeedPath == "" {
		return memory.SeedTournament(), nil
	}
	dataset, err := memory.LoadSeed(cfg.TournamentSeedPath)
	if err != nil {
		return tournament.Dataset{}, fmt.Errorf("load tournament seed: %w", err)
	}
	return dataset, nil
}

func buildRepositories(ctx context.Context, cfg config.Config, logger *logging.Logger) (*repositories, error) {
	dataset, err := loadDataset(cfg)
	if err != nil {
		return nil, err
	}

	repos := &repositories{}
	if cfg.DBURL == "" {
		logger.Warn("DB_URL empty, using in-memory repositories")
		repos.tournaments = memory.NewTournamentRepository(dataset)
		repos.snapshots = memory.NewSnapshotRepository()
		repos.history = memory.NewPredictionHistoryRepository()
		repos.rankings = memory.NewRankingRepository()
		repos.raw = memory.NewRawDataRepository()
		repos.stats = memory.NewTeamStatsRepository()
		repos.predictions = memory.NewPredictionCacheRepository()
	} else {
		db, err := openDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		repos.closers = append(repos.closers, db.Close)

		if err := postgres.BootstrapSeed(ctx, db, dataset); err != nil {
			_ = repos.close()
			return nil, err
		}
		repos.tournaments = postgres.NewTournamentRepository(db)
		repos.snapshots = postgres.NewSnapshotRepository(db)
		repos.history = postgres.NewPredictionHistoryRepository(db)
		repos.rankings = postgres.NewRankingRepository(db)
		repos.raw = postgres.NewRawDataRepository(db)

		if err := repos.useCacheBackend(ctx, cfg, db, logger); err != nil {
			_ = repos.close()
			return nil, err
		}
	}

	repos.tournaments = cache.NewTournamentRepository(repos.tournaments, tournamentCacheTTL)
	repos.snapshots = cache.NewSnapshotStore(repos.snapshots, snapshotCacheTTL)
	return repos, nil
}

// useCacheBackend picks where StatsSnapshot and prediction cache entries live.
func (r *repositories) useCacheBackend(ctx context.Context, cfg config.Config, db *sqlx.DB, logger *logging.Logger) error {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		r.closers = append(r.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		r.stats = redisrepo.NewTeamStatsRepository(client, redisKeyPrefix, cfg.StatsTTL)
		r.predictions = redisrepo.NewPredictionCacheRepository(client, redisKeyPrefix)
	case config.CacheBackendMemory:
		r.stats = memory.NewTeamStatsRepository()
		r.predictions = memory.NewPredictionCacheRepository()
	default:
		r.stats = postgres.NewTeamStatsRepository(db)
		r.predictions = postgres.NewPredictionCacheRepository(db)
	}
	logger.Info("cache backend selected", "backend", cfg.CacheBackend)
	return nil
}
