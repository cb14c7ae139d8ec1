package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/worldcup-predictor/external/apifootball"
	"github.com/riskibarqy/worldcup-predictor/external/fifaranking"
	"github.com/riskibarqy/worldcup-predictor/external/gemini"
	"github.com/riskibarqy/worldcup-predictor/internal/config"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/infrastructure/storage/s3"
	"github.com/riskibarqy/worldcup-predictor/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/worldcup-predictor/internal/platform/id"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/resilience"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

// App owns the HTTP server, the optional scheduler and the storage handles
// they share.
type App struct {
	Server    *http.Server
	Scheduler *Scheduler
	Pipeline  *usecase.PipelineService

	repos  *repositories
	logger *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	repos, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	pipeline, err := buildPipeline(cfg, repos, logger)
	if err != nil {
		_ = repos.close()
		return nil, err
	}

	queries := usecase.NewSnapshotQueryService(repos.tournaments, repos.snapshots, repos.history, pipeline)
	handler := httpapi.NewHandler(pipeline, queries, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	})

	app := &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Pipeline: pipeline,
		repos:    repos,
		logger:   logger,
	}

	if cfg.SchedulerEnabled {
		scheduler, err := NewScheduler(cfg.SchedulerSpec, pipeline, logger)
		if err != nil {
			_ = repos.close()
			return nil, err
		}
		app.Scheduler = scheduler
	}

	return app, nil
}

func buildPipeline(cfg config.Config, repos *repositories, logger *logging.Logger) (*usecase.PipelineService, error) {
	statsClient := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:     cfg.APIFootballBaseURL,
		APIKey:      cfg.APIFootballKey,
		Timeout:     cfg.APIFootballTimeout,
		MinInterval: cfg.StatsMinInterval,
		Logger:      logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.APIFootballCircuitEnabled,
			FailureThreshold: cfg.APIFootballCircuitFailureCount,
			OpenTimeout:      cfg.APIFootballCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.APIFootballCircuitHalfOpenMax,
		},
	})
	aiClient := gemini.NewClient(gemini.ClientConfig{
		BaseURL:        cfg.AIBaseURL,
		APIKey:         cfg.AIAPIKey,
		Model:          cfg.AIModel,
		Temperature:    cfg.AITemperature,
		Timeout:        cfg.AITimeout,
		MinInterval:    cfg.AIMinInterval,
		Logger:         logger,
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
	})

	var mirror snapshot.Mirror
	if cfg.SnapshotS3Enabled {
		s3Mirror, err := s3.NewMirror(s3.MirrorConfig{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			KeyPrefix: cfg.S3KeyPrefix,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build snapshot mirror: %w", err)
		}
		mirror = s3Mirror
	}

	var rankings *usecase.RankingService
	if cfg.FIFARankingEnabled {
		rankingClient := fifaranking.NewClient(fifaranking.ClientConfig{
			MinInterval: cfg.FIFARankingMinInterval,
			Logger:      logger,
		})
		rankings = usecase.NewRankingService(repos.rankings, rankingClient, cfg.FIFARankingTTL, logger)
	}

	var (
		priors   prediction.PriorProvider
		fixtures *usecase.FixtureSyncService
	)
	if cfg.APIFootballKey != "" {
		priors = statsClient
		if cfg.FixtureSyncEnabled {
			fixtures = usecase.NewFixtureSyncService(repos.tournaments, statsClient, repos.raw, usecase.FixtureSyncConfig{
				LeagueID: cfg.APIFootballLeagueID,
				Season:   cfg.APIFootballSeason,
			}, logger)
		}
	}

	stats := usecase.NewStatsCacheService(repos.stats, statsClient, repos.raw, usecase.StatsCacheConfig{
		TTL:           cfg.StatsTTL,
		FallbackTTL:   cfg.StatsFallbackTTL,
		MaxAttempts:   cfg.StatsMaxAttempts,
		BackoffBase:   cfg.StatsBackoffBase,
		RecentMatches: cfg.StatsRecentMatches,
		Workers:       cfg.StatsWorkers,
	}, logger)

	return usecase.NewPipelineService(usecase.PipelineDependencies{
		Tournaments: repos.tournaments,
		Fixtures:    fixtures,
		Stats:       stats,
		Predictions: usecase.NewPredictionCacheService(repos.predictions, logger),
		Generator:   usecase.NewPredictionGenerator(aiClient, usecase.PredictionGeneratorConfig{RetryDelay: cfg.AIRetryDelay}, logger),
		Publisher:   usecase.NewSnapshotPublisher(repos.snapshots, repos.history, mirror, logger),
		Rankings:    rankings,
		Priors:      priors,
		IDs:         idgen.NewRunIDGenerator(),
	}, usecase.PipelineConfig{
		QualifyingThirds:      cfg.QualifyingThirds,
		PredictionConcurrency: cfg.AIConcurrency,
	}, logger), nil
}

// Close stops the scheduler and releases storage. The HTTP server is shut
// down by the caller.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if err := a.repos.close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
