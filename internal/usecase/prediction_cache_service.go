package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

// PredictionLookup tells the caller whether the cached entry for a match may
// be reused. Fingerprint is always the one computed from current statistics.
type PredictionLookup struct {
	MatchID     string
	Fingerprint string
	Entry       prediction.CacheEntry
	Found       bool
	Reusable    bool
}

type PredictionCacheService struct {
	repo   prediction.CacheRepository
	logger *logging.Logger
	now    func() time.Time
}

func NewPredictionCacheService(repo prediction.CacheRepository, logger *logging.Logger) *PredictionCacheService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionCacheService{
		repo:   repo,
		logger: logger.Named("prediction_cache"),
		now:    time.Now,
	}
}

// Lookup compares the stored fingerprint with the one derived from home and
// away. Age of the entry plays no part. A failed read is reported as a miss.
func (s *PredictionCacheService) Lookup(ctx context.Context, matchID string, home, away teamstats.Snapshot) (PredictionLookup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionCacheService.Lookup")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return PredictionLookup{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	lookup := PredictionLookup{
		MatchID:     matchID,
		Fingerprint: prediction.Fingerprint(home, away),
	}

	entry, ok, err := s.repo.GetByMatch(ctx, matchID)
	if err != nil {
		s.logger.WarnContext(ctx, "read cached prediction failed, regenerating", "match_id", matchID, "error", err)
		return lookup, nil
	}
	if !ok {
		return lookup, nil
	}

	lookup.Entry = entry
	lookup.Found = true
	lookup.Reusable = entry.Fingerprint == lookup.Fingerprint
	if !lookup.Reusable {
		s.logger.DebugContext(ctx, "team stats changed, prediction needs regeneration", "match_id", matchID)
	}
	return lookup, nil
}

// Store writes a freshly generated prediction tagged with the fingerprint it
// was generated from.
func (s *PredictionCacheService) Store(ctx context.Context, matchID, fingerprint string, pred prediction.Prediction, source prediction.Source) (prediction.CacheEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionCacheService.Store")
	defer span.End()

	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(fingerprint) == "" {
		return prediction.CacheEntry{}, fmt.Errorf("%w: match id and fingerprint are required", ErrInvalidInput)
	}

	entry := prediction.CacheEntry{
		MatchID:     matchID,
		Prediction:  pred,
		Fingerprint: fingerprint,
		Source:      source,
		GeneratedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return entry, fmt.Errorf("store prediction match_id=%s: %w", matchID, err)
	}
	return entry, nil
}
