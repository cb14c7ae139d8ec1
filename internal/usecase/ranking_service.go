package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

const defaultRankingTTL = 30 * 24 * time.Hour

// RankingIndex maps both FIFA codes and lowercased team names to rankings.
type RankingIndex map[string]ranking.Ranking

func NewRankingIndex(items []ranking.Ranking) RankingIndex {
	idx := make(RankingIndex, len(items)*2)
	for _, item := range items {
		if item.FIFACode != "" {
			idx[ranking.Key(item.FIFACode, "")] = item
		}
		if item.TeamName != "" {
			idx[ranking.Key("", item.TeamName)] = item
		}
	}
	return idx
}

func (idx RankingIndex) Find(team tournament.Team) *ranking.Ranking {
	if len(idx) == 0 {
		return nil
	}
	if team.FIFACode != "" {
		if item, ok := idx[ranking.Key(team.FIFACode, "")]; ok {
			return &item
		}
	}
	if item, ok := idx[ranking.Key("", team.Name)]; ok {
		return &item
	}
	return nil
}

// RankingService keeps the stored world ranking fresh. Ranking data only
// enriches prompts, so every failure here degrades to stale or empty data.
type RankingService struct {
	repo     ranking.Repository
	provider ranking.Provider
	ttl      time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewRankingService(repo ranking.Repository, provider ranking.Provider, ttl time.Duration, logger *logging.Logger) *RankingService {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = defaultRankingTTL
	}
	return &RankingService{
		repo:     repo,
		provider: provider,
		ttl:      ttl,
		logger:   logger.Named("ranking"),
		now:      time.Now,
	}
}

func (s *RankingService) Index(ctx context.Context) RankingIndex {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Index")
	defer span.End()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read stored rankings failed", "error", err)
		items = nil
	}
	if !s.stale(items) || s.provider == nil {
		return NewRankingIndex(items)
	}

	fresh, err := s.refresh(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh fifa ranking failed, using stored data",
			"stored", len(items),
			"degraded", true,
			"error", err,
		)
		return NewRankingIndex(items)
	}
	return NewRankingIndex(fresh)
}

func (s *RankingService) stale(items []ranking.Ranking) bool {
	if len(items) == 0 {
		return true
	}
	oldest := items[0].FetchedAt
	for _, item := range items[1:] {
		if item.FetchedAt.Before(oldest) {
			oldest = item.FetchedAt
		}
	}
	return !s.now().Before(oldest.Add(s.ttl))
}

func (s *RankingService) refresh(ctx context.Context) ([]ranking.Ranking, error) {
	items, err := s.provider.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: ranking provider returned no rows", ErrMalformedOutput)
	}

	fetchedAt := s.now().UTC()
	for i := range items {
		if items[i].FetchedAt.IsZero() {
			items[i].FetchedAt = fetchedAt
		}
	}
	if err := s.repo.ReplaceAll(ctx, items); err != nil {
		return nil, fmt.Errorf("store rankings: %w", err)
	}

	s.logger.InfoContext(ctx, "fifa ranking refreshed", "teams", len(items))
	return items, nil
}
