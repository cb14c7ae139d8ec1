package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	basecache "github.com/riskibarqy/worldcup-predictor/internal/platform/cache"
)

const (
	keyTeams    = "tournament:teams"
	keyMatches  = "tournament:matches"
	keyKnockout = "tournament:knockout"
	keyLatest   = "snapshot:latest"
)

// TournamentRepository caches the read side of a tournament store. Writes go
// straight through and drop the affected key.
type TournamentRepository struct {
	next     tournament.Repository
	teams    *basecache.Store[[]tournament.Team]
	matches  *basecache.Store[[]tournament.Match]
	knockout *basecache.Store[[]tournament.KnockoutMatch]
}

func NewTournamentRepository(next tournament.Repository, ttl time.Duration) *TournamentRepository {
	return &TournamentRepository{
		next:     next,
		teams:    basecache.NewStore[[]tournament.Team](ttl),
		matches:  basecache.NewStore[[]tournament.Match](ttl),
		knockout: basecache.NewStore[[]tournament.KnockoutMatch](ttl),
	}
}

func (r *TournamentRepository) ListTeams(ctx context.Context) ([]tournament.Team, error) {
	items, err := r.teams.GetOrLoad(ctx, keyTeams, func(ctx context.Context) ([]tournament.Team, error) {
		items, err := r.next.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		return append([]tournament.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]tournament.Team(nil), items...), nil
}

func (r *TournamentRepository) ListMatches(ctx context.Context) ([]tournament.Match, error) {
	items, err := r.matches.GetOrLoad(ctx, keyMatches, func(ctx context.Context) ([]tournament.Match, error) {
		items, err := r.next.ListMatches(ctx)
		if err != nil {
			return nil, err
		}
		return append([]tournament.Match(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]tournament.Match(nil), items...), nil
}

func (r *TournamentRepository) ListKnockoutMatches(ctx context.Context) ([]tournament.KnockoutMatch, error) {
	items, err := r.knockout.GetOrLoad(ctx, keyKnockout, func(ctx context.Context) ([]tournament.KnockoutMatch, error) {
		items, err := r.next.ListKnockoutMatches(ctx)
		if err != nil {
			return nil, err
		}
		return append([]tournament.KnockoutMatch(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]tournament.KnockoutMatch(nil), items...), nil
}

func (r *TournamentRepository) SaveKnockoutSlots(ctx context.Context, matches []tournament.KnockoutMatch) error {
	if err := r.next.SaveKnockoutSlots(ctx, matches); err != nil {
		return err
	}
	r.knockout.Delete(ctx, keyKnockout)
	return nil
}

func (r *TournamentRepository) SaveResults(ctx context.Context, updates []tournament.ResultUpdate) error {
	if err := r.next.SaveResults(ctx, updates); err != nil {
		return err
	}
	r.matches.Delete(ctx, keyMatches)
	r.knockout.Delete(ctx, keyKnockout)
	return nil
}

// SnapshotStore serves Latest from memory between publishes.
type SnapshotStore struct {
	next  snapshot.Store
	cache *basecache.Store[cachedDocument]
}

type cachedDocument struct {
	value  snapshot.Document
	exists bool
}

func NewSnapshotStore(next snapshot.Store, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{next: next, cache: basecache.NewStore[cachedDocument](ttl)}
}

func (s *SnapshotStore) Put(ctx context.Context, doc snapshot.Document, encoded []byte) error {
	if err := s.next.Put(ctx, doc, encoded); err != nil {
		return err
	}
	s.cache.Set(ctx, keyLatest, cachedDocument{value: doc, exists: true})
	return nil
}

func (s *SnapshotStore) Latest(ctx context.Context) (snapshot.Document, bool, error) {
	cached, err := s.cache.GetOrLoad(ctx, keyLatest, func(ctx context.Context) (cachedDocument, error) {
		doc, exists, err := s.next.Latest(ctx)
		if err != nil {
			return cachedDocument{}, err
		}
		return cachedDocument{value: doc, exists: exists}, nil
	})
	if err != nil {
		return snapshot.Document{}, false, err
	}
	return cached.value, cached.exists, nil
}
