package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

type TournamentRepository struct {
	mu       sync.RWMutex
	teams    []tournament.Team
	matches  []tournament.Match
	knockout map[string]tournament.KnockoutMatch
}

func NewTournamentRepository(seed tournament.Dataset) *TournamentRepository {
	knockout := make(map[string]tournament.KnockoutMatch, len(seed.Knockout))
	for _, item := range seed.Knockout {
		knockout[item.ID] = item
	}
	return &TournamentRepository{
		teams:    append([]tournament.Team(nil), seed.Teams...),
		matches:  append([]tournament.Match(nil), seed.Matches...),
		knockout: knockout,
	}
}

func (r *TournamentRepository) ListTeams(_ context.Context) ([]tournament.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tournament.Team, 0, len(r.teams))
	out = append(out, r.teams...)
	return out, nil
}

func (r *TournamentRepository) ListMatches(_ context.Context) ([]tournament.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tournament.Match, 0, len(r.matches))
	out = append(out, r.matches...)
	return out, nil
}

func (r *TournamentRepository) ListKnockoutMatches(_ context.Context) ([]tournament.KnockoutMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tournament.KnockoutMatch, 0, len(r.knockout))
	for _, item := range r.knockout {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (r *TournamentRepository) SaveKnockoutSlots(_ context.Context, matches []tournament.KnockoutMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range matches {
		current, ok := r.knockout[item.ID]
		if !ok {
			continue
		}
		mergeSlot(&current.Home, item.Home)
		mergeSlot(&current.Away, item.Away)
		r.knockout[item.ID] = current
	}
	return nil
}

func (r *TournamentRepository) SaveResults(_ context.Context, updates []tournament.ResultUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range updates {
		if item.Knockout {
			current, ok := r.knockout[item.MatchID]
			if !ok || current.Finished() {
				continue
			}
			if current.ExternalID == 0 {
				current.ExternalID = item.ExternalID
			}
			current.Status = item.Status
			current.HomeGoals = copyInt(item.HomeGoals)
			current.AwayGoals = copyInt(item.AwayGoals)
			current.WinnerTeamID = item.WinnerTeamID
			r.knockout[item.MatchID] = current
			continue
		}

		for i := range r.matches {
			current := &r.matches[i]
			if current.ID != item.MatchID || current.Finished() {
				continue
			}
			if current.ExternalID == 0 {
				current.ExternalID = item.ExternalID
			}
			current.Status = item.Status
			current.HomeGoals = copyInt(item.HomeGoals)
			current.AwayGoals = copyInt(item.AwayGoals)
			current.HomeCards = item.HomeCards
			current.AwayCards = item.AwayCards
			break
		}
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func mergeSlot(current *tournament.KnockoutSlot, incoming tournament.KnockoutSlot) {
	if current.Resolved() || strings.TrimSpace(incoming.TeamID) == "" {
		return
	}
	current.TeamID = incoming.TeamID
	current.ResolvedAt = incoming.ResolvedAt
}
