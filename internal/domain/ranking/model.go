package ranking

import (
	"context"
	"strings"
	"time"
)

type Ranking struct {
	Rank          int
	TeamName      string
	FIFACode      string
	Confederation string
	Points        float64
	PreviousRank  int
	FetchedAt     time.Time
}

// Key is the lookup key used to match rankings to tournament teams.
func Key(fifaCode, teamName string) string {
	if code := strings.ToUpper(strings.TrimSpace(fifaCode)); code != "" {
		return code
	}
	return strings.ToLower(strings.TrimSpace(teamName))
}

type Repository interface {
	ListAll(ctx context.Context) ([]Ranking, error)
	ReplaceAll(ctx context.Context, items []Ranking) error
}

// Provider fetches the current published world ranking.
type Provider interface {
	FetchLatest(ctx context.Context) ([]Ranking, error)
}
