package tournament

import "context"

type Repository interface {
	ListTeams(ctx context.Context) ([]Team, error)
	ListMatches(ctx context.Context) ([]Match, error)
	ListKnockoutMatches(ctx context.Context) ([]KnockoutMatch, error)
	// SaveKnockoutSlots persists newly resolved slots. Implementations must not
	// overwrite a slot that already has a team.
	SaveKnockoutSlots(ctx context.Context, matches []KnockoutMatch) error
	// SaveResults applies provider updates. A match that is already finished
	// is left as it is.
	SaveResults(ctx context.Context, updates []ResultUpdate) error
}

// FixtureProvider reads fixtures and disciplinary events for one competition.
type FixtureProvider interface {
	FetchFixtures(ctx context.Context, leagueID int64, season int) (FixtureFeed, error)
	// FetchCards returns the cards of a fixture keyed by provider team id.
	FetchCards(ctx context.Context, externalFixtureID int64) (map[int64]Cards, error)
}
