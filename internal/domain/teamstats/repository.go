package teamstats

import "context"

type Repository interface {
	GetByTeam(ctx context.Context, teamID string) (Snapshot, bool, error)
	Upsert(ctx context.Context, snapshot Snapshot) error
}

// FetchResult is one provider answer for a team's recent fixtures. RawPayload
// is the undecoded response body, kept for the archive.
type FetchResult struct {
	Matches    []RecentMatch
	RawPayload []byte
}

// Provider reads recent finished fixtures for a team from the statistics API.
type Provider interface {
	FetchRecentMatches(ctx context.Context, externalTeamID int64, limit int) (FetchResult, error)
}
