package tournament

import (
	"strings"
	"time"
)

type Stage string

const (
	StageGroup        Stage = "group"
	StageRoundOf32    Stage = "round_of_32"
	StageRoundOf16    Stage = "round_of_16"
	StageQuarterFinal Stage = "quarter_final"
	StageSemiFinal    Stage = "semi_final"
	StageThirdPlace   Stage = "third_place"
	StageFinal        Stage = "final"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "SCHEDULED"
	MatchStatusLive      MatchStatus = "LIVE"
	MatchStatusFinished  MatchStatus = "FINISHED"
)

type Team struct {
	ID         string
	Name       string
	FIFACode   string
	Group      string
	ExternalID int64
}

// Cards are disciplinary events recorded against one team in one match.
type Cards struct {
	Yellow       int
	SecondYellow int
	DirectRed    int
}

func (c Cards) Add(other Cards) Cards {
	return Cards{
		Yellow:       c.Yellow + other.Yellow,
		SecondYellow: c.SecondYellow + other.SecondYellow,
		DirectRed:    c.DirectRed + other.DirectRed,
	}
}

// FairPlayPoints is zero or negative; closer to zero is better.
func (c Cards) FairPlayPoints() int {
	return -c.Yellow - 2*c.SecondYellow - 4*c.DirectRed
}

// Match is a scheduled or played fixture. Group matches carry team ids from
// tournament setup; knockout matches are described by KnockoutMatch instead.
type Match struct {
	ID         string
	Number     int
	Stage      Stage
	Group      string
	HomeTeamID string
	AwayTeamID string
	Venue      string
	KickoffAt  time.Time
	Status     MatchStatus
	HomeGoals  *int
	AwayGoals  *int
	HomeCards  Cards
	AwayCards  Cards
	ExternalID int64
}

func (m Match) Finished() bool {
	return m.Status == MatchStatusFinished && m.HomeGoals != nil && m.AwayGoals != nil
}

// Result returns the immutable result row for a finished group match.
func (m Match) Result() (MatchResult, bool) {
	if m.Stage != StageGroup || !m.Finished() {
		return MatchResult{}, false
	}
	return MatchResult{
		MatchID:    m.ID,
		Group:      m.Group,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		HomeGoals:  *m.HomeGoals,
		AwayGoals:  *m.AwayGoals,
		HomeCards:  m.HomeCards,
		AwayCards:  m.AwayCards,
	}, true
}

type MatchResult struct {
	MatchID    string
	Group      string
	HomeTeamID string
	AwayTeamID string
	HomeGoals  int
	AwayGoals  int
	HomeCards  Cards
	AwayCards  Cards
}

// KnockoutSlot is one side of a knockout match. Placeholder never changes;
// TeamID is set once when the slot resolves.
type KnockoutSlot struct {
	Placeholder string
	TeamID      string
	ResolvedAt  *time.Time
}

func (s KnockoutSlot) Resolved() bool {
	return strings.TrimSpace(s.TeamID) != ""
}

type KnockoutMatch struct {
	ID        string
	Number    int
	Stage     Stage
	Venue     string
	KickoffAt time.Time
	Home      KnockoutSlot
	Away      KnockoutSlot
	Status    MatchStatus
	HomeGoals *int
	AwayGoals *int
	// WinnerTeamID is set for finished matches, including those decided on penalties.
	WinnerTeamID string
	ExternalID   int64
}

func (m KnockoutMatch) Finished() bool {
	return m.Status == MatchStatusFinished && strings.TrimSpace(m.WinnerTeamID) != ""
}

func (m KnockoutMatch) LoserTeamID() string {
	if !m.Finished() {
		return ""
	}
	switch m.WinnerTeamID {
	case m.Home.TeamID:
		return m.Away.TeamID
	case m.Away.TeamID:
		return m.Home.TeamID
	default:
		return ""
	}
}

// Dataset is everything one pipeline run reads from the tournament store.
type Dataset struct {
	Teams    []Team
	Matches  []Match
	Knockout []KnockoutMatch
}

func (d Dataset) TeamsByID() map[string]Team {
	out := make(map[string]Team, len(d.Teams))
	for _, item := range d.Teams {
		out[item.ID] = item
	}
	return out
}

func (d Dataset) TeamsByGroup() map[string][]Team {
	out := make(map[string][]Team)
	for _, item := range d.Teams {
		group := strings.TrimSpace(item.Group)
		if group == "" {
			continue
		}
		out[group] = append(out[group], item)
	}
	return out
}

func (d Dataset) ResultsByGroup() map[string][]MatchResult {
	out := make(map[string][]MatchResult)
	for _, item := range d.Matches {
		result, ok := item.Result()
		if !ok {
			continue
		}
		out[result.Group] = append(out[result.Group], result)
	}
	return out
}

// ResultUpdate is the mutable part of a stored match as reported by the
// results provider. Knockout selects the knockout table.
type ResultUpdate struct {
	MatchID      string
	Knockout     bool
	ExternalID   int64
	Status       MatchStatus
	HomeGoals    *int
	AwayGoals    *int
	HomeCards    Cards
	AwayCards    Cards
	WinnerTeamID string
}

// ProviderFixture is one fixture from the results provider, keyed by the
// provider's own fixture and team ids.
type ProviderFixture struct {
	ExternalID         int64
	Status             MatchStatus
	HomeExternalTeamID int64
	AwayExternalTeamID int64
	HomeGoals          *int
	AwayGoals          *int
	// WinnerExternalTeamID is set once the provider names a winner, including
	// after extra time or penalties.
	WinnerExternalTeamID int64
}

type FixtureFeed struct {
	Fixtures   []ProviderFixture
	RawPayload []byte
}
