package teamstats

import (
	"time"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type Source string

const (
	SourceProvider Source = "provider"
	// SourceDefault marks a low-confidence placeholder cached after the
	// provider could not be reached.
	SourceDefault Source = "default"
)

// FallbackModeTraditionalForm is set when no expected-goals data exists and
// consumers must rely on results and form only.
const FallbackModeTraditionalForm = "traditional_form"

// RecentMatch is one finished fixture as seen from the team's perspective.
type RecentMatch struct {
	FixtureID    int64
	PlayedAt     time.Time
	Opponent     string
	IsHome       bool
	GoalsFor     int
	GoalsAgainst int
	XG           *float64
}

func (m RecentMatch) ResultCode() string {
	switch {
	case m.GoalsFor > m.GoalsAgainst:
		return "W"
	case m.GoalsFor < m.GoalsAgainst:
		return "L"
	default:
		return "D"
	}
}

type Metrics struct {
	AvgXG            *float64   `json:"avg_xg"`
	CleanSheets      int        `json:"clean_sheets"`
	FormString       string     `json:"form_string"`
	MatchesAnalyzed  int        `json:"matches_analyzed"`
	DataCompleteness float64    `json:"data_completeness"`
	Confidence       Confidence `json:"confidence"`
	FallbackMode     string     `json:"fallback_mode,omitempty"`
}

// Snapshot is the cached per-team statistics. ExpiresAt is always
// FetchedAt plus the TTL chosen when the snapshot was stored.
type Snapshot struct {
	TeamID string `json:"team_id"`
	Metrics
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSnapshot(teamID string, metrics Metrics, source Source, fetchedAt time.Time, ttl time.Duration) Snapshot {
	fetchedAt = fetchedAt.UTC()
	return Snapshot{
		TeamID:    teamID,
		Metrics:   metrics,
		Source:    source,
		FetchedAt: fetchedAt,
		ExpiresAt: fetchedAt.Add(ttl),
	}
}

// DefaultSnapshot is stored when every fetch attempt failed.
func DefaultSnapshot(teamID string, fetchedAt time.Time, ttl time.Duration) Snapshot {
	return NewSnapshot(teamID, Metrics{
		Confidence:   ConfidenceLow,
		FallbackMode: FallbackModeTraditionalForm,
	}, SourceDefault, fetchedAt, ttl)
}

func (s Snapshot) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

func (s Snapshot) Degraded() bool {
	return s.Source == SourceDefault
}
