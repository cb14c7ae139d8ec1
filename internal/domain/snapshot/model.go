package snapshot

import (
	"errors"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/bracket"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/standing"
)

// MaxDocumentBytes is the hard ceiling for one encoded document. History never
// goes inline; it lives in per-match logs.
const MaxDocumentBytes = 1_000_000

var ErrDocumentTooLarge = errors.New("snapshot document exceeds size ceiling")

type BracketSide struct {
	Placeholder string `json:"placeholder"`
	TeamID      string `json:"team_id,omitempty"`
	TeamName    string `json:"team_name,omitempty"`
}

type BracketMatch struct {
	MatchID   string      `json:"match_id"`
	Number    int         `json:"match_number"`
	Stage     string      `json:"stage"`
	Venue     string      `json:"venue,omitempty"`
	KickoffAt time.Time   `json:"kickoff_at"`
	Home      BracketSide `json:"home"`
	Away      BracketSide `json:"away"`
}

type MatchPrediction struct {
	MatchID     string `json:"match_id"`
	MatchNumber int    `json:"match_number"`
	Stage       string `json:"stage"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	prediction.Prediction
	Source      prediction.Source `json:"source"`
	Fingerprint string            `json:"fingerprint"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Document is the single published view of the tournament.
type Document struct {
	RunID       string                    `json:"run_id"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Groups      map[string]standing.Table `json:"groups"`
	ThirdPlaced []standing.Row            `json:"third_placed"`
	Bracket     []BracketMatch            `json:"bracket"`
	Unresolved  []bracket.UnresolvedSlot  `json:"unresolved_slots"`
	Predictions []MatchPrediction         `json:"predictions"`
}
