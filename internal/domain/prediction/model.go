package prediction

import (
	"strings"
	"time"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// WinnerDraw is the winner value of a predicted draw.
const WinnerDraw = "Draw"

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "rule_based"
)

// Prediction is the structured answer for one match. Field tags are used to
// reject malformed AI output.
type Prediction struct {
	Winner             string     `json:"winner" validate:"required"`
	WinProbability     float64    `json:"win_probability" validate:"gte=0,lte=1"`
	PredictedHomeScore int        `json:"predicted_home_score" validate:"gte=0"`
	PredictedAwayScore int        `json:"predicted_away_score" validate:"gte=0"`
	Reasoning          string     `json:"reasoning" validate:"required"`
	Confidence         Confidence `json:"confidence" validate:"oneof=low medium high"`
}

// CacheEntry is reusable as long as Fingerprint matches the fingerprint of the
// teams' current statistics. GeneratedAt is informational only.
type CacheEntry struct {
	MatchID     string     `json:"match_id"`
	Prediction  Prediction `json:"prediction"`
	Fingerprint string     `json:"fingerprint"`
	Source      Source     `json:"source"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type HistoryEntry struct {
	MatchID    string    `json:"match_id"`
	Winner     string    `json:"winner"`
	Reasoning  string    `json:"reasoning"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DiffersFrom reports whether the candidate changes winner or reasoning
// compared to the latest stored entry.
func (h HistoryEntry) DiffersFrom(latest HistoryEntry) bool {
	return strings.TrimSpace(h.Winner) != strings.TrimSpace(latest.Winner) ||
		strings.TrimSpace(h.Reasoning) != strings.TrimSpace(latest.Reasoning)
}
