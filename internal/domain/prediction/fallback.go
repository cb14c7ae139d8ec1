package prediction

import (
	"fmt"
	"math"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
)

const (
	drawThreshold        = 0.3
	missingDataDrawProb  = 0.33
	closeMatchDrawProb   = 0.4
	baseWinProbability   = 0.5
	probabilityPerXGUnit = 0.1
	maxFallbackWinProb   = 0.75
)

// RuleBased predicts from average expected goals alone. It is deterministic
// and always returns the lowest confidence.
func RuleBased(homeName, awayName string, home, away teamstats.Snapshot) Prediction {
	if home.AvgXG == nil || away.AvgXG == nil {
		return Prediction{
			Winner:             WinnerDraw,
			WinProbability:     missingDataDrawProb,
			PredictedHomeScore: 1,
			PredictedAwayScore: 1,
			Reasoning:          "Insufficient expected-goals data for a comparison",
			Confidence:         ConfidenceLow,
		}
	}

	homeXG := *home.AvgXG
	awayXG := *away.AvgXG
	diff := homeXG - awayXG
	if math.Abs(diff) < drawThreshold {
		return Prediction{
			Winner:             WinnerDraw,
			WinProbability:     closeMatchDrawProb,
			PredictedHomeScore: 1,
			PredictedAwayScore: 1,
			Reasoning:          fmt.Sprintf("Evenly matched teams (xG diff: %.2f)", math.Abs(diff)),
			Confidence:         ConfidenceLow,
		}
	}

	probability := math.Min(baseWinProbability+math.Abs(diff)*probabilityPerXGUnit, maxFallbackWinProb)
	probability = math.Round(probability*100) / 100

	if diff > 0 {
		return Prediction{
			Winner:             homeName,
			WinProbability:     probability,
			PredictedHomeScore: 2,
			PredictedAwayScore: 1,
			Reasoning:          fmt.Sprintf("Higher average xG (%.2f vs %.2f)", homeXG, awayXG),
			Confidence:         ConfidenceLow,
		}
	}
	return Prediction{
		Winner:             awayName,
		WinProbability:     probability,
		PredictedHomeScore: 1,
		PredictedAwayScore: 2,
		Reasoning:          fmt.Sprintf("Higher average xG (%.2f vs %.2f)", awayXG, homeXG),
		Confidence:         ConfidenceLow,
	}
}
