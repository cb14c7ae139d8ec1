package teamstats

import (
	"math"
	"sort"
	"strings"
)

// ComputeMetrics aggregates recent matches. Matches without expected-goals
// data lower completeness and confidence instead of failing.
func ComputeMetrics(matches []RecentMatch) Metrics {
	if len(matches) == 0 {
		return Metrics{
			Confidence:   ConfidenceLow,
			FallbackMode: FallbackModeTraditionalForm,
		}
	}

	ordered := make([]RecentMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PlayedAt.After(ordered[j].PlayedAt)
	})

	var (
		xgSum       float64
		xgCount     int
		cleanSheets int
		form        = make([]string, 0, len(ordered))
	)
	for _, item := range ordered {
		if item.XG != nil {
			xgSum += *item.XG
			xgCount++
		}
		if item.GoalsAgainst == 0 {
			cleanSheets++
		}
		form = append(form, item.ResultCode())
	}

	out := Metrics{
		CleanSheets:      cleanSheets,
		FormString:       strings.Join(form, "-"),
		MatchesAnalyzed:  len(ordered),
		DataCompleteness: roundTo(float64(xgCount)/float64(len(ordered)), 2),
	}
	if xgCount > 0 {
		avg := roundTo(xgSum/float64(xgCount), 2)
		out.AvgXG = &avg
	} else {
		out.FallbackMode = FallbackModeTraditionalForm
	}
	out.Confidence = confidenceFor(float64(xgCount) / float64(len(ordered)))

	return out
}

func confidenceFor(completeness float64) Confidence {
	switch {
	case completeness >= 1:
		return ConfidenceHigh
	case completeness >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
