package prediction

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
)

// Fingerprint hashes the statistical content of both snapshots, home first.
// Timestamps are excluded: a refetch that returns identical numbers keeps the
// cached prediction valid.
func Fingerprint(home, away teamstats.Snapshot) string {
	var buf strings.Builder
	writeSnapshot(&buf, "home", home)
	writeSnapshot(&buf, "away", away)

	sum := sha256.Sum256([]byte(buf.String()))
	return hex.EncodeToString(sum[:])
}

func writeSnapshot(buf *strings.Builder, side string, snap teamstats.Snapshot) {
	fields := []string{
		side,
		snap.TeamID,
		formatXG(snap.AvgXG),
		strconv.Itoa(snap.CleanSheets),
		snap.FormString,
		strconv.Itoa(snap.MatchesAnalyzed),
		strconv.FormatFloat(snap.DataCompleteness, 'f', 4, 64),
		string(snap.Confidence),
		snap.FallbackMode,
		string(snap.Source),
	}
	// Length prefixes keep field boundaries unambiguous.
	for _, field := range fields {
		buf.WriteString(strconv.Itoa(len(field)))
		buf.WriteByte(':')
		buf.WriteString(field)
		buf.WriteByte(';')
	}
}

func formatXG(value *float64) string {
	if value == nil {
		return "null"
	}
	return strconv.FormatFloat(*value, 'f', 4, 64)
}
