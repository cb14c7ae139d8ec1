package standing

import (
	"bytes"
	"crypto/sha256"
	"sort"
	"strings"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

const (
	pointsWin  = 3
	pointsDraw = 1
)

// Calculate builds the ranked table of one group. Teams without results still
// get a zero row so the table always lists the whole group.
func Calculate(group string, teams []tournament.Team, results []tournament.MatchResult) Table {
	rows := make(map[string]*Row, len(teams))
	order := make([]string, 0, len(teams))
	ensure := func(teamID, name string) *Row {
		if row, ok := rows[teamID]; ok {
			return row
		}
		if strings.TrimSpace(name) == "" {
			name = teamID
		}
		row := &Row{TeamID: teamID, TeamName: name, Group: group}
		rows[teamID] = row
		order = append(order, teamID)
		return row
	}

	for _, item := range teams {
		ensure(item.ID, item.Name)
	}

	cards := make(map[string]tournament.Cards, len(teams))
	for _, result := range results {
		if result.Group != "" && result.Group != group {
			continue
		}
		home := ensure(result.HomeTeamID, "")
		away := ensure(result.AwayTeamID, "")
		applyResult(home, away, result.HomeGoals, result.AwayGoals)
		cards[home.TeamID] = cards[home.TeamID].Add(result.HomeCards)
		cards[away.TeamID] = cards[away.TeamID].Add(result.AwayCards)
	}

	out := make([]Row, 0, len(order))
	for _, teamID := range order {
		row := rows[teamID]
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
		row.FairPlayPoints = cards[teamID].FairPlayPoints()
		out = append(out, *row)
	}

	Sort(out)
	for idx := range out {
		out[idx].Rank = idx + 1
	}

	return Table{
		Group:    group,
		Rows:     out,
		Complete: isComplete(out),
	}
}

func applyResult(home, away *Row, homeGoals, awayGoals int) {
	home.Played++
	away.Played++
	home.GoalsFor += homeGoals
	home.GoalsAgainst += awayGoals
	away.GoalsFor += awayGoals
	away.GoalsAgainst += homeGoals

	switch {
	case homeGoals > awayGoals:
		home.Won++
		home.Points += pointsWin
		away.Lost++
	case awayGoals > homeGoals:
		away.Won++
		away.Points += pointsWin
		home.Lost++
	default:
		home.Draw++
		away.Draw++
		home.Points += pointsDraw
		away.Points += pointsDraw
	}
}

func isComplete(rows []Row) bool {
	if len(rows) < 2 {
		return false
	}
	want := len(rows) - 1
	for _, row := range rows {
		if row.Played < want {
			return false
		}
	}
	return true
}

// Sort orders rows best first. The sort is stable and total, so equal inputs
// always give the same order.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return Compare(rows[i], rows[j]) < 0
	})
}

// Compare returns a negative value when a ranks ahead of b. Criteria in order:
// points, goal difference, goals scored, fair-play points, then the tie-break
// key of the team name (lower key ranks ahead).
func Compare(a, b Row) int {
	if a.Points != b.Points {
		return b.Points - a.Points
	}
	if a.GoalDifference != b.GoalDifference {
		return b.GoalDifference - a.GoalDifference
	}
	if a.GoalsFor != b.GoalsFor {
		return b.GoalsFor - a.GoalsFor
	}
	if a.FairPlayPoints != b.FairPlayPoints {
		return b.FairPlayPoints - a.FairPlayPoints
	}

	keyA := TieBreakKey(a.TeamName)
	keyB := TieBreakKey(b.TeamName)
	if cmp := bytes.Compare(keyA[:], keyB[:]); cmp != 0 {
		return cmp
	}
	return strings.Compare(a.TeamID, b.TeamID)
}

// TieBreakKey is the SHA-256 digest of the team name. Compared as a big-endian
// integer it replaces the drawing of lots with a stable ordering.
func TieBreakKey(teamName string) [sha256.Size]byte {
	return sha256.Sum256([]byte(strings.TrimSpace(teamName)))
}
