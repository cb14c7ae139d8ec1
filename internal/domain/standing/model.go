package standing

// Row is one team's line in a group table. Rows are derived from match results
// on every run and are never a source of truth.
type Row struct {
	TeamID         string `json:"team_id"`
	TeamName       string `json:"team_name"`
	Group          string `json:"group"`
	Rank           int    `json:"rank"`
	Played         int    `json:"played"`
	Won            int    `json:"won"`
	Draw           int    `json:"draw"`
	Lost           int    `json:"lost"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
	Points         int    `json:"points"`
	FairPlayPoints int    `json:"fair_play_points"`
}

type Table struct {
	Group string `json:"group"`
	Rows  []Row  `json:"rows"`
	// Complete is true when every team has played every other team in the group.
	Complete bool `json:"complete"`
}

// At returns the row at a 1-based rank.
func (t Table) At(rank int) (Row, bool) {
	if rank < 1 || rank > len(t.Rows) {
		return Row{}, false
	}
	return t.Rows[rank-1], true
}
