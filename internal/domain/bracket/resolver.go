package bracket

import (
	"sort"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/standing"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

const DefaultQualifyingThirds = 8

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

const (
	ReasonGroupIncomplete    = "group_incomplete"
	ReasonUnknownGroup       = "unknown_group"
	ReasonThirdsPending      = "third_place_ranking_pending"
	ReasonNoQualifiedThird   = "no_qualified_third"
	ReasonMatchPending       = "match_pending"
	ReasonUnknownPlaceholder = "unknown_placeholder"
)

type UnresolvedSlot struct {
	MatchID     string `json:"match_id"`
	MatchNumber int    `json:"match_number"`
	Side        Side   `json:"side"`
	Placeholder string `json:"placeholder"`
	Reason      string `json:"reason"`
}

type Result struct {
	Matches []tournament.KnockoutMatch
	// ThirdPlaced is the cross-group ranking of qualified third-placed rows,
	// empty until every group is complete.
	ThirdPlaced   []standing.Row
	Unresolved    []UnresolvedSlot
	NewlyResolved int
}

type Resolver struct {
	qualifyingThirds int
	now              func() time.Time
}

func NewResolver(qualifyingThirds int) *Resolver {
	if qualifyingThirds <= 0 {
		qualifyingThirds = DefaultQualifyingThirds
	}
	return &Resolver{
		qualifyingThirds: qualifyingThirds,
		now:              time.Now,
	}
}

// RankThirdPlaced orders every group's third-placed row with the group
// comparator and keeps the best n.
func RankThirdPlaced(tables map[string]standing.Table, n int) []standing.Row {
	rows := make([]standing.Row, 0, len(tables))
	for _, group := range sortedGroups(tables) {
		if row, ok := tables[group].At(3); ok {
			rows = append(rows, row)
		}
	}
	standing.Sort(rows)
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Resolve fills unresolved slots of the skeleton. Slots that already carry a
// team are left untouched, so re-running with unchanged tables is a no-op.
func (r *Resolver) Resolve(tables map[string]standing.Table, skeleton []tournament.KnockoutMatch) Result {
	now := r.now().UTC()

	matches := make([]tournament.KnockoutMatch, len(skeleton))
	copy(matches, skeleton)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Number < matches[j].Number
	})

	state := &resolveState{
		tables:       tables,
		allComplete:  allComplete(tables),
		thirdByGroup: make(map[string]string),
		usedThirds:   make(map[string]struct{}),
		thirdSlots:   make(map[slotKey]string),
		byNumber:     make(map[int]int, len(matches)),
	}

	var thirds []standing.Row
	if state.allComplete {
		thirds = RankThirdPlaced(tables, r.qualifyingThirds)
		for _, row := range thirds {
			state.thirdByGroup[row.Group] = row.TeamID
		}
	}

	for idx, item := range matches {
		state.byNumber[item.Number] = idx
		for _, slot := range []tournament.KnockoutSlot{item.Home, item.Away} {
			if !slot.Resolved() {
				continue
			}
			if rule, err := ParsePlaceholder(slot.Placeholder); err == nil && rule.Kind == RuleThirdPlaced {
				state.usedThirds[slot.TeamID] = struct{}{}
			}
		}
	}

	if state.allComplete {
		state.assignThirds(matches)
	}

	out := Result{ThirdPlaced: thirds}
	for idx := range matches {
		for _, side := range []Side{SideHome, SideAway} {
			slot := slotOf(&matches[idx], side)
			if slot.Resolved() {
				continue
			}

			teamID, reason := state.resolve(slotKey{index: idx, side: side}, slot.Placeholder, matches)
			if teamID == "" {
				out.Unresolved = append(out.Unresolved, UnresolvedSlot{
					MatchID:     matches[idx].ID,
					MatchNumber: matches[idx].Number,
					Side:        side,
					Placeholder: slot.Placeholder,
					Reason:      reason,
				})
				continue
			}

			resolvedAt := now
			slot.TeamID = teamID
			slot.ResolvedAt = &resolvedAt
			out.NewlyResolved++
		}
	}

	out.Matches = matches
	return out
}

type slotKey struct {
	index int
	side  Side
}

type resolveState struct {
	tables       map[string]standing.Table
	allComplete  bool
	thirdByGroup map[string]string
	// usedThirds holds teams already sitting in a third-place slot.
	usedThirds map[string]struct{}
	thirdSlots map[slotKey]string
	byNumber   map[int]int
}

type thirdCandidate struct {
	key   slotKey
	teams []string
}

// assignThirds places qualified third-placed teams into every open
// third-place slot at once, as a maximum bipartite matching between slots and
// teams. Slots are visited in match order and each slot's groups in listed
// order, so identical inputs always give the same assignment. Teams already
// placed by an earlier run stay where they are and are not offered again.
func (s *resolveState) assignThirds(matches []tournament.KnockoutMatch) {
	var slots []thirdCandidate
	for idx := range matches {
		for _, side := range []Side{SideHome, SideAway} {
			slot := slotOf(&matches[idx], side)
			if slot.Resolved() {
				continue
			}
			rule, err := ParsePlaceholder(slot.Placeholder)
			if err != nil || rule.Kind != RuleThirdPlaced {
				continue
			}
			candidate := thirdCandidate{key: slotKey{index: idx, side: side}}
			for _, group := range rule.Groups {
				teamID, ok := s.thirdByGroup[group]
				if !ok {
					continue
				}
				if _, used := s.usedThirds[teamID]; used {
					continue
				}
				candidate.teams = append(candidate.teams, teamID)
			}
			slots = append(slots, candidate)
		}
	}

	owner := make(map[string]int, len(slots))
	for i := range slots {
		augmentThird(i, slots, owner, make(map[string]struct{}))
	}
	for teamID, i := range owner {
		s.thirdSlots[slots[i].key] = teamID
	}
}

// augmentThird looks for an alternating path that frees a team for slot i.
func augmentThird(i int, slots []thirdCandidate, owner map[string]int, visited map[string]struct{}) bool {
	for _, teamID := range slots[i].teams {
		if _, seen := visited[teamID]; seen {
			continue
		}
		visited[teamID] = struct{}{}

		current, taken := owner[teamID]
		if !taken || augmentThird(current, slots, owner, visited) {
			owner[teamID] = i
			return true
		}
	}
	return false
}

func (s *resolveState) resolve(key slotKey, placeholder string, matches []tournament.KnockoutMatch) (string, string) {
	rule, err := ParsePlaceholder(placeholder)
	if err != nil {
		return "", ReasonUnknownPlaceholder
	}

	switch rule.Kind {
	case RuleGroupWinner, RuleGroupRunnerUp:
		table, ok := s.tables[rule.Group]
		if !ok {
			return "", ReasonUnknownGroup
		}
		if !table.Complete {
			return "", ReasonGroupIncomplete
		}
		rank := 1
		if rule.Kind == RuleGroupRunnerUp {
			rank = 2
		}
		row, ok := table.At(rank)
		if !ok {
			return "", ReasonGroupIncomplete
		}
		return row.TeamID, ""
	case RuleThirdPlaced:
		if !s.allComplete {
			return "", ReasonThirdsPending
		}
		if teamID, ok := s.thirdSlots[key]; ok {
			return teamID, ""
		}
		return "", ReasonNoQualifiedThird
	case RuleMatchWinner, RuleMatchLoser:
		idx, ok := s.byNumber[rule.MatchNumber]
		if !ok || !matches[idx].Finished() {
			return "", ReasonMatchPending
		}
		if rule.Kind == RuleMatchWinner {
			return matches[idx].WinnerTeamID, ""
		}
		if loser := matches[idx].LoserTeamID(); loser != "" {
			return loser, ""
		}
		return "", ReasonMatchPending
	default:
		return "", ReasonUnknownPlaceholder
	}
}

func slotOf(match *tournament.KnockoutMatch, side Side) *tournament.KnockoutSlot {
	if side == SideAway {
		return &match.Away
	}
	return &match.Home
}

func allComplete(tables map[string]standing.Table) bool {
	if len(tables) == 0 {
		return false
	}
	for _, table := range tables {
		if !table.Complete {
			return false
		}
	}
	return true
}

func sortedGroups(tables map[string]standing.Table) []string {
	out := make([]string, 0, len(tables))
	for group := range tables {
		out = append(out, group)
	}
	sort.Strings(out)
	return out
}
