package bracket

import (
	"errors"
	"fmt"
	"math/bits"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/standing"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

func completeTable(group string, thirdPoints int) standing.Table {
	rows := []standing.Row{
		{TeamID: group + "1", TeamName: "Team " + group + "1", Group: group, Rank: 1, Played: 3, Points: 9},
		{TeamID: group + "2", TeamName: "Team " + group + "2", Group: group, Rank: 2, Played: 3, Points: 6},
		{TeamID: group + "3", TeamName: "Team " + group + "3", Group: group, Rank: 3, Played: 3, Points: thirdPoints},
		{TeamID: group + "4", TeamName: "Team " + group + "4", Group: group, Rank: 4, Played: 3, Points: 0},
	}
	return standing.Table{Group: group, Rows: rows, Complete: true}
}

func fourGroups() map[string]standing.Table {
	return map[string]standing.Table{
		"A": completeTable("A", 4),
		"B": completeTable("B", 3),
		"C": completeTable("C", 2),
		"D": completeTable("D", 1),
	}
}

func newTestResolver(thirds int) *Resolver {
	r := NewResolver(thirds)
	fixed := time.Date(2026, 6, 28, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r
}

func knockout(number int, home, away string) tournament.KnockoutMatch {
	return tournament.KnockoutMatch{
		ID:     fmt.Sprintf("ko-%d", number),
		Number: number,
		Stage:  tournament.StageRoundOf32,
		Home:   tournament.KnockoutSlot{Placeholder: home},
		Away:   tournament.KnockoutSlot{Placeholder: away},
	}
}

func TestResolve_GroupWinnersAndRunnersUp(t *testing.T) {
	t.Parallel()

	r := newTestResolver(2)
	result := r.Resolve(fourGroups(), []tournament.KnockoutMatch{
		knockout(1, "Winner A", "Runner-up B"),
		knockout(2, "Winner Group C", "Runner-up D"),
	})

	if len(result.Unresolved) != 0 {
		t.Fatalf("expected no unresolved slots, got=%+v", result.Unresolved)
	}
	if result.NewlyResolved != 4 {
		t.Fatalf("unexpected newly resolved count: got=%d want=4", result.NewlyResolved)
	}
	if got := result.Matches[0].Home.TeamID; got != "A1" {
		t.Fatalf("unexpected home team: got=%s want=A1", got)
	}
	if got := result.Matches[0].Away.TeamID; got != "B2" {
		t.Fatalf("unexpected away team: got=%s want=B2", got)
	}
	if result.Matches[1].Home.ResolvedAt == nil {
		t.Fatalf("expected resolved_at to be set")
	}
}

func TestResolve_ThirdPlacedSlotsAreNotAssignedTwice(t *testing.T) {
	t.Parallel()

	r := newTestResolver(2)
	result := r.Resolve(fourGroups(), []tournament.KnockoutMatch{
		knockout(1, "Winner A", "3rd Place A/B"),
		knockout(2, "Winner B", "3rd Place A/C"),
		knockout(3, "Winner C", "3rd Place B/D"),
	})

	if len(result.ThirdPlaced) != 2 {
		t.Fatalf("unexpected qualified thirds: got=%d want=2", len(result.ThirdPlaced))
	}
	if result.ThirdPlaced[0].TeamID != "A3" || result.ThirdPlaced[1].TeamID != "B3" {
		t.Fatalf("unexpected third ranking: %+v", result.ThirdPlaced)
	}
	if got := result.Matches[0].Away.TeamID; got != "B3" {
		t.Fatalf("unexpected first third slot: got=%s want=B3", got)
	}
	if got := result.Matches[1].Away.TeamID; got != "A3" {
		t.Fatalf("unexpected second third slot: got=%s want=A3", got)
	}
	if result.Matches[2].Away.Resolved() {
		t.Fatalf("expected third third slot unresolved, got=%s", result.Matches[2].Away.TeamID)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0].Reason != ReasonNoQualifiedThird || result.Unresolved[0].MatchNumber != 3 {
		t.Fatalf("unexpected unresolved slots: %+v", result.Unresolved)
	}
}

func TestResolve_ThirdPlacedOverlappingCandidates(t *testing.T) {
	t.Parallel()

	r := newTestResolver(2)
	result := r.Resolve(fourGroups(), []tournament.KnockoutMatch{
		knockout(1, "Winner C", "3rd Place A/B"),
		knockout(2, "Winner D", "3rd Place A"),
	})

	if len(result.Unresolved) != 0 {
		t.Fatalf("expected every third slot resolved, got=%+v", result.Unresolved)
	}
	if got := result.Matches[0].Away.TeamID; got != "B3" {
		t.Fatalf("unexpected first third slot: got=%s want=B3", got)
	}
	if got := result.Matches[1].Away.TeamID; got != "A3" {
		t.Fatalf("unexpected second third slot: got=%s want=A3", got)
	}
}

func TestResolve_ThirdPlacedKeepsEarlierAssignments(t *testing.T) {
	t.Parallel()

	pinned := knockout(1, "Winner C", "3rd Place A/B")
	pinned.Away.TeamID = "A3"
	open := knockout(2, "Winner D", "3rd Place A/B")

	r := newTestResolver(2)
	result := r.Resolve(fourGroups(), []tournament.KnockoutMatch{pinned, open})

	if got := result.Matches[0].Away.TeamID; got != "A3" {
		t.Fatalf("pinned slot changed: got=%s want=A3", got)
	}
	if got := result.Matches[1].Away.TeamID; got != "B3" {
		t.Fatalf("unexpected open slot: got=%s want=B3", got)
	}
}

// roundOf32Thirds lists the 2026 round-of-32 fixtures that take a
// third-placed team, with the groups each may draw from.
var roundOf32Thirds = []struct {
	number int
	winner string
	groups string
}{
	{74, "E", "A/B/C/D/F"},
	{77, "I", "C/D/F/G/H"},
	{79, "A", "C/E/F/H/I"},
	{80, "L", "E/H/I/J/K"},
	{81, "D", "B/E/F/I/J"},
	{82, "G", "A/E/H/I/J"},
	{85, "B", "E/F/G/I/J"},
	{87, "K", "D/E/I/J/L"},
}

func TestResolve_ThirdPlacedEveryQualifierCombination(t *testing.T) {
	t.Parallel()

	const groups = "ABCDEFGHIJKL"
	skeleton := make([]tournament.KnockoutMatch, 0, len(roundOf32Thirds))
	for _, item := range roundOf32Thirds {
		skeleton = append(skeleton, knockout(item.number, "Winner "+item.winner, "3rd Place "+item.groups))
	}

	r := newTestResolver(8)
	combinations := 0
	for mask := 0; mask < 1<<len(groups); mask++ {
		if bits.OnesCount(uint(mask)) != 8 {
			continue
		}
		combinations++

		tables := make(map[string]standing.Table, len(groups))
		for i, group := range groups {
			thirdPoints := 1
			if mask&(1<<i) != 0 {
				thirdPoints = 4
			}
			tables[string(group)] = completeTable(string(group), thirdPoints)
		}

		result := r.Resolve(tables, skeleton)
		if len(result.Unresolved) != 0 {
			t.Fatalf("mask=%012b unresolved=%+v", mask, result.Unresolved)
		}

		seen := make(map[string]struct{}, len(result.Matches))
		for i, match := range result.Matches {
			teamID := match.Away.TeamID
			if _, dup := seen[teamID]; dup {
				t.Fatalf("mask=%012b team %s placed twice", mask, teamID)
			}
			seen[teamID] = struct{}{}
			if mask&(1<<strings.IndexByte(groups, teamID[0])) == 0 {
				t.Fatalf("mask=%012b team %s did not qualify", mask, teamID)
			}
			if !strings.Contains(roundOf32Thirds[i].groups, teamID[:1]) {
				t.Fatalf("mask=%012b match %d got team %s outside %s", mask, match.Number, teamID, roundOf32Thirds[i].groups)
			}
		}
	}
	if combinations != 495 {
		t.Fatalf("unexpected combination count: got=%d want=495", combinations)
	}
}

func TestResolve_IncompleteGroupLeavesSlotUnresolved(t *testing.T) {
	t.Parallel()

	tables := fourGroups()
	incomplete := tables["B"]
	incomplete.Complete = false
	tables["B"] = incomplete

	r := newTestResolver(2)
	result := r.Resolve(tables, []tournament.KnockoutMatch{
		knockout(1, "Winner A", "Runner-up B"),
		knockout(2, "Winner C", "3rd Place C/D"),
	})

	if got := result.Matches[0].Home.TeamID; got != "A1" {
		t.Fatalf("expected unaffected slot resolved, got=%s", got)
	}
	if len(result.Unresolved) != 2 {
		t.Fatalf("unexpected unresolved count: got=%d want=2", len(result.Unresolved))
	}
	if result.Unresolved[0].Reason != ReasonGroupIncomplete || result.Unresolved[0].Side != SideAway {
		t.Fatalf("unexpected first unresolved slot: %+v", result.Unresolved[0])
	}
	if result.Unresolved[1].Reason != ReasonThirdsPending {
		t.Fatalf("unexpected second unresolved slot: %+v", result.Unresolved[1])
	}
	if len(result.ThirdPlaced) != 0 {
		t.Fatalf("expected no third ranking while groups are incomplete")
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	t.Parallel()

	skeleton := []tournament.KnockoutMatch{
		knockout(1, "Winner A", "3rd Place C/D"),
		knockout(2, "Runner-up A", "3rd Place A/B"),
	}

	r := newTestResolver(2)
	first := r.Resolve(fourGroups(), skeleton)
	second := r.Resolve(fourGroups(), skeleton)
	if !reflect.DeepEqual(first.Matches, second.Matches) {
		t.Fatalf("resolution differs between identical runs")
	}

	changed := fourGroups()
	swapped := changed["A"]
	swapped.Rows[0], swapped.Rows[1] = swapped.Rows[1], swapped.Rows[0]
	changed["A"] = swapped

	rerun := r.Resolve(changed, first.Matches)
	if rerun.NewlyResolved != 0 {
		t.Fatalf("expected no new resolutions, got=%d", rerun.NewlyResolved)
	}
	if !reflect.DeepEqual(first.Matches, rerun.Matches) {
		t.Fatalf("resolved slots flipped on re-run")
	}
}

func TestResolve_LaterRoundsFollowFinishedMatches(t *testing.T) {
	t.Parallel()

	r := newTestResolver(2)
	first := knockout(73, "Winner A", "Runner-up B")
	first.Home.TeamID = "A1"
	first.Away.TeamID = "B2"
	first.Status = tournament.MatchStatusFinished
	first.WinnerTeamID = "B2"

	later := knockout(90, "Winner Match 73", "Loser Match 73")
	pending := knockout(91, "Winner Match 74", "Winner C")

	result := r.Resolve(fourGroups(), []tournament.KnockoutMatch{later, first, pending})
	if result.Matches[0].Number != 73 {
		t.Fatalf("expected matches ordered by number, got first=%d", result.Matches[0].Number)
	}
	if got := result.Matches[1].Home.TeamID; got != "B2" {
		t.Fatalf("unexpected match winner slot: got=%s want=B2", got)
	}
	if got := result.Matches[1].Away.TeamID; got != "A1" {
		t.Fatalf("unexpected match loser slot: got=%s want=A1", got)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0].Reason != ReasonMatchPending {
		t.Fatalf("unexpected unresolved slots: %+v", result.Unresolved)
	}
}

func TestParsePlaceholder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		want  Rule
	}{
		{label: "Winner A", want: Rule{Kind: RuleGroupWinner, Group: "A"}},
		{label: "Runner-up  L", want: Rule{Kind: RuleGroupRunnerUp, Group: "L"}},
		{label: "3rd Place C/D/E", want: Rule{Kind: RuleThirdPlaced, Groups: []string{"C", "D", "E"}}},
		{label: "3rd Group A/B/C/D/F", want: Rule{Kind: RuleThirdPlaced, Groups: []string{"A", "B", "C", "D", "F"}}},
		{label: "Winner Match 101", want: Rule{Kind: RuleMatchWinner, MatchNumber: 101}},
		{label: "Loser Match 101", want: Rule{Kind: RuleMatchLoser, MatchNumber: 101}},
	}

	for _, tc := range cases {
		got, err := ParsePlaceholder(tc.label)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.label, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("unexpected rule for %q: got=%+v want=%+v", tc.label, got, tc.want)
		}
	}

	if _, err := ParsePlaceholder("Host nation"); !errors.Is(err, ErrUnknownPlaceholder) {
		t.Fatalf("expected ErrUnknownPlaceholder, got=%v", err)
	}
}
