package memory

import (
	"fmt"
	"os"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

// seedFile is the on-disk JSON layout accepted by LoadSeed.
type seedFile struct {
	Teams []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		FIFACode   string `json:"fifa_code"`
		Group      string `json:"group"`
		ExternalID int64  `json:"external_id"`
	} `json:"teams"`
	Matches []struct {
		ID         string    `json:"id"`
		Number     int       `json:"number"`
		Group      string    `json:"group"`
		HomeTeamID string    `json:"home_team_id"`
		AwayTeamID string    `json:"away_team_id"`
		Venue      string    `json:"venue"`
		KickoffAt  time.Time `json:"kickoff_at"`
		Status     string    `json:"status"`
		HomeGoals  *int      `json:"home_goals"`
		AwayGoals  *int      `json:"away_goals"`
		HomeCards  seedCards `json:"home_cards"`
		AwayCards  seedCards `json:"away_cards"`
		ExternalID int64     `json:"external_id"`
	} `json:"matches"`
	Knockout []struct {
		ID              string    `json:"id"`
		Number          int       `json:"number"`
		Stage           string    `json:"stage"`
		Venue           string    `json:"venue"`
		KickoffAt       time.Time `json:"kickoff_at"`
		HomePlaceholder string    `json:"home_placeholder"`
		AwayPlaceholder string    `json:"away_placeholder"`
		ExternalID      int64     `json:"external_id"`
	} `json:"knockout"`
}

type seedCards struct {
	Yellow       int `json:"yellow"`
	SecondYellow int `json:"second_yellow"`
	DirectRed    int `json:"direct_red"`
}

func LoadSeed(path string) (tournament.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return tournament.Dataset{}, fmt.Errorf("read tournament seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (tournament.Dataset, error) {
	var file seedFile
	if err := sonic.Unmarshal(raw, &file); err != nil {
		return tournament.Dataset{}, fmt.Errorf("decode tournament seed: %w", err)
	}

	out := tournament.Dataset{
		Teams:    make([]tournament.Team, 0, len(file.Teams)),
		Matches:  make([]tournament.Match, 0, len(file.Matches)),
		Knockout: make([]tournament.KnockoutMatch, 0, len(file.Knockout)),
	}
	known := make(map[string]struct{}, len(file.Teams))
	for _, item := range file.Teams {
		id := strings.TrimSpace(item.ID)
		if id == "" || strings.TrimSpace(item.Name) == "" {
			return tournament.Dataset{}, fmt.Errorf("seed team requires id and name: %+v", item)
		}
		known[id] = struct{}{}
		out.Teams = append(out.Teams, tournament.Team{
			ID:         id,
			Name:       strings.TrimSpace(item.Name),
			FIFACode:   strings.ToUpper(strings.TrimSpace(item.FIFACode)),
			Group:      strings.ToUpper(strings.TrimSpace(item.Group)),
			ExternalID: item.ExternalID,
		})
	}

	for _, item := range file.Matches {
		if _, ok := known[item.HomeTeamID]; !ok {
			return tournament.Dataset{}, fmt.Errorf("seed match %s references unknown team %q", item.ID, item.HomeTeamID)
		}
		if _, ok := known[item.AwayTeamID]; !ok {
			return tournament.Dataset{}, fmt.Errorf("seed match %s references unknown team %q", item.ID, item.AwayTeamID)
		}
		status := tournament.MatchStatus(strings.ToUpper(strings.TrimSpace(item.Status)))
		if status == "" {
			status = tournament.MatchStatusScheduled
		}
		out.Matches = append(out.Matches, tournament.Match{
			ID:         item.ID,
			Number:     item.Number,
			Stage:      tournament.StageGroup,
			Group:      strings.ToUpper(strings.TrimSpace(item.Group)),
			HomeTeamID: item.HomeTeamID,
			AwayTeamID: item.AwayTeamID,
			Venue:      item.Venue,
			KickoffAt:  item.KickoffAt.UTC(),
			Status:     status,
			HomeGoals:  item.HomeGoals,
			AwayGoals:  item.AwayGoals,
			HomeCards:  tournament.Cards(item.HomeCards),
			AwayCards:  tournament.Cards(item.AwayCards),
			ExternalID: item.ExternalID,
		})
	}

	for _, item := range file.Knockout {
		out.Knockout = append(out.Knockout, tournament.KnockoutMatch{
			ID:         item.ID,
			Number:     item.Number,
			Stage:      tournament.Stage(item.Stage),
			Venue:      item.Venue,
			KickoffAt:  item.KickoffAt.UTC(),
			Home:       tournament.KnockoutSlot{Placeholder: item.HomePlaceholder},
			Away:       tournament.KnockoutSlot{Placeholder: item.AwayPlaceholder},
			Status:     tournament.MatchStatusScheduled,
			ExternalID: item.ExternalID,
		})
	}

	return out, nil
}

// SeedTournament is the built-in dataset used when no seed file is configured:
// two groups of four and the two round-of-32 ties they feed.
func SeedTournament() tournament.Dataset {
	kickoff := time.Date(2026, 6, 11, 19, 0, 0, 0, time.UTC)
	teams := []tournament.Team{
		{ID: "mex", Name: "Mexico", FIFACode: "MEX", Group: "A", ExternalID: 16},
		{ID: "rsa", Name: "South Africa", FIFACode: "RSA", Group: "A", ExternalID: 1531},
		{ID: "kor", Name: "South Korea", FIFACode: "KOR", Group: "A", ExternalID: 17},
		{ID: "nor", Name: "Norway", FIFACode: "NOR", Group: "A", ExternalID: 1090},
		{ID: "can", Name: "Canada", FIFACode: "CAN", Group: "B", ExternalID: 5529},
		{ID: "sui", Name: "Switzerland", FIFACode: "SUI", Group: "B", ExternalID: 15},
		{ID: "qat", Name: "Qatar", FIFACode: "QAT", Group: "B", ExternalID: 1569},
		{ID: "fra", Name: "France", FIFACode: "FRA", Group: "B", ExternalID: 2},
	}

	pairs := [][2]int{{0, 1}, {2, 3}, {0, 2}, {3, 1}, {3, 0}, {1, 2}}
	matches := make([]tournament.Match, 0, 12)
	for g, group := range []string{"A", "B"} {
		groupTeams := teams[g*4 : g*4+4]
		for i, pair := range pairs {
			number := g*len(pairs) + i + 1
			matches = append(matches, tournament.Match{
				ID:         fmt.Sprintf("wc26-%03d", number),
				Number:     number,
				Stage:      tournament.StageGroup,
				Group:      group,
				HomeTeamID: groupTeams[pair[0]].ID,
				AwayTeamID: groupTeams[pair[1]].ID,
				KickoffAt:  kickoff.Add(time.Duration(number) * 24 * time.Hour),
				Status:     tournament.MatchStatusScheduled,
			})
		}
	}

	return tournament.Dataset{
		Teams:   teams,
		Matches: matches,
		Knockout: []tournament.KnockoutMatch{
			{
				ID: "wc26-073", Number: 73, Stage: tournament.StageRoundOf32,
				KickoffAt: kickoff.Add(17 * 24 * time.Hour),
				Home:      tournament.KnockoutSlot{Placeholder: "Winner A"},
				Away:      tournament.KnockoutSlot{Placeholder: "Runner-up B"},
				Status:    tournament.MatchStatusScheduled,
			},
			{
				ID: "wc26-074", Number: 74, Stage: tournament.StageRoundOf32,
				KickoffAt: kickoff.Add(17 * 24 * time.Hour),
				Home:      tournament.KnockoutSlot{Placeholder: "Winner B"},
				Away:      tournament.KnockoutSlot{Placeholder: "Runner-up A"},
				Status:    tournament.MatchStatusScheduled,
			},
		},
	}
}
