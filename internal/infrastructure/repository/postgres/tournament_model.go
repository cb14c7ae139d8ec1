package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

type teamTableModel struct {
	ID         int64         `db:"id"`
	PublicID   string        `db:"public_id"`
	Name       string        `db:"name"`
	FIFACode   string        `db:"fifa_code"`
	GroupCode  string        `db:"group_code"`
	ExternalID sql.NullInt64 `db:"external_team_id"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
	DeletedAt  *time.Time    `db:"deleted_at"`
}

func (m teamTableModel) toDomain() tournament.Team {
	return tournament.Team{
		ID:         m.PublicID,
		Name:       m.Name,
		FIFACode:   m.FIFACode,
		Group:      m.GroupCode,
		ExternalID: nullInt64ToInt64(m.ExternalID),
	}
}

type matchTableModel struct {
	ID               int64         `db:"id"`
	PublicID         string        `db:"public_id"`
	Number           int           `db:"match_number"`
	Stage            string        `db:"stage"`
	GroupCode        string        `db:"group_code"`
	HomeTeamID       string        `db:"home_team_public_id"`
	AwayTeamID       string        `db:"away_team_public_id"`
	Venue            string        `db:"venue"`
	KickoffAt        time.Time     `db:"kickoff_at"`
	Status           string        `db:"status"`
	HomeGoals        sql.NullInt64 `db:"home_goals"`
	AwayGoals        sql.NullInt64 `db:"away_goals"`
	HomeYellow       int           `db:"home_yellow"`
	HomeSecondYellow int           `db:"home_second_yellow"`
	HomeDirectRed    int           `db:"home_direct_red"`
	AwayYellow       int           `db:"away_yellow"`
	AwaySecondYellow int           `db:"away_second_yellow"`
	AwayDirectRed    int           `db:"away_direct_red"`
	ExternalID       sql.NullInt64 `db:"external_fixture_id"`
}

func (m matchTableModel) toDomain() tournament.Match {
	return tournament.Match{
		ID:         m.PublicID,
		Number:     m.Number,
		Stage:      tournament.Stage(m.Stage),
		Group:      m.GroupCode,
		HomeTeamID: m.HomeTeamID,
		AwayTeamID: m.AwayTeamID,
		Venue:      m.Venue,
		KickoffAt:  m.KickoffAt.UTC(),
		Status:     tournament.MatchStatus(m.Status),
		HomeGoals:  nullInt64ToIntPtr(m.HomeGoals),
		AwayGoals:  nullInt64ToIntPtr(m.AwayGoals),
		HomeCards: tournament.Cards{
			Yellow:       m.HomeYellow,
			SecondYellow: m.HomeSecondYellow,
			DirectRed:    m.HomeDirectRed,
		},
		AwayCards: tournament.Cards{
			Yellow:       m.AwayYellow,
			SecondYellow: m.AwaySecondYellow,
			DirectRed:    m.AwayDirectRed,
		},
		ExternalID: nullInt64ToInt64(m.ExternalID),
	}
}

type knockoutMatchTableModel struct {
	ID              int64          `db:"id"`
	PublicID        string         `db:"public_id"`
	Number          int            `db:"match_number"`
	Stage           string         `db:"stage"`
	Venue           string         `db:"venue"`
	KickoffAt       time.Time      `db:"kickoff_at"`
	HomePlaceholder string         `db:"home_placeholder"`
	AwayPlaceholder string         `db:"away_placeholder"`
	HomeTeamID      sql.NullString `db:"home_team_public_id"`
	AwayTeamID      sql.NullString `db:"away_team_public_id"`
	HomeResolvedAt  sql.NullTime   `db:"home_resolved_at"`
	AwayResolvedAt  sql.NullTime   `db:"away_resolved_at"`
	Status          string         `db:"status"`
	HomeGoals       sql.NullInt64  `db:"home_goals"`
	AwayGoals       sql.NullInt64  `db:"away_goals"`
	WinnerTeamID    sql.NullString `db:"winner_team_public_id"`
	ExternalID      sql.NullInt64  `db:"external_fixture_id"`
}

func (m knockoutMatchTableModel) toDomain() tournament.KnockoutMatch {
	return tournament.KnockoutMatch{
		ID:        m.PublicID,
		Number:    m.Number,
		Stage:     tournament.Stage(m.Stage),
		Venue:     m.Venue,
		KickoffAt: m.KickoffAt.UTC(),
		Home: tournament.KnockoutSlot{
			Placeholder: m.HomePlaceholder,
			TeamID:      nullStringToString(m.HomeTeamID),
			ResolvedAt:  nullTimeToPtr(m.HomeResolvedAt),
		},
		Away: tournament.KnockoutSlot{
			Placeholder: m.AwayPlaceholder,
			TeamID:      nullStringToString(m.AwayTeamID),
			ResolvedAt:  nullTimeToPtr(m.AwayResolvedAt),
		},
		Status:       tournament.MatchStatus(m.Status),
		HomeGoals:    nullInt64ToIntPtr(m.HomeGoals),
		AwayGoals:    nullInt64ToIntPtr(m.AwayGoals),
		WinnerTeamID: nullStringToString(m.WinnerTeamID),
		ExternalID:   nullInt64ToInt64(m.ExternalID),
	}
}
