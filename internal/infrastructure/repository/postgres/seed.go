package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
)

// BootstrapSeed loads the tournament skeleton into an empty database. It is a
// no-op once any team exists.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, dataset tournament.Dataset) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM teams WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count teams for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, t := range dataset.Teams {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO teams (public_id, name, fifa_code, group_code, external_team_id)
VALUES (:public_id, :name, :fifa_code, :group_code, :external_team_id)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":        t.ID,
			"name":             t.Name,
			"fifa_code":        t.FIFACode,
			"group_code":       t.Group,
			"external_team_id": nullableInt64(t.ExternalID),
		})
		if err != nil {
			return fmt.Errorf("bind seed team %s query: %w", t.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed team %s: %w", t.ID, err)
		}
	}

	for _, m := range dataset.Matches {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO matches (
    public_id, match_number, stage, group_code, home_team_public_id, away_team_public_id,
    venue, kickoff_at, status, home_goals, away_goals,
    home_yellow, home_second_yellow, home_direct_red,
    away_yellow, away_second_yellow, away_direct_red, external_fixture_id
)
VALUES (
    :public_id, :match_number, :stage, :group_code, :home_team_public_id, :away_team_public_id,
    :venue, :kickoff_at, :status, :home_goals, :away_goals,
    :home_yellow, :home_second_yellow, :home_direct_red,
    :away_yellow, :away_second_yellow, :away_direct_red, :external_fixture_id
)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":           m.ID,
			"match_number":        m.Number,
			"stage":               string(m.Stage),
			"group_code":          m.Group,
			"home_team_public_id": m.HomeTeamID,
			"away_team_public_id": m.AwayTeamID,
			"venue":               m.Venue,
			"kickoff_at":          m.KickoffAt.UTC(),
			"status":              string(seedStatus(m.Status)),
			"home_goals":          nullableIntPtr(m.HomeGoals),
			"away_goals":          nullableIntPtr(m.AwayGoals),
			"home_yellow":         m.HomeCards.Yellow,
			"home_second_yellow":  m.HomeCards.SecondYellow,
			"home_direct_red":     m.HomeCards.DirectRed,
			"away_yellow":         m.AwayCards.Yellow,
			"away_second_yellow":  m.AwayCards.SecondYellow,
			"away_direct_red":     m.AwayCards.DirectRed,
			"external_fixture_id": nullableInt64(m.ExternalID),
		})
		if err != nil {
			return fmt.Errorf("bind seed match %s query: %w", m.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed match %s: %w", m.ID, err)
		}
	}

	for _, k := range dataset.Knockout {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO knockout_matches (
    public_id, match_number, stage, venue, kickoff_at,
    home_placeholder, away_placeholder, status, external_fixture_id
)
VALUES (
    :public_id, :match_number, :stage, :venue, :kickoff_at,
    :home_placeholder, :away_placeholder, :status, :external_fixture_id
)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id":           k.ID,
			"match_number":        k.Number,
			"stage":               string(k.Stage),
			"venue":               k.Venue,
			"kickoff_at":          k.KickoffAt.UTC(),
			"home_placeholder":    k.Home.Placeholder,
			"away_placeholder":    k.Away.Placeholder,
			"status":              string(seedStatus(k.Status)),
			"external_fixture_id": nullableInt64(k.ExternalID),
		})
		if err != nil {
			return fmt.Errorf("bind seed knockout match %s query: %w", k.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed knockout match %s: %w", k.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}

func seedStatus(status tournament.MatchStatus) tournament.MatchStatus {
	if status == "" {
		return tournament.MatchStatusScheduled
	}
	return status
}
