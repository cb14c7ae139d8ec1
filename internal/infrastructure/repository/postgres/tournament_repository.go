package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	qb "github.com/riskibarqy/worldcup-predictor/internal/platform/querybuilder"
)

type TournamentRepository struct {
	db *sqlx.DB
}

func NewTournamentRepository(db *sqlx.DB) *TournamentRepository {
	return &TournamentRepository{db: db}
}

func (r *TournamentRepository) ListTeams(ctx context.Context) ([]tournament.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.IsNull("deleted_at")).
		OrderBy("group_code", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}

	out := make([]tournament.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TournamentRepository) ListMatches(ctx context.Context) ([]tournament.Match, error) {
	query, args, err := qb.Select(
		"id", "public_id", "match_number", "stage", "group_code",
		"home_team_public_id", "away_team_public_id", "venue", "kickoff_at", "status",
		"home_goals", "away_goals",
		"home_yellow", "home_second_yellow", "home_direct_red",
		"away_yellow", "away_second_yellow", "away_direct_red",
		"external_fixture_id",
	).From("matches").
		Where(qb.IsNull("deleted_at")).
		OrderBy("match_number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}

	out := make([]tournament.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TournamentRepository) ListKnockoutMatches(ctx context.Context) ([]tournament.KnockoutMatch, error) {
	query, args, err := qb.Select(
		"id", "public_id", "match_number", "stage", "venue", "kickoff_at",
		"home_placeholder", "away_placeholder",
		"home_team_public_id", "away_team_public_id",
		"home_resolved_at", "away_resolved_at",
		"status", "home_goals", "away_goals", "winner_team_public_id",
		"external_fixture_id",
	).From("knockout_matches").
		Where(qb.IsNull("deleted_at")).
		OrderBy("match_number").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select knockout matches query: %w", err)
	}

	var rows []knockoutMatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select knockout matches: %w", err)
	}

	out := make([]tournament.KnockoutMatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// SaveKnockoutSlots writes resolved sides with COALESCE so a slot that already
// holds a team keeps it.
func (r *TournamentRepository) SaveKnockoutSlots(ctx context.Context, matches []tournament.KnockoutMatch) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save knockout slots: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range matches {
		update := qb.Update("knockout_matches")
		changed := false
		if item.Home.Resolved() {
			update = update.
				SetExpr("home_team_public_id", "COALESCE(home_team_public_id, ?)", item.Home.TeamID).
				SetExpr("home_resolved_at", "COALESCE(home_resolved_at, ?)", nullableTime(item.Home.ResolvedAt))
			changed = true
		}
		if item.Away.Resolved() {
			update = update.
				SetExpr("away_team_public_id", "COALESCE(away_team_public_id, ?)", item.Away.TeamID).
				SetExpr("away_resolved_at", "COALESCE(away_resolved_at, ?)", nullableTime(item.Away.ResolvedAt))
			changed = true
		}
		if !changed {
			continue
		}

		query, args, err := update.
			SetExpr("updated_at", "NOW()").
			Where(qb.Eq("public_id", item.ID), qb.IsNull("deleted_at")).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build save knockout slots query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save knockout slots match_id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save knockout slots tx: %w", err)
	}
	return nil
}

// SaveResults skips rows already marked FINISHED, so a recorded result is
// never rewritten by a later provider response.
func (r *TournamentRepository) SaveResults(ctx context.Context, updates []tournament.ResultUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save results: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range updates {
		query, args, err := resultUpdateQuery(item)
		if err != nil {
			return fmt.Errorf("build save result query match_id=%s: %w", item.MatchID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save result match_id=%s: %w", item.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save results tx: %w", err)
	}
	return nil
}

func resultUpdateQuery(item tournament.ResultUpdate) (string, []any, error) {
	table := "matches"
	if item.Knockout {
		table = "knockout_matches"
	}

	update := qb.Update(table).
		Set("status", string(item.Status)).
		Set("home_goals", nullableIntPtr(item.HomeGoals)).
		Set("away_goals", nullableIntPtr(item.AwayGoals)).
		SetExpr("external_fixture_id", "COALESCE(external_fixture_id, ?)", nullableInt64(item.ExternalID))
	if item.Knockout {
		update = update.Set("winner_team_public_id", nullableString(item.WinnerTeamID))
	} else {
		update = update.
			Set("home_yellow", item.HomeCards.Yellow).
			Set("home_second_yellow", item.HomeCards.SecondYellow).
			Set("home_direct_red", item.HomeCards.DirectRed).
			Set("away_yellow", item.AwayCards.Yellow).
			Set("away_second_yellow", item.AwayCards.SecondYellow).
			Set("away_direct_red", item.AwayCards.DirectRed)
	}

	return update.
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", item.MatchID),
			qb.IsNull("deleted_at"),
			qb.NotEq("status", string(tournament.MatchStatusFinished)),
		).
		ToSQL()
}
