package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	qb "github.com/riskibarqy/worldcup-predictor/internal/platform/querybuilder"
)

type TeamStatsRepository struct {
	db *sqlx.DB
}

func NewTeamStatsRepository(db *sqlx.DB) *TeamStatsRepository {
	return &TeamStatsRepository{db: db}
}

func (r *TeamStatsRepository) GetByTeam(ctx context.Context, teamID string) (teamstats.Snapshot, bool, error) {
	query, args, err := qb.Select("*").From("team_stats_snapshots").
		Where(qb.Eq("team_public_id", teamID)).
		ToSQL()
	if err != nil {
		return teamstats.Snapshot{}, false, fmt.Errorf("build get team stats snapshot query: %w", err)
	}

	var row teamStatsSnapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return teamstats.Snapshot{}, false, nil
		}
		return teamstats.Snapshot{}, false, fmt.Errorf("get team stats snapshot team_id=%s: %w", teamID, err)
	}

	return teamstats.Snapshot{
		TeamID: row.TeamID,
		Metrics: teamstats.Metrics{
			AvgXG:            nullFloat64ToPtr(row.AvgXG),
			CleanSheets:      row.CleanSheets,
			FormString:       row.FormString,
			MatchesAnalyzed:  row.MatchesAnalyzed,
			DataCompleteness: row.DataCompleteness,
			Confidence:       teamstats.Confidence(row.Confidence),
			FallbackMode:     row.FallbackMode,
		},
		Source:    teamstats.Source(row.Source),
		FetchedAt: row.FetchedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *TeamStatsRepository) Upsert(ctx context.Context, snapshot teamstats.Snapshot) error {
	insertModel := teamStatsSnapshotTableModel{
		TeamID:           snapshot.TeamID,
		CleanSheets:      snapshot.CleanSheets,
		FormString:       snapshot.FormString,
		MatchesAnalyzed:  snapshot.MatchesAnalyzed,
		DataCompleteness: snapshot.DataCompleteness,
		Confidence:       string(snapshot.Confidence),
		FallbackMode:     snapshot.FallbackMode,
		Source:           string(snapshot.Source),
		FetchedAt:        snapshot.FetchedAt.UTC(),
		ExpiresAt:        snapshot.ExpiresAt.UTC(),
	}
	if snapshot.AvgXG != nil {
		insertModel.AvgXG = sql.NullFloat64{Float64: *snapshot.AvgXG, Valid: true}
	}

	query, args, err := qb.InsertModel("team_stats_snapshots", insertModel, `ON CONFLICT (team_public_id)
DO UPDATE SET
    avg_xg = EXCLUDED.avg_xg,
    clean_sheets = EXCLUDED.clean_sheets,
    form_string = EXCLUDED.form_string,
    matches_analyzed = EXCLUDED.matches_analyzed,
    data_completeness = EXCLUDED.data_completeness,
    confidence = EXCLUDED.confidence,
    fallback_mode = EXCLUDED.fallback_mode,
    source = EXCLUDED.source,
    fetched_at = EXCLUDED.fetched_at,
    expires_at = EXCLUDED.expires_at`)
	if err != nil {
		return fmt.Errorf("build upsert team stats snapshot query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team stats snapshot team_id=%s: %w", snapshot.TeamID, err)
	}
	return nil
}

type teamStatsSnapshotTableModel struct {
	TeamID           string          `db:"team_public_id"`
	AvgXG            sql.NullFloat64 `db:"avg_xg"`
	CleanSheets      int             `db:"clean_sheets"`
	FormString       string          `db:"form_string"`
	MatchesAnalyzed  int             `db:"matches_analyzed"`
	DataCompleteness float64         `db:"data_completeness"`
	Confidence       string          `db:"confidence"`
	FallbackMode     string          `db:"fallback_mode"`
	Source           string          `db:"source"`
	FetchedAt        time.Time       `db:"fetched_at"`
	ExpiresAt        time.Time       `db:"expires_at"`
}
