package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	qb "github.com/riskibarqy/worldcup-predictor/internal/platform/querybuilder"
)

type RankingRepository struct {
	db *sqlx.DB
}

func NewRankingRepository(db *sqlx.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

func (r *RankingRepository) ListAll(ctx context.Context) ([]ranking.Ranking, error) {
	query, args, err := qb.Select("*").From("fifa_rankings").OrderBy("rank", "team_name").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rankings query: %w", err)
	}

	var rows []rankingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rankings: %w", err)
	}

	out := make([]ranking.Ranking, 0, len(rows))
	for _, row := range rows {
		out = append(out, ranking.Ranking{
			Rank:          row.Rank,
			TeamName:      row.TeamName,
			FIFACode:      row.FIFACode,
			Confederation: row.Confederation,
			Points:        row.Points,
			PreviousRank:  row.PreviousRank,
			FetchedAt:     row.FetchedAt.UTC(),
		})
	}
	return out, nil
}

// ReplaceAll swaps the whole table in one transaction; readers never see a
// partial ranking.
func (r *RankingRepository) ReplaceAll(ctx context.Context, items []ranking.Ranking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace rankings: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.DeleteFrom("fifa_rankings").ToSQL()
	if err != nil {
		return fmt.Errorf("build clear rankings query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear rankings: %w", err)
	}

	if len(items) > 0 {
		insert := qb.InsertInto("fifa_rankings").
			Columns("rank", "team_name", "fifa_code", "confederation", "points", "previous_rank", "fetched_at")
		for _, item := range items {
			insert = insert.Values(item.Rank, item.TeamName, item.FIFACode, item.Confederation, item.Points, item.PreviousRank, item.FetchedAt.UTC())
		}
		query, args, err = insert.Suffix("ON CONFLICT (team_name) DO NOTHING").ToSQL()
		if err != nil {
			return fmt.Errorf("build insert rankings query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rankings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace rankings tx: %w", err)
	}
	return nil
}

type rankingTableModel struct {
	Rank          int       `db:"rank"`
	TeamName      string    `db:"team_name"`
	FIFACode      string    `db:"fifa_code"`
	Confederation string    `db:"confederation"`
	Points        float64   `db:"points"`
	PreviousRank  int       `db:"previous_rank"`
	FetchedAt     time.Time `db:"fetched_at"`
}
