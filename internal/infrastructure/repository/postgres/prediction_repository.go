package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	qb "github.com/riskibarqy/worldcup-predictor/internal/platform/querybuilder"
)

type PredictionCacheRepository struct {
	db *sqlx.DB
}

func NewPredictionCacheRepository(db *sqlx.DB) *PredictionCacheRepository {
	return &PredictionCacheRepository{db: db}
}

func (r *PredictionCacheRepository) GetByMatch(ctx context.Context, matchID string) (prediction.CacheEntry, bool, error) {
	query, args, err := qb.Select("match_public_id", "fingerprint", "source", "prediction", "generated_at").
		From("prediction_cache").
		Where(qb.Eq("match_public_id", matchID)).
		ToSQL()
	if err != nil {
		return prediction.CacheEntry{}, false, fmt.Errorf("build get prediction cache query: %w", err)
	}

	var row predictionCacheTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.CacheEntry{}, false, nil
		}
		return prediction.CacheEntry{}, false, fmt.Errorf("get prediction cache match_id=%s: %w", matchID, err)
	}

	var pred prediction.Prediction
	if err := sonic.UnmarshalString(row.Prediction, &pred); err != nil {
		return prediction.CacheEntry{}, false, fmt.Errorf("decode cached prediction match_id=%s: %w", matchID, err)
	}

	return prediction.CacheEntry{
		MatchID:     row.MatchID,
		Prediction:  pred,
		Fingerprint: row.Fingerprint,
		Source:      prediction.Source(row.Source),
		GeneratedAt: row.GeneratedAt.UTC(),
	}, true, nil
}

func (r *PredictionCacheRepository) Upsert(ctx context.Context, entry prediction.CacheEntry) error {
	payload, err := sonic.MarshalString(entry.Prediction)
	if err != nil {
		return fmt.Errorf("encode prediction match_id=%s: %w", entry.MatchID, err)
	}

	query, args, err := qb.InsertModel("prediction_cache", predictionCacheTableModel{
		MatchID:     entry.MatchID,
		Fingerprint: entry.Fingerprint,
		Source:      string(entry.Source),
		Prediction:  payload,
		GeneratedAt: entry.GeneratedAt.UTC(),
	}, `ON CONFLICT (match_public_id)
DO UPDATE SET
    fingerprint = EXCLUDED.fingerprint,
    source = EXCLUDED.source,
    prediction = EXCLUDED.prediction,
    generated_at = EXCLUDED.generated_at`)
	if err != nil {
		return fmt.Errorf("build upsert prediction cache query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert prediction cache match_id=%s: %w", entry.MatchID, err)
	}
	return nil
}

type predictionCacheTableModel struct {
	MatchID     string    `db:"match_public_id"`
	Fingerprint string    `db:"fingerprint"`
	Source      string    `db:"source"`
	Prediction  string    `db:"prediction"`
	GeneratedAt time.Time `db:"generated_at"`
}

// PredictionHistoryRepository is append-only.
type PredictionHistoryRepository struct {
	db *sqlx.DB
}

func NewPredictionHistoryRepository(db *sqlx.DB) *PredictionHistoryRepository {
	return &PredictionHistoryRepository{db: db}
}

func (r *PredictionHistoryRepository) Latest(ctx context.Context, matchID string) (prediction.HistoryEntry, bool, error) {
	items, err := r.ListByMatch(ctx, matchID, 1)
	if err != nil {
		return prediction.HistoryEntry{}, false, err
	}
	if len(items) == 0 {
		return prediction.HistoryEntry{}, false, nil
	}
	return items[0], true, nil
}

func (r *PredictionHistoryRepository) Append(ctx context.Context, entry prediction.HistoryEntry) error {
	query, args, err := qb.InsertModel("prediction_history", predictionHistoryTableModel{
		MatchID:    entry.MatchID,
		Winner:     entry.Winner,
		Reasoning:  entry.Reasoning,
		RecordedAt: entry.RecordedAt.UTC(),
	}, "")
	if err != nil {
		return fmt.Errorf("build append prediction history query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append prediction history match_id=%s: %w", entry.MatchID, err)
	}
	return nil
}

// ListByMatch returns newest first.
func (r *PredictionHistoryRepository) ListByMatch(ctx context.Context, matchID string, limit int) ([]prediction.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query, args, err := qb.Select("match_public_id", "winner", "reasoning", "recorded_at").
		From("prediction_history").
		Where(qb.Eq("match_public_id", matchID)).
		OrderBy("id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list prediction history query: %w", err)
	}

	var rows []predictionHistoryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list prediction history match_id=%s: %w", matchID, err)
	}

	out := make([]prediction.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, prediction.HistoryEntry{
			MatchID:    row.MatchID,
			Winner:     row.Winner,
			Reasoning:  row.Reasoning,
			RecordedAt: row.RecordedAt.UTC(),
		})
	}
	return out, nil
}

type predictionHistoryTableModel struct {
	MatchID    string    `db:"match_public_id"`
	Winner     string    `db:"winner"`
	Reasoning  string    `db:"reasoning"`
	RecordedAt time.Time `db:"recorded_at"`
}
