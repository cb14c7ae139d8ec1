package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	qb "github.com/riskibarqy/worldcup-predictor/internal/platform/querybuilder"
)

// latestSlot is the only row the table ever holds.
const latestSlot = "latest"

type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Put(ctx context.Context, doc snapshot.Document, encoded []byte) error {
	query, args, err := qb.InsertModel("snapshot_documents", snapshotTableModel{
		Slot:      latestSlot,
		RunID:     doc.RunID,
		Payload:   string(encoded),
		SizeBytes: len(encoded),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}, `ON CONFLICT (slot)
DO UPDATE SET
    run_id = EXCLUDED.run_id,
    payload = EXCLUDED.payload,
    size_bytes = EXCLUDED.size_bytes,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build put snapshot query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put snapshot run_id=%s: %w", doc.RunID, err)
	}
	return nil
}

func (r *SnapshotRepository) Latest(ctx context.Context) (snapshot.Document, bool, error) {
	query, args, err := qb.Select("slot", "run_id", "payload", "size_bytes", "updated_at").
		From("snapshot_documents").
		Where(qb.Eq("slot", latestSlot)).
		ToSQL()
	if err != nil {
		return snapshot.Document{}, false, fmt.Errorf("build latest snapshot query: %w", err)
	}

	var row snapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return snapshot.Document{}, false, nil
		}
		return snapshot.Document{}, false, fmt.Errorf("get latest snapshot: %w", err)
	}

	var doc snapshot.Document
	if err := sonic.UnmarshalString(row.Payload, &doc); err != nil {
		return snapshot.Document{}, false, fmt.Errorf("decode latest snapshot run_id=%s: %w", row.RunID, err)
	}
	return doc, true, nil
}

type snapshotTableModel struct {
	Slot      string    `db:"slot"`
	RunID     string    `db:"run_id"`
	Payload   string    `db:"payload"`
	SizeBytes int       `db:"size_bytes"`
	UpdatedAt time.Time `db:"updated_at"`
}
