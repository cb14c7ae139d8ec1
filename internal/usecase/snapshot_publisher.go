package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"golang.org/x/sync/errgroup"
)

const historyWriteConcurrency = 8

type PublishResult struct {
	EncodedBytes    int
	HistoryAppended int
	HistorySkipped  int
	Mirrored        bool
}

// SnapshotPublisher writes the whole document on every run and appends to the
// per-match history only when winner or reasoning changed.
type SnapshotPublisher struct {
	store   snapshot.Store
	history prediction.HistoryRepository
	mirror  snapshot.Mirror
	logger  *logging.Logger
	now     func() time.Time
}

func NewSnapshotPublisher(store snapshot.Store, history prediction.HistoryRepository, mirror snapshot.Mirror, logger *logging.Logger) *SnapshotPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotPublisher{
		store:   store,
		history: history,
		mirror:  mirror,
		logger:  logger.Named("snapshot_publisher"),
		now:     time.Now,
	}
}

// Publish fails when the document is over the size ceiling, when the store
// write fails, or when a history append fails. Mirror failures are logged only.
func (p *SnapshotPublisher) Publish(ctx context.Context, doc snapshot.Document) (PublishResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotPublisher.Publish")
	defer span.End()

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = p.now().UTC()
	}

	encoded, err := sonic.ConfigStd.Marshal(doc)
	if err != nil {
		return PublishResult{}, fmt.Errorf("encode snapshot document: %w", err)
	}
	result := PublishResult{EncodedBytes: len(encoded)}
	if len(encoded) > snapshot.MaxDocumentBytes {
		return result, fmt.Errorf("%w: size=%d limit=%d", snapshot.ErrDocumentTooLarge, len(encoded), snapshot.MaxDocumentBytes)
	}

	if err := p.store.Put(ctx, doc, encoded); err != nil {
		return result, fmt.Errorf("write snapshot document run_id=%s: %w", doc.RunID, err)
	}

	var appended, skipped atomic.Int32
	var mirrored atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyWriteConcurrency + 1)

	if p.mirror != nil {
		g.Go(func() error {
			if err := p.mirror.Upload(gctx, doc, encoded); err != nil {
				p.logger.WarnContext(gctx, "mirror snapshot document failed", "run_id", doc.RunID, "error", err)
				return nil
			}
			mirrored.Store(true)
			return nil
		})
	}

	for _, item := range doc.Predictions {
		item := item
		g.Go(func() error {
			wrote, err := p.appendHistory(gctx, item, doc.UpdatedAt)
			if err != nil {
				return err
			}
			if wrote {
				appended.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}

	err = g.Wait()
	result.HistoryAppended = int(appended.Load())
	result.HistorySkipped = int(skipped.Load())
	result.Mirrored = mirrored.Load()
	if err != nil {
		return result, err
	}

	p.logger.InfoContext(ctx, "snapshot published",
		"run_id", doc.RunID,
		"bytes", result.EncodedBytes,
		"history_appended", result.HistoryAppended,
		"history_skipped", result.HistorySkipped,
		"mirrored", result.Mirrored,
	)
	return result, nil
}

func (p *SnapshotPublisher) appendHistory(ctx context.Context, item snapshot.MatchPrediction, recordedAt time.Time) (bool, error) {
	candidate := prediction.HistoryEntry{
		MatchID:    item.MatchID,
		Winner:     item.Winner,
		Reasoning:  item.Reasoning,
		RecordedAt: recordedAt,
	}

	latest, ok, err := p.history.Latest(ctx, item.MatchID)
	if err != nil {
		return false, fmt.Errorf("read latest history match_id=%s: %w", item.MatchID, err)
	}
	if ok && !candidate.DiffersFrom(latest) {
		return false, nil
	}

	if err := p.history.Append(ctx, candidate); err != nil {
		return false, fmt.Errorf("append history match_id=%s: %w", item.MatchID, err)
	}
	return true, nil
}
