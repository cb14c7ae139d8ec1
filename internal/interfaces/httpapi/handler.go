package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/snapshot"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

// PipelineRunner triggers pipeline runs. *usecase.PipelineService satisfies it.
type PipelineRunner interface {
	RecomputeTournament(ctx context.Context) (usecase.RunResult, error)
	RefreshPredictions(ctx context.Context) (usecase.RunResult, error)
}

// SnapshotReader serves the read endpoints. *usecase.SnapshotQueryService
// satisfies it.
type SnapshotReader interface {
	Latest(ctx context.Context) (snapshot.Document, error)
	MatchHistory(ctx context.Context, matchID string, limit int) ([]prediction.HistoryEntry, error)
	Health(ctx context.Context) usecase.HealthReport
}

type Handler struct {
	pipeline  PipelineRunner
	snapshots SnapshotReader
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(pipeline PipelineRunner, snapshots SnapshotReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		pipeline:  pipeline,
		snapshots: snapshots,
		logger:    logger.Named("httpapi"),
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	report := h.snapshots.Health(ctx)
	status := http.StatusOK
	if report.Status != usecase.HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}

	writeSuccess(ctx, w, status, report)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLatestSnapshot")
	defer span.End()

	doc, err := h.snapshots.Latest(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get latest snapshot failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, doc)
}

func (h *Handler) ListMatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchHistory")
	defer span.End()

	req := matchHistoryRequest{MatchID: strings.TrimSpace(r.PathValue("matchID"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
			return
		}
		req.Limit = limit
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.snapshots.MatchHistory(ctx, req.MatchID, req.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list match history failed", "match_id", req.MatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]historyEntryDTO, 0, len(items))
	for _, item := range items {
		out = append(out, historyEntryToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type matchHistoryRequest struct {
	MatchID string `validate:"required,max=64"`
	Limit   int    `validate:"gte=0,lte=200"`
}

type historyEntryDTO struct {
	MatchID    string `json:"match_id"`
	Winner     string `json:"winner"`
	Reasoning  string `json:"reasoning"`
	RecordedAt string `json:"recorded_at"`
}

func historyEntryToDTO(item prediction.HistoryEntry) historyEntryDTO {
	return historyEntryDTO{
		MatchID:    item.MatchID,
		Winner:     item.Winner,
		Reasoning:  item.Reasoning,
		RecordedAt: item.RecordedAt.UTC().Format(time.RFC3339),
	}
}
