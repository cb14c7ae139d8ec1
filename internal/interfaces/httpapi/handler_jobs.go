package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

const maxInternalJobBodyBytes = 16 << 10

func (h *Handler) RunRecomputeTournamentJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecomputeTournamentJob")
	defer span.End()

	h.runJob(ctx, w, r, "recompute-tournament", h.pipeline.RecomputeTournament)
}

func (h *Handler) RunRefreshPredictionsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshPredictionsJob")
	defer span.End()

	h.runJob(ctx, w, r, "refresh-predictions", h.pipeline.RefreshPredictions)
}

func (h *Handler) runJob(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	jobName string,
	run func(context.Context) (usecase.RunResult, error),
) {
	if h.pipeline == nil {
		writeError(ctx, w, fmt.Errorf("%w: pipeline is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "internal job triggered", "job", jobName, "reason", req.Reason)
	result, err := run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "internal job failed", "job", jobName, "run_id", result.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type internalJobRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

// decodeInternalJobRequest accepts an empty body.
func decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	var req internalJobRequest
	if r.Body == nil {
		return req, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxInternalJobBodyBytes+1))
	if err != nil {
		return req, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > maxInternalJobBodyBytes {
		return req, fmt.Errorf("%w: request body too large", usecase.ErrInvalidInput)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return req, nil
	}
	if err := sonic.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	req.Reason = strings.TrimSpace(req.Reason)
	return req, nil
}
