package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

type stubRefreshRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRefreshRunner) RefreshPredictions(context.Context) (usecase.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return usecase.RunResult{}, r.err
	}
	return usecase.RunResult{RunID: "run-1", Status: usecase.RunStatusSuccess}, nil
}

func TestNewScheduler_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	if _, err := NewScheduler("every now and then", &stubRefreshRunner{}, logging.NewNop()); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestScheduler_TickCallsRefresh(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "run in progress", err: usecase.ErrRunInProgress},
		{name: "failure", err: errors.New("boom")},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := &stubRefreshRunner{err: tc.err}
			scheduler, err := NewScheduler("@every 1h", runner, logging.NewNop())
			if err != nil {
				t.Fatalf("new scheduler: %v", err)
			}
			scheduler.tick()
			if runner.calls != 1 {
				t.Fatalf("unexpected refresh calls: got=%d want=1", runner.calls)
			}
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	scheduler, err := NewScheduler("@every 1h", &stubRefreshRunner{}, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	scheduler.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := scheduler.Stop(ctx); err != nil {
		t.Fatalf("stop scheduler: %v", err)
	}
}
