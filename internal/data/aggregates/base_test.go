package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

func TestExecuteWriteStatuses(t *testing.T) {
	cases := []struct {
		name      string
		body      error
		status    string
		conflicts int
	}{
		{"success", nil, "success", 0},
		{"validation", ValidationError("checksum required"), string(domainagg.CodeValidation), 0},
		{"invariant", InvariantError("polity SCO appears twice"), string(domainagg.CodeInvariantViolation), 0},
		{"conflict", ConflictError("checksum already processed"), string(domainagg.CodeConflict), 1},
		{"internal", errors.New("disk full"), string(domainagg.CodeInternal), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &spyHooks{}
			calls := 0
			err := executeWrite(context.Background(), BaseDeps{
				Runner: spyTxRunner{},
				Hooks:  hooks,
				Retry:  fastRetry,
			}, "aggregate.test", func(dbctx.Context) error {
				calls++
				return tc.body
			})
			if (err == nil) != (tc.body == nil) {
				t.Fatalf("err: want nil=%v got=%v", tc.body == nil, err)
			}
			if calls != 1 {
				t.Fatalf("non-retryable outcomes run once: calls=%d", calls)
			}
			if len(hooks.Operations) != 1 || hooks.Operations[0].Status != tc.status {
				t.Fatalf("operations: want one %q got=%+v", tc.status, hooks.Operations)
			}
			if len(hooks.Conflicts) != tc.conflicts || len(hooks.Retries) != 0 {
				t.Fatalf("counters: conflicts=%v retries=%v", hooks.Conflicts, hooks.Retries)
			}
		})
	}
}

func TestExecuteWriteRetriesTransientFailure(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
		Retry:  fastRetry,
	}, "aggregate.test.locked", func(dbctx.Context) error {
		calls++
		if calls == 1 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("executeWrite: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
	if len(hooks.Retries) != 1 || hooks.Retries[0] != "aggregate.test.locked" {
		t.Fatalf("retries: got=%v", hooks.Retries)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("one operation with final status expected, got=%+v", hooks.Operations)
	}
}

func TestExecuteWriteGivesUpAfterMaxAttempts(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
		Retry:  fastRetry,
	}, "aggregate.test.retry", func(dbctx.Context) error {
		calls++
		return RetryableError("temporary lock timeout")
	})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("code: want retryable got=%v", err)
	}
	if calls != fastRetry.MaxAttempts {
		t.Fatalf("calls: want=%d got=%d", fastRetry.MaxAttempts, calls)
	}
	if len(hooks.Retries) != fastRetry.MaxAttempts-1 {
		t.Fatalf("retries: want=%d got=%v", fastRetry.MaxAttempts-1, hooks.Retries)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
		t.Fatalf("operations: got=%+v", hooks.Operations)
	}
}

func TestExecuteWriteStopsRetryingWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hooks := &spyHooks{}
	calls := 0
	err := executeWrite(ctx, BaseDeps{
		Runner: spyTxRunner{},
		Hooks:  hooks,
		Retry:  RetryPolicy{MaxAttempts: 5, Backoff: time.Hour},
	}, "aggregate.test.cancel", func(dbctx.Context) error {
		calls++
		cancel()
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 || len(hooks.Retries) != 0 {
		t.Fatalf("canceled write must not retry: calls=%d retries=%v", calls, hooks.Retries)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	cases := map[string]error{
		"success":                                nil,
		string(domainagg.CodeInvariantViolation): InvariantError("x"),
		string(domainagg.CodeConflict):           ConflictError("x"),
		string(domainagg.CodeRetryable):          context.DeadlineExceeded,
	}
	for want, in := range cases {
		if got := aggregateErrorStatus(in); got != want {
			t.Fatalf("status(%v): want=%s got=%s", in, want, got)
		}
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) { h.Conflicts = append(h.Conflicts, name) }
func (h *spyHooks) IncRetry(name string)    { h.Retries = append(h.Retries, name) }
