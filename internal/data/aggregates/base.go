package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/logger"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 25 * time.Millisecond
)

// RetryPolicy bounds how often a write that failed with CodeRetryable (a
// locked SQLite file, a Postgres serialization failure) is run again. Each
// attempt is a fresh transaction.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.Backoff
}

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Retry  RetryPolicy
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Retry.MaxAttempts <= 0 {
		d.Retry.MaxAttempts = defaultMaxAttempts
	}
	if d.Retry.Backoff <= 0 {
		d.Retry.Backoff = defaultBackoff
	}
	return d
}

// executeWrite runs fn in a transaction, retrying retryable failures, and
// reports one operation per call to the hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var mapped error
	for attempt := 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			break
		}
		if attempt >= deps.Retry.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Hooks.IncRetry(op)
		deps.Log.Warn("aggregate write retrying", "operation", op, "attempt", attempt, "error", mapped)
		if err := sleepCtx(ctx, deps.Retry.delay(attempt)); err != nil {
			mapped = MapError(op, err)
			break
		}
	}

	status := aggregateErrorStatus(mapped)
	if domainagg.IsCode(mapped, domainagg.CodeConflict) {
		deps.Hooks.IncConflict(op)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
