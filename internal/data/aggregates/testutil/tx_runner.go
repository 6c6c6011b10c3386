package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/savestats/internal/data/aggregates"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
)

// InjectedTxRunner runs aggregate bodies without a transaction and fails on
// demand. Bodies see dbctx.Context without Tx, so repos write through their
// base handle.
type InjectedTxRunner struct {
	mu sync.Mutex

	// FailBegin is returned before the body runs. With FailBeginTimes > 0 only
	// the first FailBeginTimes attempts fail, which models a lock that clears.
	FailBegin      error
	FailBeginTimes int
	FailCommit     error

	BeginCalls    int
	BodyCalls     int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	var beginErr error
	if r.FailBegin != nil && (r.FailBeginTimes <= 0 || r.BeginCalls <= r.FailBeginTimes) {
		beginErr = r.FailBegin
	}
	failCommit := r.FailCommit
	r.mu.Unlock()

	if beginErr != nil {
		return beginErr
	}
	if fn != nil {
		r.mu.Lock()
		r.BodyCalls++
		r.mu.Unlock()
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.rollback()
			return err
		}
	}
	if failCommit != nil {
		r.rollback()
		return failCommit
	}
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
	return nil
}

func (r *InjectedTxRunner) rollback() {
	r.mu.Lock()
	r.RollbackCalls++
	r.mu.Unlock()
}
