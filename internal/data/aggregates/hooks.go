package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/platform/logger"
)

// Hooks receives aggregate write signals.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
	log     *logger.Logger
}

// NewObservabilityHooks reports aggregate writes to metrics and, when log is
// set, emits a debug line per operation.
func NewObservabilityHooks(metrics *observability.Metrics, log *logger.Logger) Hooks {
	if metrics == nil && log == nil {
		return noopHooks{}
	}
	if log != nil {
		log = log.With("component", "AggregateHooks")
	}
	return &observabilityHooks{metrics: metrics, log: log}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil {
		return
	}
	name, status = strings.TrimSpace(name), strings.TrimSpace(status)
	h.metrics.ObserveAggregateOperation(name, status, dur)
	if h.log != nil {
		h.log.Debug("aggregate write", "operation", name, "status", status, "duration_ms", dur.Milliseconds())
	}
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil {
		return
	}
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil {
		return
	}
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}
