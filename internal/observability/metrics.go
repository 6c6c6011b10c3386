package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/savestats/internal/platform/logger"
)

// Metrics holds the ingestion counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	pipelineRuns       *CounterVec
	pipelineLatency    *HistogramVec
	stageLatency       *HistogramVec
	politiesExtracted  *Counter
	politiesSkipped    *CounterVec
	rowsWritten        *CounterVec
	checksumCache      *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec
	lastRunTimestamp   *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init installs the process-wide metrics instance.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Debug("metrics initialized")
		}
	})
	return instance
}

func Current() *Metrics {
	return instance
}

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

func New() *Metrics {
	return &Metrics{
		pipelineRuns: NewCounterVec("ss_pipeline_runs_total", "Save ingestion runs by outcome.", []string{"outcome"}),
		pipelineLatency: NewHistogramVec(
			"ss_pipeline_duration_seconds",
			"End-to-end save ingestion latency by outcome.",
			[]string{"outcome"},
			durationBuckets,
		),
		stageLatency: NewHistogramVec(
			"ss_pipeline_stage_duration_seconds",
			"Per-stage ingestion latency by stage/status.",
			[]string{"stage", "status"},
			durationBuckets,
		),
		politiesExtracted: NewCounter("ss_polities_extracted_total", "Player polities extracted."),
		politiesSkipped:   NewCounterVec("ss_polities_skipped_total", "Player polities skipped by reason.", []string{"reason"}),
		rowsWritten:       NewCounterVec("ss_rows_written_total", "Rows committed by table.", []string{"table"}),
		checksumCache:     NewCounterVec("ss_checksum_cache_total", "Checksum cache lookups by result.", []string{"result"}),
		aggregateLatency: NewHistogramVec(
			"ss_aggregate_operation_duration_seconds",
			"Aggregate write latency by operation/status.",
			[]string{"operation", "status"},
			durationBuckets,
		),
		aggregateConflicts: NewCounterVec("ss_aggregate_conflicts_total", "Aggregate writes that hit a uniqueness conflict.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("ss_aggregate_retries_total", "Aggregate write attempts retried after a retryable failure.", []string{"operation"}),
		lastRunTimestamp:   NewGauge("ss_last_run_timestamp_seconds", "Unix time of the last finished ingestion run."),
	}
}

func (m *Metrics) ObservePipelineRun(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	m.pipelineRuns.Inc(outcome)
	m.pipelineLatency.Observe(dur.Seconds(), outcome)
	m.lastRunTimestamp.Set(float64(time.Now().Unix()))
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), strings.TrimSpace(stage), strings.TrimSpace(status))
}

func (m *Metrics) IncPolityExtracted() {
	if m == nil {
		return
	}
	m.politiesExtracted.Inc()
}

func (m *Metrics) IncPolitySkipped(reason string) {
	if m == nil {
		return
	}
	m.politiesSkipped.Inc(strings.TrimSpace(reason))
}

func (m *Metrics) AddRowsWritten(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsWritten.Add(float64(n), strings.TrimSpace(table))
}

func (m *Metrics) IncChecksumCache(result string) {
	if m == nil {
		return
	}
	m.checksumCache.Inc(strings.TrimSpace(result))
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateLatency.Observe(dur.Seconds(), name, status)
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(name)
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(name)
}

// PolitiesExtracted reports the running extracted-polity count.
func (m *Metrics) PolitiesExtracted() float64 {
	if m == nil {
		return 0
	}
	return m.politiesExtracted.Value()
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.pipelineRuns,
		m.pipelineLatency,
		m.stageLatency,
		m.politiesExtracted,
		m.politiesSkipped,
		m.rowsWritten,
		m.checksumCache,
		m.aggregateLatency,
		m.aggregateConflicts,
		m.aggregateRetries,
		m.lastRunTimestamp,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile dumps the exposition text to path through a temp file and rename,
// so a textfile collector never reads a partial file.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".metrics-*.prom")
	if err != nil {
		return fmt.Errorf("metrics temp file: %w", err)
	}
	if err := m.WritePrometheus(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ---- lightweight metric primitives (Prometheus exposition) ----

type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl] += v
	c.mu.Unlock()
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range sortedKeys(c.values) {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", c.name, k, c.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type Counter struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val++
	c.mu.Unlock()
}

func (c *Counter) Add(v float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val += v
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", c.name); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", c.name, c.val)
	return err
}

type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.val = v
	g.mu.Unlock()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s gauge\n", g.name); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %f\n", g.name, g.val)
	return err
}

type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.RWMutex
	values     map[string]*histogram
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	total   uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	lbl := labelString(h.labelNames, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[lbl]
	if !ok {
		hist = &histogram{
			buckets: h.buckets,
			counts:  make([]uint64, len(h.buckets)+1),
		}
		h.values[lbl] = hist
	}
	hist.sum += v
	hist.total++
	for i, b := range hist.buckets {
		if v <= b {
			hist.counts[i]++
		}
	}
	hist.counts[len(hist.counts)-1]++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", h.name, h.help); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s histogram\n", h.name); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		v := h.values[k]
		for i, b := range v.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), v.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), v.counts[len(v.counts)-1]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %f\n", h.name, k, v.sum); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_count%s %d\n", h.name, k, v.total); err != nil {
			return err
		}
	}
	return nil
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		b.WriteString(name)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(val))
		b.WriteString("\"")
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}

func withLe(labels string, le string) string {
	le = escapeLabel(le)
	if labels == "" || labels == "{}" {
		return "{le=\"" + le + "\"}"
	}
	if strings.HasSuffix(labels, "}") {
		return strings.TrimSuffix(labels, "}") + ",le=\"" + le + "\"}"
	}
	return "{le=\"" + le + "\"}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
