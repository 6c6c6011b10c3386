package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsWritePrometheus(t *testing.T) {
	m := New()
	m.ObservePipelineRun("processed", 20*time.Millisecond)
	m.ObservePipelineRun("skipped", time.Millisecond)
	m.IncPolityExtracted()
	m.IncPolityExtracted()
	m.IncPolitySkipped("not_found")
	m.AddRowsWritten("historical_event", 3)
	m.IncChecksumCache("hit")
	m.ObserveAggregateOperation("aggregate.savefile.commit", "success", 5*time.Millisecond)
	m.IncAggregateConflict("aggregate.savefile.commit")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`ss_pipeline_runs_total{outcome="processed"} 1.000000`,
		`ss_pipeline_runs_total{outcome="skipped"} 1.000000`,
		`ss_polities_extracted_total 2.000000`,
		`ss_polities_skipped_total{reason="not_found"} 1.000000`,
		`ss_rows_written_total{table="historical_event"} 3.000000`,
		`ss_checksum_cache_total{result="hit"} 1.000000`,
		`ss_aggregate_conflicts_total{operation="aggregate.savefile.commit"} 1.000000`,
		`ss_aggregate_operation_duration_seconds_count{operation="aggregate.savefile.commit",status="success"} 1`,
		`# TYPE ss_pipeline_duration_seconds histogram`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if got := m.PolitiesExtracted(); got != 2 {
		t.Fatalf("PolitiesExtracted: want=2 got=%v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObservePipelineRun("processed", time.Second)
	m.IncPolitySkipped("x")
	if err := m.WriteFile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Fatalf("nil WriteFile: %v", err)
	}
}

func TestMetricsWriteFile(t *testing.T) {
	m := New()
	m.IncChecksumCache("miss")
	path := filepath.Join(t.TempDir(), "sub", "savestats.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `ss_checksum_cache_total{result="miss"} 1.000000`) {
		t.Fatalf("unexpected file content:\n%s", b)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: got=%s", got)
	}
	if got := withLe("", "0.5"); got != `{le="0.5"}` {
		t.Fatalf("withLe empty: got=%s", got)
	}
}
