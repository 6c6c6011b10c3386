package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/savestats/internal/ingestion/pipeline"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/config"
)

const scotlandSave = `date: 1474.7.4
players:
  - name: alice
    tag: SCO
countries:
  - tag: SCO
    human: true
    income: [1.0, 2.0, 3.0]
    manpower: 1000.0
    max_manpower: 1500.0
    trade_income: 5.0
    history:
      - date: 1444.11.11
        monarch: {name: "James II", adm: 3, dip: 2, mil: 4}
income_ledger:
  - {tag: SCO, year: 1470, value: 10.0}
  - {tag: SCO, year: 1470, value: 12.0}
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		LogMode:            "test",
		DBDriver:           "sqlite",
		SQLitePath:         filepath.Join(dir, "savestats.db"),
		ObjectStorageMode:  "local",
		LocalStorageDir:    filepath.Join(dir, "objects"),
		SaveBucket:         "eusavestats-bucket",
		AuthMode:           "opaque",
		TokenTTL:           time.Hour,
		AnnualIncomePolicy: "last",
		MetricsFile:        filepath.Join(dir, "savestats.prom"),
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestAppUploadAndIngestByKey(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig(t))

	u, err := a.Services.Auth.Register(ctx, "alice", "alice@example.com", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := a.Services.Auth.Login(ctx, "alice", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	key, err := a.Services.Saves.Upload(ctx, u.ID, "scotland.eu4", []byte(scotlandSave))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := a.Ingest(ctx, IngestRequest{Token: token, Key: key})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Outcome != pipeline.OutcomeProcessed || res.FileName != "scotland.eu4" {
		t.Fatalf("result: got=%+v", res)
	}
	if res.UserID != u.ID || res.PolitiesProcessed != 1 || res.EventsWritten != 1 || res.IncomeEntriesWritten != 1 {
		t.Fatalf("counts: got=%+v", res)
	}

	owned, err := a.Services.Saves.ListOwned(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListOwned: %v", err)
	}
	if len(owned) != 1 || owned[0].Checksum != res.Checksum || len(owned[0].Tags) != 1 || owned[0].Tags[0] != "SCO" {
		t.Fatalf("owned: got=%+v", owned)
	}

	// Same bytes from local disk are recognised as already processed.
	path := filepath.Join(t.TempDir(), "copy.eu4")
	if err := os.WriteFile(path, []byte(scotlandSave), 0o644); err != nil {
		t.Fatalf("write copy: %v", err)
	}
	again, err := a.Ingest(ctx, IngestRequest{Token: token, FilePath: path})
	if err != nil {
		t.Fatalf("Ingest copy: %v", err)
	}
	if !again.Skipped() || again.Checksum != res.Checksum {
		t.Fatalf("copy: want skipped with same checksum, got=%+v", again)
	}
}

func TestAppIngestRejectsBeforeProcessing(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig(t))
	if _, err := a.Services.Auth.Register(ctx, "bob", "bob@example.com", "password1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := a.Services.Auth.Login(ctx, "bob", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	cases := []struct {
		name string
		req  IngestRequest
		kind ingesterr.Kind
	}{
		{"no source", IngestRequest{Token: token}, ingesterr.KindValidation},
		{"both sources", IngestRequest{Token: token, FilePath: "a.eu4", Key: "user_1/a.eu4"}, ingesterr.KindValidation},
		{"bad token", IngestRequest{Token: "not-a-token", FilePath: "a.eu4"}, ingesterr.KindAuth},
		{"missing file", IngestRequest{Token: token, FilePath: filepath.Join(t.TempDir(), "nope.eu4")}, ingesterr.KindValidation},
		{"missing key", IngestRequest{Token: token, Key: "user_1/nope.eu4"}, ingesterr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Ingest(ctx, tc.req)
			if !ingesterr.Is(err, tc.kind) {
				t.Fatalf("kind: want=%s got=%s (%v)", tc.kind, ingesterr.KindOf(err), err)
			}
		})
	}
}

func TestAppCloseWritesMetricsFile(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Close()
	b, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("metrics file is empty")
	}
}

func TestNewRejectsBadIncomePolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.AnnualIncomePolicy = "average"
	if _, err := New(context.Background(), cfg, "test"); err == nil {
		t.Fatalf("expected error for unknown income policy")
	}
}
