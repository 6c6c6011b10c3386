package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/savestats/internal/data/aggregates"
	"github.com/yungbote/savestats/internal/data/repos"
	repotest "github.com/yungbote/savestats/internal/data/repos/testutil"
	types "github.com/yungbote/savestats/internal/domain"
	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/ingestion/checksum"
	"github.com/yungbote/savestats/internal/ingestion/income"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/savedoc"
)

type fixture struct {
	db      *gorm.DB
	set     repos.Set
	userID  int64
	metrics *observability.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := repotest.DB(t)
	u := repotest.SeedUser(t, context.Background(), db, "alice")
	return fixture{
		db:      db,
		set:     repos.NewSet(db, repotest.Logger(t)),
		userID:  u.ID,
		metrics: observability.New(),
	}
}

func (f fixture) gate(t *testing.T) checksum.Gate {
	t.Helper()
	lookup := checksum.LookupFunc(func(ctx context.Context, sum string) (bool, error) {
		return f.set.Files.ExistsByChecksum(dbctx.Context{Ctx: ctx}, sum)
	})
	return checksum.NewGate(repotest.Logger(t), lookup, nil)
}

func (f fixture) pipeline(t *testing.T, opts Options) Pipeline {
	t.Helper()
	log := repotest.Logger(t)
	agg := aggregates.NewSaveFileAggregate(aggregates.SaveFileAggregateDeps{
		Base:      aggregates.BaseDeps{DB: f.db, Log: log},
		Files:     f.set.Files,
		Ownership: f.set.Ownership,
		Snapshots: f.set.Snapshots,
		Events:    f.set.Events,
		Income:    f.set.Income,
	})
	return New(Deps{
		Log:       log,
		Gate:      f.gate(t),
		Aggregate: agg,
		Metrics:   f.metrics,
	}, opts)
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return b
}

func TestRunScotlandEndToEnd(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	ctx := context.Background()

	res, err := p.Run(ctx, Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeProcessed {
		t.Fatalf("outcome: want=%s got=%s", OutcomeProcessed, res.Outcome)
	}
	if res.PolitiesProcessed != 1 || res.EventsWritten != 2 || res.IncomeEntriesWritten != 2 {
		t.Fatalf("counts: got=%+v", res)
	}
	if len(res.SkippedTags) != 0 {
		t.Fatalf("skipped tags: got=%v", res.SkippedTags)
	}

	for model, want := range map[any]int64{
		&types.ProcessedFile{}:   1,
		&types.FileOwnership{}:   1,
		&types.PolitySnapshot{}:  1,
		&types.HistoricalEvent{}: 2,
		&types.AnnualIncome{}:    2,
	} {
		if got := repotest.Count(t, f.db, model); got != want {
			t.Fatalf("%T rows: want=%d got=%d", model, want, got)
		}
	}

	dbc := dbctx.Context{Ctx: ctx}
	snaps, err := f.set.Snapshots.GetByChecksum(dbc, res.Checksum)
	if err != nil || len(snaps) != 1 {
		t.Fatalf("snapshots: len=%d err=%v", len(snaps), err)
	}
	s := snaps[0]
	if s.Tag != "SCO" || s.Date != "1474.07.04" || s.Manpower != 1000 || s.MaxManpower != 1500 || s.TradeIncome != 5 {
		t.Fatalf("snapshot: got=%+v", s)
	}
	var components []float64
	if err := json.Unmarshal(s.IncomeComponents, &components); err != nil {
		t.Fatalf("components: %v", err)
	}
	if !reflect.DeepEqual(components, []float64{1, 2, 3}) {
		t.Fatalf("components: want=[1 2 3] got=%v", components)
	}

	evs, err := f.set.Events.GetByChecksumTag(dbc, res.Checksum, "SCO")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 2 || evs[0].Kind != "Monarch" || evs[1].Kind != "Unknown" {
		t.Fatalf("event kinds: got=%+v", evs)
	}
	if evs[1].Detail == "" || !strings.Contains(evs[1].Detail, "union") {
		t.Fatalf("unknown detail should capture the original variant: got=%q", evs[1].Detail)
	}

	rows, err := f.set.Income.GetByChecksumTag(dbc, res.Checksum, "SCO")
	if err != nil {
		t.Fatalf("income: %v", err)
	}
	got := map[int]float64{}
	for _, r := range rows {
		got[r.Year] = r.Total
	}
	if want := map[int]float64{1470: 144, 1471: 96}; !reflect.DeepEqual(got, want) {
		t.Fatalf("annual income: want=%v got=%v", want, got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	ctx := context.Background()
	in := Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID}

	first, err := p.Run(ctx, in)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run(ctx, in)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Skipped() {
		t.Fatalf("second run outcome: want=%s got=%s", OutcomeSkipped, second.Outcome)
	}
	if second.Checksum != first.Checksum {
		t.Fatalf("checksum: want=%s got=%s", first.Checksum, second.Checksum)
	}
	if second.EventsWritten != 0 || second.PolitiesProcessed != 0 {
		t.Fatalf("skipped run reported writes: got=%+v", second)
	}
	if got := repotest.Count(t, f.db, &types.ProcessedFile{}); got != 1 {
		t.Fatalf("processed_files rows: want=1 got=%d", got)
	}
	if got := repotest.Count(t, f.db, &types.HistoricalEvent{}); got != 2 {
		t.Fatalf("historical_event rows: want=2 got=%d", got)
	}
}

func TestRunSkipsPolitiesWithoutData(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})

	res, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "iberia.yaml"), FileName: "iberia.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeProcessed || res.PolitiesProcessed != 1 {
		t.Fatalf("result: got=%+v", res)
	}
	if want := []string{"SPA", "POR"}; !reflect.DeepEqual(res.SkippedTags, want) {
		t.Fatalf("skipped: want=%v got=%v", want, res.SkippedTags)
	}
	if len(res.Polities) != 1 || res.Polities[0].Tag != "CAS" {
		t.Fatalf("polities: got=%+v", res.Polities)
	}
	if got := res.Polities[0].AnnualIncome.ByYear(); got[1499] != 72 || got[1498] != 48 {
		t.Fatalf("CAS income: got=%v", got)
	}
	if got := repotest.Count(t, f.db, &types.PolitySnapshot{}); got != 1 {
		t.Fatalf("snapshot rows: want=1 got=%d", got)
	}
}

func TestRunSumPolicyAndParallelKeepOrder(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{IncomePolicy: income.PolicySum, Parallel: true, Concurrency: 2})

	res, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "iberia.yaml"), FileName: "iberia.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []string{"SPA", "POR"}; !reflect.DeepEqual(res.SkippedTags, want) {
		t.Fatalf("skipped: want=%v got=%v", want, res.SkippedTags)
	}
	if got := res.Polities[0].AnnualIncome.ByYear(); got[1499] != 132 {
		t.Fatalf("sum policy 1499: want=132 got=%v", got[1499])
	}
}

func TestRunNoPlayersStillRecordsFile(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	blob := []byte("date: 1444.11.11\ncountries:\n  - tag: FRA\n    income: [1.0]\n")

	res, err := p.Run(context.Background(), Input{Blob: blob, FileName: "ai_only.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeProcessed || res.PolitiesProcessed != 0 {
		t.Fatalf("result: got=%+v", res)
	}
	if got := repotest.Count(t, f.db, &types.ProcessedFile{}); got != 1 {
		t.Fatalf("processed_files rows: want=1 got=%d", got)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		in   Input
		kind ingesterr.Kind
	}{
		{"empty blob", Input{FileName: "a.eu4", UserID: f.userID}, ingesterr.KindValidation},
		{"no file name", Input{Blob: []byte("date: 1444.11.11"), UserID: f.userID}, ingesterr.KindValidation},
		{"no user", Input{Blob: []byte("date: 1444.11.11"), FileName: "a.eu4"}, ingesterr.KindValidation},
		{"undecodable", Input{Blob: []byte("countries: [unclosed"), FileName: "a.eu4", UserID: f.userID}, ingesterr.KindDecode},
		{"missing date", Input{Blob: []byte("players: []"), FileName: "a.eu4", UserID: f.userID}, ingesterr.KindDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Run(ctx, tc.in)
			if !ingesterr.Is(err, tc.kind) {
				t.Fatalf("kind: want=%s got=%s (%v)", tc.kind, ingesterr.KindOf(err), err)
			}
		})
	}
	if got := repotest.Count(t, f.db, &types.ProcessedFile{}); got != 0 {
		t.Fatalf("processed_files rows: want=0 got=%d", got)
	}
}

type stubAggregate struct {
	result domainagg.CommitResult
	err    error
	calls  int
}

func (s *stubAggregate) Contract() domainagg.Contract { return domainagg.SaveFileAggregateContract }

func (s *stubAggregate) Commit(context.Context, domainagg.SaveFileCommit) (domainagg.CommitResult, error) {
	s.calls++
	return s.result, s.err
}

func TestRunCommitFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	cause := domainagg.NewError(domainagg.CodeInternal, "aggregate.savefile.commit", "insert failed", errors.New("disk full"))
	p := New(Deps{Log: repotest.Logger(t), Gate: f.gate(t), Aggregate: &stubAggregate{err: cause}}, Options{})

	res, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID})
	if !ingesterr.Is(err, ingesterr.KindPersistence) {
		t.Fatalf("kind: want=%s got=%s (%v)", ingesterr.KindPersistence, ingesterr.KindOf(err), err)
	}
	var ie *ingesterr.Error
	if !errors.As(err, &ie) || ie.Checksum == "" || ie.Checksum != res.Checksum {
		t.Fatalf("persistence error should carry the checksum: %v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("underlying aggregate code lost: %v", err)
	}
}

func TestRunConcurrentDuplicateCommitIsSkip(t *testing.T) {
	f := newFixture(t)
	stub := &stubAggregate{result: domainagg.CommitResult{Duplicate: true}}
	p := New(Deps{Log: repotest.Logger(t), Gate: f.gate(t), Aggregate: stub, Metrics: f.metrics}, Options{})

	res, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Skipped() || stub.calls != 1 {
		t.Fatalf("want skipped after one commit attempt: res=%+v calls=%d", res, stub.calls)
	}
	if len(res.Interchange().Polities) != 0 {
		t.Fatalf("skipped run should carry no polities")
	}
}

func TestRunStoresMalformedKnownVariantAsUnknown(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	blob := []byte(`date: 1474.7.4
players:
  - {name: alice, tag: SCO}
countries:
  - tag: SCO
    human: true
    income: [1.0]
    history:
      - {date: 1444.11.11, monarch: {name: James II, adm: 3, dip: 2, mil: 4}}
      - {date: 1460.1.1, changed_country_map_color_from: [10, 20, 30, 40]}
income_ledger:
  - {tag: SCO, year: 1470, value: 10.0}
`)

	res, err := p.Run(context.Background(), Input{Blob: blob, FileName: "scotland.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != OutcomeProcessed || res.PolitiesProcessed != 1 || res.EventsWritten != 2 {
		t.Fatalf("result: got=%+v", res)
	}
	evs, err := f.set.Events.GetByChecksumTag(dbctx.Context{Ctx: context.Background()}, res.Checksum, "SCO")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 2 || evs[0].Kind != "Monarch" || evs[1].Kind != "Unknown" {
		t.Fatalf("event kinds: got=%+v", evs)
	}
	if !strings.Contains(evs[1].Detail, "changed_country_map_color_from") || !strings.Contains(evs[1].Detail, "40") {
		t.Fatalf("unknown detail should keep the raw entry: got=%q", evs[1].Detail)
	}
}

func TestRunKeepsPolityWithHistoryButNoLedger(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	blob := []byte(`date: 1474.7.4
players:
  - {name: alice, tag: SCO}
countries:
  - tag: SCO
    human: true
    history:
      - {date: 1450.1.1, capital: 248}
`)

	res, err := p.Run(context.Background(), Input{Blob: blob, FileName: "scotland.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.PolitiesProcessed != 1 || res.EventsWritten != 1 || res.IncomeEntriesWritten != 0 || len(res.SkippedTags) != 0 {
		t.Fatalf("result: got=%+v", res)
	}
	if got := repotest.Count(t, f.db, &types.AnnualIncome{}); got != 0 {
		t.Fatalf("annual_income rows: want=0 got=%d", got)
	}
}

type cancelingDecoder struct {
	cancel context.CancelFunc
}

func (d cancelingDecoder) Decode(data []byte) (savedoc.Document, error) {
	d.cancel()
	return savedoc.TextDecoder{}.Decode(data)
}

func TestRunStopsWhenCanceledAfterDecode(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubAggregate{}
	p := New(Deps{
		Log:       repotest.Logger(t),
		Gate:      f.gate(t),
		Decoder:   cancelingDecoder{cancel: cancel},
		Aggregate: stub,
	}, Options{})

	_, err := p.Run(ctx, Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("commit calls: want=0 got=%d", stub.calls)
	}
}

func TestResultInterchange(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})

	res, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "scotland.yaml"), FileName: "scotland.eu4", UserID: f.userID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := json.Marshal(res.Interchange())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc struct {
		FileName string `json:"file_name"`
		Checksum string `json:"checksum"`
		UserID   int64  `json:"user_id"`
		Polities []struct {
			Tag      string `json:"tag"`
			Snapshot struct {
				Date             string    `json:"date"`
				IncomeComponents []float64 `json:"income_components"`
			} `json:"snapshot"`
			Events       []map[string]any `json:"events"`
			AnnualIncome []struct {
				Year  int     `json:"year"`
				Total float64 `json:"total"`
			} `json:"annual_income"`
		} `json:"polities"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.FileName != "scotland.eu4" || doc.Checksum != res.Checksum || doc.UserID != f.userID {
		t.Fatalf("header: got=%+v", doc)
	}
	if len(doc.Polities) != 1 {
		t.Fatalf("polities: want=1 got=%d", len(doc.Polities))
	}
	sco := doc.Polities[0]
	if sco.Tag != "SCO" || sco.Snapshot.Date != "1474.07.04" || len(sco.Snapshot.IncomeComponents) != 3 {
		t.Fatalf("SCO: got=%+v", sco)
	}
	if len(sco.Events) != 2 || len(sco.AnnualIncome) != 2 || sco.AnnualIncome[0].Year != 1470 || sco.AnnualIncome[0].Total != 144 {
		t.Fatalf("SCO events/income: got=%+v", sco)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, Options{})
	if _, err := p.Run(context.Background(), Input{Blob: readTestdata(t, "iberia.yaml"), FileName: "iberia.eu4", UserID: f.userID}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.metrics.PolitiesExtracted(); got != 1 {
		t.Fatalf("polities extracted: want=1 got=%v", got)
	}
}
