// Package pipeline runs one save file through checksum gating, decoding,
// player resolution, per-polity extraction and the atomic commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/ingestion/checksum"
	"github.com/yungbote/savestats/internal/ingestion/income"
	"github.com/yungbote/savestats/internal/ingestion/players"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/platform/logger"
	"github.com/yungbote/savestats/internal/savedoc"
)

const (
	stageChecksum = "checksum"
	stageDecode   = "decode"
	stageResolve  = "resolve"
	stageExtract  = "extract"
	stageCommit   = "commit"
)

// Input is one fully loaded save and the user it is processed for.
type Input struct {
	Blob       []byte
	FileName   string
	UserID     int64
	UploadedAt time.Time
}

type Options struct {
	IncomePolicy income.Policy
	// Parallel extracts polities concurrently. Output order is unaffected.
	Parallel    bool
	Concurrency int
}

type Deps struct {
	Log       *logger.Logger
	Gate      checksum.Gate
	Decoder   savedoc.Decoder
	Aggregate domainagg.SaveFileAggregate
	Metrics   *observability.Metrics
}

type Pipeline interface {
	Run(ctx context.Context, in Input) (Result, error)
}

type pipeline struct {
	log       *logger.Logger
	gate      checksum.Gate
	decoder   savedoc.Decoder
	aggregate domainagg.SaveFileAggregate
	metrics   *observability.Metrics
	opts      Options
}

func New(deps Deps, opts Options) Pipeline {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	if deps.Decoder == nil {
		deps.Decoder = savedoc.TextDecoder{}
	}
	if opts.IncomePolicy == "" {
		opts.IncomePolicy = income.PolicyLastWins
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &pipeline{
		log:       log.With("service", "IngestionPipeline"),
		gate:      deps.Gate,
		decoder:   deps.Decoder,
		aggregate: deps.Aggregate,
		metrics:   deps.Metrics,
		opts:      opts,
	}
}

func (p *pipeline) Run(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("savestats.file_name", strings.TrimSpace(in.FileName)),
		attribute.Int("savestats.blob_bytes", len(in.Blob)),
	))
	defer span.End()

	res, err := p.run(ctx, in)
	res.Duration = time.Since(started)

	outcome := string(res.Outcome)
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ingesterr.KindOf(err)))
	} else {
		span.SetAttributes(
			attribute.String("savestats.outcome", outcome),
			attribute.Int("savestats.polities", res.PolitiesProcessed),
			attribute.Int("savestats.events", res.EventsWritten),
			attribute.Int("savestats.income_entries", res.IncomeEntriesWritten),
		)
	}
	p.metrics.ObservePipelineRun(outcome, res.Duration)
	return res, err
}

func (p *pipeline) run(ctx context.Context, in Input) (Result, error) {
	res := Result{FileName: strings.TrimSpace(in.FileName), UserID: in.UserID}
	if err := validateInput(in); err != nil {
		return res, err
	}
	if p.gate == nil || p.aggregate == nil {
		return res, errors.New("pipeline: gate and aggregate are required")
	}

	var decision checksum.Decision
	if err := p.stage(ctx, stageChecksum, func(ctx context.Context) error {
		d, err := p.gate.ShouldProcess(ctx, in.Blob)
		decision = d
		return err
	}); err != nil {
		return res, err
	}
	sum := decision.Checksum
	res.Checksum = sum
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("savestats.checksum", sum))
	log := p.log.With("checksum", sum, "file_name", res.FileName, "user_id", in.UserID)

	if decision.Skip {
		res.Outcome = OutcomeSkipped
		log.Info("file already processed; nothing to do")
		return res, nil
	}

	var doc savedoc.Document
	if err := p.stage(ctx, stageDecode, func(context.Context) error {
		d, err := p.decoder.Decode(in.Blob)
		if err != nil {
			return ingesterr.Decode("pipeline.decode", err).WithChecksum(sum)
		}
		doc = d
		return nil
	}); err != nil {
		log.Warn("save could not be decoded", "error", err)
		return res, err
	}

	var timelines []players.Timeline
	if err := p.stage(ctx, stageResolve, func(ctx context.Context) error {
		timelines = players.ResolvePlayerPolities(doc)
		return ctx.Err()
	}); err != nil {
		return res, err
	}
	if len(timelines) == 0 {
		log.Info("no player-controlled polities in save")
	}

	var extracted []extraction
	if err := p.stage(ctx, stageExtract, func(ctx context.Context) error {
		out, err := p.extractAll(ctx, doc, timelines)
		extracted = out
		return err
	}); err != nil {
		return res, err
	}

	outputs := make([]PolityOutput, 0, len(extracted))
	for _, ex := range extracted {
		if ex.err != nil {
			if !ingesterr.Is(ex.err, ingesterr.KindNotFound) {
				return res, ex.err
			}
			log.Warn("skipping polity with no extractable data", "tag", ex.tag, "error", ex.err)
			p.metrics.IncPolitySkipped(ex.reason)
			res.SkippedTags = append(res.SkippedTags, ex.tag)
			continue
		}
		p.metrics.IncPolityExtracted()
		outputs = append(outputs, ex.out)
	}

	var committed domainagg.CommitResult
	if err := p.stage(ctx, stageCommit, func(ctx context.Context) error {
		cr, err := p.aggregate.Commit(ctx, commitFor(sum, res.FileName, in, outputs))
		if err != nil {
			return ingesterr.Persistence("pipeline.commit", sum, err)
		}
		committed = cr
		return nil
	}); err != nil {
		log.Error("commit failed; nothing was written", "table", domainagg.TableOf(err), "error", err)
		return res, err
	}

	p.gate.MarkProcessed(ctx, sum)
	if committed.Duplicate {
		res.Outcome = OutcomeSkipped
		res.SkippedTags = nil
		log.Info("file committed concurrently by another run; skipping")
		return res, nil
	}

	res.Outcome = OutcomeProcessed
	res.Polities = outputs
	res.PolitiesProcessed = committed.PolitiesWritten
	res.EventsWritten = committed.EventsWritten
	res.IncomeEntriesWritten = committed.IncomeEntriesWritten

	p.metrics.AddRowsWritten("processed_files", 1)
	p.metrics.AddRowsWritten("file_ownership", 1)
	p.metrics.AddRowsWritten("polity_snapshot", committed.PolitiesWritten)
	p.metrics.AddRowsWritten("historical_event", committed.EventsWritten)
	p.metrics.AddRowsWritten("annual_income", committed.IncomeEntriesWritten)

	log.Info(
		"save processed",
		"polities", res.PolitiesProcessed,
		"events", res.EventsWritten,
		"income_entries", res.IncomeEntriesWritten,
		"skipped_tags", res.SkippedTags,
	)
	return res, nil
}

func validateInput(in Input) error {
	const op = "pipeline.validate"
	if len(in.Blob) == 0 {
		return ingesterr.Validation(op, errors.New("save file is empty"))
	}
	if strings.TrimSpace(in.FileName) == "" {
		return ingesterr.Validation(op, errors.New("file name required"))
	}
	if in.UserID <= 0 {
		return ingesterr.Validation(op, fmt.Errorf("invalid user id %d", in.UserID))
	}
	return nil
}

// stage runs fn under its own span and records its latency.
func (p *pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "pipeline."+name)
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.ObserveStage(name, status, time.Since(started))
	return err
}

func commitFor(sum, fileName string, in Input, outputs []PolityOutput) domainagg.SaveFileCommit {
	c := domainagg.SaveFileCommit{
		Checksum:   sum,
		FileName:   fileName,
		UserID:     in.UserID,
		UploadedAt: in.UploadedAt,
		Polities:   make([]domainagg.PolityOutput, 0, len(outputs)),
	}
	for _, o := range outputs {
		po := domainagg.PolityOutput{
			Tag:              o.Tag,
			Date:             o.Snapshot.Date,
			IncomeComponents: o.Snapshot.IncomeComponents,
			Manpower:         o.Snapshot.Manpower,
			MaxManpower:      o.Snapshot.MaxManpower,
			TradeIncome:      o.Snapshot.TradeIncome,
			Events:           make([]domainagg.EventEntry, 0, len(o.Events)),
			AnnualIncome:     make([]domainagg.IncomeEntry, 0, o.AnnualIncome.Len()),
		}
		for _, e := range o.Events {
			po.Events = append(po.Events, domainagg.EventEntry{Seq: e.Seq, Date: e.Date, Kind: e.Kind, Detail: e.Detail})
		}
		for _, y := range o.AnnualIncome.Entries {
			po.AnnualIncome = append(po.AnnualIncome, domainagg.IncomeEntry{Year: y.Year, Total: y.Total})
		}
		c.Polities = append(c.Polities, po)
	}
	return c
}
