package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/savestats/internal/ingestion/events"
	"github.com/yungbote/savestats/internal/ingestion/income"
	"github.com/yungbote/savestats/internal/ingestion/players"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/savedoc"
)

const (
	skipReasonNoRecord = "no_record"
	skipReasonNoData   = "no_data"
)

var (
	errNoCountryRecord = errors.New("no country record for latest tag")
	errNoExtractable   = errors.New("no ledger samples and no history")
)

// extraction is the outcome for one timeline; exactly one of out or err is
// meaningful.
type extraction struct {
	tag    string
	reason string
	out    PolityOutput
	err    error
}

// extractAll derives outputs for every timeline. Results keep timeline order
// regardless of Options.Parallel.
func (p *pipeline) extractAll(ctx context.Context, doc savedoc.Document, timelines []players.Timeline) ([]extraction, error) {
	results := make([]extraction, len(timelines))
	ledger := doc.IncomeLedger()

	if !p.opts.Parallel || len(timelines) < 2 {
		for i, tl := range timelines {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = extractPolity(doc, ledger, tl, p.opts.IncomePolicy)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, tl := range timelines {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = extractPolity(doc, ledger, tl, p.opts.IncomePolicy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractPolity(doc savedoc.Document, ledger []savedoc.LedgerPoint, tl players.Timeline, policy income.Policy) extraction {
	const op = "pipeline.extract"
	tag := tl.LatestTag
	ex := extraction{tag: tag}

	rec, ok := doc.Country(tag)
	if !ok {
		ex.reason = skipReasonNoRecord
		ex.err = ingesterr.NotFound(op, tag, errNoCountryRecord)
		return ex
	}

	annual := income.AggregateAnnual(ledger, tag, policy)
	if annual.Len() == 0 && len(rec.History) == 0 {
		ex.reason = skipReasonNoData
		ex.err = ingesterr.NotFound(op, tag, errNoExtractable)
		return ex
	}

	components := append([]float64{}, rec.Income...)
	ex.out = PolityOutput{
		Tag:         tag,
		InitialTag:  tl.InitialTag,
		PlayerNames: tl.PlayerNames,
		Snapshot: Snapshot{
			Date:             doc.Date().String(),
			IncomeComponents: components,
			Manpower:         rec.Manpower,
			MaxManpower:      rec.MaxManpower,
			TradeIncome:      rec.TradeIncome,
		},
		Events:       events.Normalize(rec.History),
		AnnualIncome: annual,
	}
	return ex
}
