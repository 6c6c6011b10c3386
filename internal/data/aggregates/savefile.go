package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	savestatsrepo "github.com/yungbote/savestats/internal/data/repos/savestats"
	types "github.com/yungbote/savestats/internal/domain"
	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
)

const saveFileCommitOp = "aggregate.savefile.commit"

// errAlreadyProcessed travels inside a conflict so Commit can tell a replayed
// checksum apart from other uniqueness failures.
var errAlreadyProcessed = errors.New("checksum already processed")

type SaveFileAggregateDeps struct {
	Base      BaseDeps
	Files     savestatsrepo.ProcessedFileRepo
	Ownership savestatsrepo.FileOwnershipRepo
	Snapshots savestatsrepo.PolitySnapshotRepo
	Events    savestatsrepo.HistoricalEventRepo
	Income    savestatsrepo.AnnualIncomeRepo
}

type saveFileAggregate struct {
	deps SaveFileAggregateDeps
}

func NewSaveFileAggregate(deps SaveFileAggregateDeps) domainagg.SaveFileAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "SaveFileAggregate")
	return &saveFileAggregate{deps: deps}
}

func (a *saveFileAggregate) Contract() domainagg.Contract {
	return domainagg.SaveFileAggregateContract
}

func (a *saveFileAggregate) Commit(ctx context.Context, in domainagg.SaveFileCommit) (domainagg.CommitResult, error) {
	var out domainagg.CommitResult
	if err := validateSaveFileCommit(in); err != nil {
		return out, MapError(saveFileCommitOp, err)
	}
	checksum := strings.TrimSpace(in.Checksum)
	uploadedAt := in.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	err := executeWrite(ctx, a.deps.Base, saveFileCommitOp, func(dbc dbctx.Context) error {
		res := domainagg.CommitResult{}

		exists, err := a.deps.Files.ExistsByChecksum(dbc, checksum)
		if err != nil {
			return fmt.Errorf("check processed: %w", err)
		}
		if exists {
			return errors.Join(ErrConflict, errAlreadyProcessed)
		}

		files, err := a.deps.Files.Create(dbc, []*types.ProcessedFile{{
			Checksum:   checksum,
			FileName:   strings.TrimSpace(in.FileName),
			UserID:     in.UserID,
			UploadedAt: uploadedAt,
		}})
		if err != nil {
			// Only checksum is unique here, so any conflict means a concurrent
			// run committed the same file.
			if classify(err) == domainagg.CodeConflict {
				return errors.Join(ErrConflict, errAlreadyProcessed, err)
			}
			return TableError(domainagg.TableProcessedFiles, err)
		}
		res.FileID = files[0].ID

		if _, err := a.deps.Ownership.Create(dbc, []*types.FileOwnership{{
			Checksum:   checksum,
			UserID:     in.UserID,
			Permission: types.PermissionOwner,
		}}); err != nil {
			return TableError(domainagg.TableFileOwnership, err)
		}

		snapshots := make([]*types.PolitySnapshot, 0, len(in.Polities))
		var events []*types.HistoricalEvent
		var income []*types.AnnualIncome
		for _, p := range in.Polities {
			tag := strings.TrimSpace(p.Tag)
			components, err := incomeComponentsJSON(p.IncomeComponents)
			if err != nil {
				return ValidationError(fmt.Sprintf("polity %s income components: %v", tag, err))
			}
			snapshots = append(snapshots, &types.PolitySnapshot{
				Checksum:         checksum,
				Tag:              tag,
				Date:             p.Date,
				IncomeComponents: components,
				Manpower:         p.Manpower,
				MaxManpower:      p.MaxManpower,
				TradeIncome:      p.TradeIncome,
			})
			for _, e := range p.Events {
				events = append(events, &types.HistoricalEvent{
					Checksum: checksum,
					Tag:      tag,
					Seq:      e.Seq,
					Date:     e.Date,
					Kind:     e.Kind,
					Detail:   e.Detail,
				})
			}
			for _, y := range p.AnnualIncome {
				income = append(income, &types.AnnualIncome{
					Checksum: checksum,
					Tag:      tag,
					Year:     y.Year,
					Total:    y.Total,
				})
			}
		}

		if _, err := a.deps.Snapshots.Create(dbc, snapshots); err != nil {
			return TableError(domainagg.TablePolitySnapshot, err)
		}
		if _, err := a.deps.Events.Create(dbc, events); err != nil {
			return TableError(domainagg.TableHistoricalEvent, err)
		}
		if _, err := a.deps.Income.Create(dbc, income); err != nil {
			return TableError(domainagg.TableAnnualIncome, err)
		}

		res.PolitiesWritten = len(snapshots)
		res.EventsWritten = len(events)
		res.IncomeEntriesWritten = len(income)
		out = res
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyProcessed) {
			a.deps.Base.Log.Info("save already processed; nothing written", "checksum", checksum)
			return domainagg.CommitResult{Duplicate: true}, nil
		}
		a.deps.Base.Log.Warn(
			"save commit rolled back",
			"checksum", checksum,
			"code", domainagg.CodeOf(err),
			"table", domainagg.TableOf(err),
		)
		return domainagg.CommitResult{}, err
	}
	a.deps.Base.Log.Debug(
		"save committed",
		"checksum", checksum,
		"file_id", out.FileID,
		"polities", out.PolitiesWritten,
		"events", out.EventsWritten,
		"income_entries", out.IncomeEntriesWritten,
	)
	return out, nil
}

func validateSaveFileCommit(in domainagg.SaveFileCommit) error {
	if strings.TrimSpace(in.Checksum) == "" {
		return ValidationError("checksum required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return ValidationError("file name required")
	}
	if in.UserID <= 0 {
		return ValidationError("user id required")
	}
	seenTags := make(map[string]struct{}, len(in.Polities))
	for _, p := range in.Polities {
		tag := strings.TrimSpace(p.Tag)
		if tag == "" {
			return ValidationError("polity tag required")
		}
		if _, dup := seenTags[tag]; dup {
			return InvariantError(fmt.Sprintf("polity %s appears twice", tag))
		}
		seenTags[tag] = struct{}{}
		seenYears := make(map[int]struct{}, len(p.AnnualIncome))
		for _, y := range p.AnnualIncome {
			if _, dup := seenYears[y.Year]; dup {
				return InvariantError(fmt.Sprintf("polity %s has two income entries for %d", tag, y.Year))
			}
			seenYears[y.Year] = struct{}{}
		}
	}
	return nil
}

func incomeComponentsJSON(components []float64) (datatypes.JSON, error) {
	if components == nil {
		components = []float64{}
	}
	b, err := json.Marshal(components)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
