package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/savestats/internal/data/aggregates"
	"github.com/yungbote/savestats/internal/data/repos"
	"github.com/yungbote/savestats/internal/ingestion/checksum"
	"github.com/yungbote/savestats/internal/ingestion/income"
	"github.com/yungbote/savestats/internal/ingestion/pipeline"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
	"github.com/yungbote/savestats/internal/platform/config"
	"github.com/yungbote/savestats/internal/platform/logger"
	"github.com/yungbote/savestats/internal/savedoc"
	"github.com/yungbote/savestats/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Verifier services.TokenVerifier
	Saves    services.SaveService
	Pipeline pipeline.Pipeline
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg config.Config,
	reposet repos.Set,
	clients Clients,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	authSvc := services.NewAuthService(db, log, reposet.Users, reposet.Tokens, services.AuthOptions{
		Mode:         cfg.AuthMode,
		JWTSecretKey: cfg.JWTSecretKey,
		TokenTTL:     cfg.TokenTTL,
	})
	verifier := services.NewTokenVerifier(log, cfg.AuthMode, cfg.JWTSecretKey, reposet.Users, reposet.Tokens)
	saves := services.NewSaveService(log, clients.Store, reposet.Files, reposet.Snapshots)

	policy, err := income.ParsePolicy(cfg.AnnualIncomePolicy)
	if err != nil {
		return Services{}, fmt.Errorf("annual income policy: %w", err)
	}

	lookup := checksum.LookupFunc(func(ctx context.Context, sum string) (bool, error) {
		return reposet.Files.ExistsByChecksum(dbctx.Context{Ctx: ctx}, sum)
	})
	var cache checksum.Cache
	if clients.ChecksumCache != nil {
		cache = clients.ChecksumCache
	}
	gate := checksum.NewGate(log, lookup, cache)

	saveFile := aggregates.NewSaveFileAggregate(aggregates.SaveFileAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics, log),
		},
		Files:     reposet.Files,
		Ownership: reposet.Ownership,
		Snapshots: reposet.Snapshots,
		Events:    reposet.Events,
		Income:    reposet.Income,
	})

	ingest := pipeline.New(pipeline.Deps{
		Log:       log,
		Gate:      gate,
		Decoder:   savedoc.TextDecoder{},
		Aggregate: saveFile,
		Metrics:   metrics,
	}, pipeline.Options{
		IncomePolicy: policy,
		Parallel:     cfg.ParallelExtraction,
	})

	return Services{
		Auth:     authSvc,
		Verifier: verifier,
		Saves:    saves,
		Pipeline: ingest,
	}, nil
}
