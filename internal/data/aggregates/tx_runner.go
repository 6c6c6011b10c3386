package aggregates

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/savestats/internal/domain/aggregates"
	"github.com/yungbote/savestats/internal/observability"
	"github.com/yungbote/savestats/internal/pkg/dbctx"
)

// TxRunner is the transaction boundary aggregate writes run inside.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx runs fn inside one gorm transaction under an "aggregate.tx" span.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}

	ctx, span := observability.Tracer().Start(ctx, "aggregate.tx")
	defer span.End()
	if d := r.db.Dialector; d != nil {
		span.SetAttributes(attribute.String("db.system", d.Name()))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
	}
	return err
}
