package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/savestats/internal/ingestion/pipeline"
	"github.com/yungbote/savestats/internal/pkg/ingesterr"
	"github.com/yungbote/savestats/internal/services"
)

// IngestRequest names one save by local path or object key, never both.
type IngestRequest struct {
	Token    string
	FilePath string
	Key      string
}

func (r IngestRequest) validate() error {
	hasFile := strings.TrimSpace(r.FilePath) != ""
	hasKey := strings.TrimSpace(r.Key) != ""
	switch {
	case hasFile && hasKey:
		return errors.New("use either a file path or an object key, not both")
	case !hasFile && !hasKey:
		return errors.New("a file path or an object key is required")
	}
	return nil
}

// Authenticate resolves a token to the acting user.
func (a *App) Authenticate(ctx context.Context, token string) (services.Identity, error) {
	return a.Services.Verifier.Verify(ctx, token)
}

// Ingest verifies the caller, loads the save and runs the pipeline. Auth
// and input problems abort before any processing starts.
func (a *App) Ingest(ctx context.Context, req IngestRequest) (pipeline.Result, error) {
	const op = "app.ingest"
	if err := req.validate(); err != nil {
		return pipeline.Result{}, ingesterr.Validation(op, err)
	}
	id, err := a.Authenticate(ctx, req.Token)
	if err != nil {
		return pipeline.Result{}, err
	}

	var (
		blob []byte
		name string
	)
	if p := strings.TrimSpace(req.FilePath); p != "" {
		blob, err = os.ReadFile(p)
		if err != nil {
			return pipeline.Result{}, ingesterr.Validation(op, fmt.Errorf("read %s: %w", p, err))
		}
		name = filepath.Base(p)
	} else {
		key := strings.TrimSpace(req.Key)
		blob, err = a.Services.Saves.Fetch(ctx, key)
		if err != nil {
			return pipeline.Result{}, err
		}
		name = services.OriginalName(key)
	}

	return a.Services.Pipeline.Run(ctx, pipeline.Input{
		Blob:       blob,
		FileName:   name,
		UserID:     id.UserID,
		UploadedAt: time.Now().UTC(),
	})
}
