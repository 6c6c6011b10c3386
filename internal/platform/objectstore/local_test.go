package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/savestats/internal/platform/logger"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, logger.Nop(), Options{Mode: "local", LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Put(ctx, "uploads/alice/scotland.eu4", strings.NewReader("date: 1474.7.4")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "uploads/bob/x.eu4", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	b, err := ReadAll(ctx, s, "uploads/alice/scotland.eu4")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(b) != "date: 1474.7.4" {
		t.Fatalf("body: got=%q", b)
	}

	ok, err := s.Exists(ctx, "uploads/alice/scotland.eu4")
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	ok, err = s.Exists(ctx, "uploads/alice/none.eu4")
	if err != nil || ok {
		t.Fatalf("Exists missing: ok=%v err=%v", ok, err)
	}

	keys, err := s.List(ctx, "uploads/alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "uploads/alice/scotland.eu4" {
		t.Fatalf("List: got=%v", keys)
	}
}

func TestLocalStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(logger.Nop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := s.Get(ctx, "nope.eu4"); !IsNotFound(err) {
		t.Fatalf("Get missing: want not found got %v", err)
	}
	if err := s.Put(ctx, "../escape.eu4", strings.NewReader("x")); err == nil {
		t.Fatalf("expected escape rejection")
	}
	if err := s.Put(ctx, "  ", strings.NewReader("x")); err == nil {
		t.Fatalf("expected empty key rejection")
	}
	if _, err := NewLocal(logger.Nop(), ""); err == nil {
		t.Fatalf("expected empty dir rejection")
	}
}

func TestNewRejectsBadGCSConfig(t *testing.T) {
	if _, err := New(context.Background(), logger.Nop(), Options{Mode: "gcs_emulator", Bucket: "b"}); err == nil {
		t.Fatalf("expected missing emulator host error")
	}
	if _, err := New(context.Background(), logger.Nop(), Options{Mode: "s3"}); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}
