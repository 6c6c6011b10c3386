package ingesterr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", Persistence("commit", "abc", base))
	if got := KindOf(err); got != KindPersistence {
		t.Fatalf("KindOf: want=%s got=%s", KindPersistence, got)
	}
	if !Is(err, KindPersistence) || Is(err, KindDecode) {
		t.Fatalf("Is mismatch for %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("cause not reachable through Unwrap")
	}
	if KindOf(base) != "" {
		t.Fatalf("plain error should carry no kind")
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil should carry no kind")
	}
}

func TestErrorMessage(t *testing.T) {
	sum := strings.Repeat("a", 64)
	msg := NotFound("extract", "SCO", errors.New("no country record")).WithChecksum(sum).Error()
	for _, want := range []string{"extract", "not_found", "tag=SCO", "checksum=aaaaaaaaaaaa", "no country record"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
	if strings.Contains(msg, sum) {
		t.Fatalf("full checksum should be shortened: %q", msg)
	}
}

func TestFatal(t *testing.T) {
	cases := map[Kind]bool{
		KindValidation:  true,
		KindDecode:      true,
		KindNotFound:    false,
		KindDuplicate:   false,
		KindPersistence: true,
		KindAuth:        true,
	}
	for k, want := range cases {
		if got := k.Fatal(); got != want {
			t.Fatalf("%s.Fatal(): want=%v got=%v", k, want, got)
		}
	}
}

func TestWithChecksumCopies(t *testing.T) {
	orig := Decode("decode", errors.New("bad"))
	annotated := orig.WithChecksum("deadbeef")
	if orig.Checksum != "" {
		t.Fatalf("original mutated: %q", orig.Checksum)
	}
	if annotated.Checksum != "deadbeef" {
		t.Fatalf("checksum: want=deadbeef got=%q", annotated.Checksum)
	}
}
