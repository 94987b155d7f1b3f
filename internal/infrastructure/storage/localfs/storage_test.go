package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenExists(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	exists, err := storage.Exists(ctx, "cache/chunks.json")
	if err != nil || exists {
		t.Fatalf("expected missing key, got exists=%v err=%v", exists, err)
	}

	if err := storage.Save(ctx, "cache/chunks.json", strings.NewReader(`[]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	exists, err = storage.Exists(ctx, "cache/chunks.json")
	if err != nil || !exists {
		t.Fatalf("expected key to exist, got exists=%v err=%v", exists, err)
	}

	reader, err := storage.Open(ctx, "cache/chunks.json")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()
	raw, _ := io.ReadAll(reader)
	if string(raw) != "[]" {
		t.Fatalf("unexpected content: %q", raw)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"../secret", "/etc/passwd", ""} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
