package plaintext

import (
	"context"
	"io"
	"reflect"
	"strings"
	"testing"
)

type storageFake struct {
	data map[string]string
}

func (s *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data[key])), nil
}

func (s *storageFake) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.data[key]
	return ok, nil
}

func TestParagraphsNormalizesLineEndings(t *testing.T) {
	storage := &storageFake{data: map[string]string{"doc.txt": "\ufeffპირველი\r\nმეორე\n"}}
	got, err := NewExtractor(storage).Paragraphs(context.Background(), "doc.txt")
	if err != nil {
		t.Fatalf("Paragraphs() error = %v", err)
	}
	want := []string{"პირველი", "მეორე", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestParagraphsRejectsBinary(t *testing.T) {
	storage := &storageFake{data: map[string]string{"doc.docx": "\xff\xfe\x00"}}
	if _, err := NewExtractor(storage).Paragraphs(context.Background(), "doc.docx"); err == nil {
		t.Fatalf("expected error for invalid UTF-8")
	}
}
