package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"resumind/internal/artifact"
	"resumind/internal/blob"
	"resumind/internal/rasterize/pdftest"
	"resumind/internal/shared/storage/object/local"
)

func TestExtractTextFromBytes_PDF(t *testing.T) {
	data := pdftest.OnePage(300, 200, pdftest.Line{X: 10, Y: 100, Size: 12, Text: "Senior Go Engineer"})
	text, err := ExtractTextFromBytes(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Senior Go Engineer") {
		t.Fatalf("expected text in output, got %q", text)
	}
}

func TestExtractTextFromBytes_RejectsOtherFormats(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("plain text"), []byte("PK\x03\x04docx")} {
		if _, err := ExtractTextFromBytes(context.Background(), data); !errors.Is(err, ErrNotPDF) {
			t.Fatalf("expected ErrNotPDF for %q, got %v", data, err)
		}
	}
}

func TestExtractTextFromBytes_MalformedPDF(t *testing.T) {
	if _, err := ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4\ngarbage")); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestExtractTextReadsFromBlobStore(t *testing.T) {
	store := blob.New(local.New(t.TempDir()))
	data := pdftest.OnePage(300, 200, pdftest.Line{X: 10, Y: 100, Size: 12, Text: "Stored"})
	up, err := store.Upload(context.Background(), "guest:1", artifact.File{Name: "cv.pdf", Data: data})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	text, err := ExtractText(context.Background(), store, up.Path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "Stored") {
		t.Fatalf("expected stored text, got %q", text)
	}
}
