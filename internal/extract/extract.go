// Package extract pulls the plain text out of stored résumé PDFs so it can be
// sent to a text-only model.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"resumind/internal/blob"
)

// ErrNotPDF is returned for payloads without a PDF header.
var ErrNotPDF = errors.New("not a pdf document")

// ExtractText reads a stored document and returns its plain text.
func ExtractText(ctx context.Context, store blob.Store, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := blob.ReadAll(ctx, store, path)
	if err != nil {
		return "", fmt.Errorf("extract text path=%s: %w", path, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extract text path=%s: %w", path, err)
	}
	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory PDF.
func ExtractTextFromBytes(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	return extractPDF(data)
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
