package rasterize

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"resumind/internal/artifact"
	"resumind/internal/rasterize/pdftest"
)

func newConverter(t *testing.T) *Converter {
	t.Helper()
	c, err := New(0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func decode(t *testing.T, res Result) image.Image {
	t.Helper()
	if res.Image == nil {
		t.Fatalf("expected image, got error %q", res.Err)
	}
	if res.Err != "" {
		t.Fatalf("expected exactly one of image or error, got both")
	}
	img, err := png.Decode(bytes.NewReader(res.Image.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func darkPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g, _, _, _ := img.At(x, y).RGBA()
			if g < 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestConvertRendersFirstPage(t *testing.T) {
	c := newConverter(t)
	doc := artifact.File{
		Name:        "cv.pdf",
		ContentType: "application/pdf",
		Data:        pdftest.OnePage(200, 100, pdftest.Line{X: 20, Y: 50, Size: 24, Text: "Hello Resume"}),
	}

	res := c.Convert(context.Background(), doc)
	img := decode(t, res)

	if res.Image.Name != "cv.png" || res.Image.ContentType != "image/png" {
		t.Fatalf("unexpected image metadata: %q %q", res.Image.Name, res.Image.ContentType)
	}
	if got := img.Bounds(); got.Dx() != 800 || got.Dy() != 400 {
		t.Fatalf("expected 800x400 at default scale, got %dx%d", got.Dx(), got.Dy())
	}

	// Baseline at y=(100-50)*4=200, cap height about 24pt*4*0.7 above it.
	band := image.Rect(80, 120, 800, 215)
	if darkPixels(img, band) == 0 {
		t.Fatalf("expected glyph pixels in text band")
	}
	if darkPixels(img, image.Rect(0, 0, 800, 100)) != 0 {
		t.Fatalf("expected blank area above the text")
	}
	// Glyphs advance along the line instead of stacking at the origin.
	if darkPixels(img, image.Rect(400, 120, 800, 215)) == 0 {
		t.Fatalf("expected later glyphs to the right of the line start")
	}
}

func TestConvertUsesOnlyFirstPage(t *testing.T) {
	c := newConverter(t)
	doc := artifact.File{Name: "two.pdf", Data: pdftest.Build(
		pdftest.Page{Width: 100, Height: 50},
		pdftest.Page{Width: 300, Height: 300, Lines: []pdftest.Line{{X: 10, Y: 10, Size: 12, Text: "second"}}},
	)}

	img := decode(t, c.Convert(context.Background(), doc))
	if got := img.Bounds(); got.Dx() != 400 || got.Dy() != 200 {
		t.Fatalf("expected first page dimensions 400x200, got %dx%d", got.Dx(), got.Dy())
	}
	if darkPixels(img, img.Bounds()) != 0 {
		t.Fatalf("expected blank first page")
	}
}

func TestConvertClampsToMaxDimension(t *testing.T) {
	c := newConverter(t)
	c.MaxDimension = 1000
	doc := artifact.File{Name: "big.pdf", Data: pdftest.OnePage(2000, 500)}

	img := decode(t, c.Convert(context.Background(), doc))
	if got := img.Bounds(); got.Dx() != 1000 || got.Dy() != 250 {
		t.Fatalf("expected clamped 1000x250, got %dx%d", got.Dx(), got.Dy())
	}
}

func TestConvertFailures(t *testing.T) {
	c := newConverter(t)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		doc  artifact.File
	}{
		{name: "zero bytes", ctx: context.Background(), doc: artifact.File{Name: "empty.pdf"}},
		{name: "not a pdf", ctx: context.Background(), doc: artifact.File{Name: "x.pdf", Data: []byte("hello, this is plainly not a pdf document at all")}},
		{name: "truncated", ctx: context.Background(), doc: artifact.File{Name: "t.pdf", Data: pdftest.OnePage(100, 100)[:60]}},
		{name: "corrupt xref", ctx: context.Background(), doc: artifact.File{Name: "c.pdf", Data: corruptXref(pdftest.OnePage(100, 100))}},
		{name: "zero pages", ctx: context.Background(), doc: artifact.File{Name: "z.pdf", Data: pdftest.Build()}},
		{name: "canceled", ctx: canceled, doc: artifact.File{Name: "ok.pdf", Data: pdftest.OnePage(100, 100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Convert(tt.ctx, tt.doc)
			if res.Image != nil {
				t.Fatalf("expected no image")
			}
			if !strings.HasPrefix(res.Err, "Failed to convert PDF") {
				t.Fatalf("expected diagnostic, got %q", res.Err)
			}
		})
	}
}

func TestConvertRecoversFromUninitializedConverter(t *testing.T) {
	var c Converter
	res := c.Convert(context.Background(), artifact.File{Name: "a.pdf", Data: pdftest.OnePage(100, 100)})
	if res.Image != nil || res.Err == "" {
		t.Fatalf("expected failure result, got %+v", res)
	}
}

func corruptXref(data []byte) []byte {
	return bytes.Replace(data, []byte("\nxref\n"), []byte("\nxrxf\n"), 1)
}
