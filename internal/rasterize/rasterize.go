// Package rasterize renders the first page of a PDF into a PNG image.
//
// Rendering draws the page's positioned text runs with the Go Regular face on
// a white grayscale canvas. Vector graphics and embedded images are not drawn.
package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"resumind/internal/artifact"
)

const (
	DefaultScale        = 4.0
	DefaultMaxDimension = 8192

	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Result carries exactly one of Image or Err.
type Result struct {
	Image *artifact.File
	Err   string
}

// OK reports whether the conversion produced an image.
func (r Result) OK() bool {
	return r.Image != nil
}

// Rasterizer converts a document into a page image.
type Rasterizer interface {
	Convert(ctx context.Context, doc artifact.File) Result
}

// Converter is the PDF Rasterizer.
type Converter struct {
	Scale        float64
	MaxDimension int

	ttf *opentype.Font
}

// New returns a Converter. A non-positive scale falls back to DefaultScale.
func New(scale float64) (*Converter, error) {
	if scale <= 0 {
		scale = DefaultScale
	}
	ttf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Converter{Scale: scale, MaxDimension: DefaultMaxDimension, ttf: ttf}, nil
}

// Convert never panics; any failure is reported in Result.Err.
func (c *Converter) Convert(ctx context.Context, doc artifact.File) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Err: fmt.Sprintf("Failed to convert PDF: %v", rec)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{Err: fmt.Sprintf("Failed to convert PDF: %v", err)}
	}
	if doc.Empty() {
		return Result{Err: "Failed to convert PDF: empty document"}
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), doc.Size())
	if err != nil {
		return Result{Err: fmt.Sprintf("Failed to convert PDF: %v", err)}
	}
	if reader.NumPage() < 1 {
		return Result{Err: "Failed to convert PDF: document has no pages"}
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return Result{Err: "Failed to convert PDF: first page not found"}
	}

	img, err := c.render(page)
	if err != nil {
		return Result{Err: fmt.Sprintf("Failed to convert PDF: %v", err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{Err: fmt.Sprintf("Failed to create image blob: %v", err)}
	}

	name := doc.BaseName()
	if name == "" {
		name = "resume"
	}
	return Result{Image: &artifact.File{
		Name:        name + ".png",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}}
}

type box struct {
	llx, lly, urx, ury float64
}

func (b box) width() float64  { return b.urx - b.llx }
func (b box) height() float64 { return b.ury - b.lly }

// mediaBox walks the page tree since MediaBox is inheritable.
func mediaBox(page pdf.Page) box {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.IsNull() || mb.Len() != 4 {
			continue
		}
		b := box{
			llx: mb.Index(0).Float64(),
			lly: mb.Index(1).Float64(),
			urx: mb.Index(2).Float64(),
			ury: mb.Index(3).Float64(),
		}
		if b.llx > b.urx {
			b.llx, b.urx = b.urx, b.llx
		}
		if b.lly > b.ury {
			b.lly, b.ury = b.ury, b.lly
		}
		if b.width() > 0 && b.height() > 0 {
			return b
		}
	}
	return box{urx: defaultPageWidth, ury: defaultPageHeight}
}

func (c *Converter) effectiveScale(b box) float64 {
	scale := c.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	limit := c.MaxDimension
	if limit <= 0 {
		limit = DefaultMaxDimension
	}
	longest := math.Max(b.width(), b.height())
	if longest*scale > float64(limit) {
		scale = float64(limit) / longest
	}
	return scale
}

func (c *Converter) render(page pdf.Page) (*image.Gray, error) {
	if c.ttf == nil {
		return nil, errors.New("converter not initialized")
	}
	b := mediaBox(page)
	scale := c.effectiveScale(b)
	w := int(math.Ceil(b.width() * scale))
	h := int(math.Ceil(b.height() * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid page size %gx%g", b.width(), b.height())
	}

	canvas := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	faces := newFaceCache(c.ttf)
	defer faces.close()

	d := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black)}
	var pen glyphPen
	for _, t := range page.Content().Text {
		if t.S == "" || t.FontSize <= 0 {
			continue
		}
		size := t.FontSize * scale
		face, err := faces.get(size)
		if err != nil {
			return nil, err
		}
		x := (t.X - b.llx) * scale
		y := (b.ury - t.Y) * scale
		x = pen.place(t, x, y)

		r := []rune(t.S)[0]
		adv, _ := face.GlyphAdvance(r)
		if !unicode.IsSpace(r) && !unicode.IsControl(r) {
			d.Face = face
			d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
			d.DrawString(string(r))
		}
		pen.advance(t, x, y, float64(adv)/64, t.W*scale)
	}
	return canvas, nil
}

// glyphPen tracks the drawing position. Fonts without width tables report
// every glyph of a run at the run origin, so the pen supplies the advance.
type glyphPen struct {
	valid    bool
	lastY    float64
	lastRawX float64
	nextX    float64
}

func (p *glyphPen) place(t pdf.Text, x, y float64) float64 {
	if p.valid && t.X == p.lastRawX && y == p.lastY {
		return p.nextX
	}
	return x
}

func (p *glyphPen) advance(t pdf.Text, x, y, faceAdvance, pdfAdvance float64) {
	step := pdfAdvance
	if step <= 0 {
		step = faceAdvance
	}
	p.valid = true
	p.lastRawX = t.X
	p.lastY = y
	p.nextX = x + step
}

type faceCache struct {
	ttf   *opentype.Font
	faces map[int]font.Face
}

func newFaceCache(ttf *opentype.Font) *faceCache {
	return &faceCache{ttf: ttf, faces: make(map[int]font.Face)}
}

// get rounds size to quarter pixels to bound the number of faces.
func (f *faceCache) get(size float64) (font.Face, error) {
	key := int(math.Round(size * 4))
	if key < 1 {
		key = 1
	}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.ttf, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	f.faces[key] = face
	return face, nil
}

func (f *faceCache) close() {
	for _, face := range f.faces {
		face.Close()
	}
}

var _ Rasterizer = (*Converter)(nil)
