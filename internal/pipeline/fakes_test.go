package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"resumind/internal/artifact"
	"resumind/internal/blob"
	"resumind/internal/inference"
	"resumind/internal/kv"
	"resumind/internal/rasterize"
)

const validFeedback = `{
  "overallScore": 81,
  "ATS": {"score": 70, "tips": [{"type": "improve", "tip": "Add keywords"}]},
  "toneAndStyle": {"score": 85, "tips": [{"type": "good", "tip": "Clear", "explanation": "Reads well."}]},
  "content": {"score": 80, "tips": []},
  "structure": {"score": 90, "tips": []},
  "skills": {"score": 75, "tips": []}
}`

type fakeBlobs struct {
	mu      sync.Mutex
	files   map[string][]byte
	uploads []string
	owners  []string
	// failOn is the 1-based upload call that errors; 0 never fails.
	failOn  int
	panicOn int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(ctx context.Context, owner string, file artifact.File) (blob.Uploaded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.owners) + 1
	f.owners = append(f.owners, owner)
	if call == f.panicOn {
		panic("blob backend exploded")
	}
	if call == f.failOn {
		return blob.Uploaded{}, errors.New("bucket unavailable")
	}
	path := fmt.Sprintf("%s/%d_%s", owner, call, file.Name)
	f.files[path] = append([]byte(nil), file.Data...)
	f.uploads = append(f.uploads, path)
	return blob.Uploaded{Path: path, Size: file.Size(), MimeType: file.ContentType}, nil
}

func (f *fakeBlobs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeRasterizer struct {
	err   string
	calls int
	// onConvert runs before the result is returned.
	onConvert func()
}

func (f *fakeRasterizer) Convert(ctx context.Context, doc artifact.File) rasterize.Result {
	f.calls++
	if f.onConvert != nil {
		f.onConvert()
	}
	if f.err != "" {
		return rasterize.Result{Err: f.err}
	}
	return rasterize.Result{Image: &artifact.File{Name: doc.BaseName() + ".png", ContentType: "image/png", Data: []byte("png")}}
}

type countingKV struct {
	*kv.MemoryStore
	mu     sync.Mutex
	writes []string
	failOn int
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryStore: kv.NewMemoryStore()}
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.writes = append(c.writes, value)
	n := len(c.writes)
	c.mu.Unlock()
	if n == c.failOn {
		return errors.New("kv unavailable")
	}
	return c.MemoryStore.Set(ctx, key, value)
}

func (c *countingKV) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

type fakeInference struct {
	resp  *inference.Response
	err   error
	calls []string
	instr string
}

func (f *fakeInference) Feedback(ctx context.Context, documentPath, instruction string) (*inference.Response, error) {
	f.calls = append(f.calls, documentPath)
	f.instr = instruction
	return f.resp, f.err
}

func textReply(s string) *inference.Response {
	return &inference.Response{Message: inference.Message{Role: "assistant", Content: inference.TextContent(s)}}
}

func blockReply(texts ...string) *inference.Response {
	return &inference.Response{Message: inference.Message{Role: "assistant", Content: inference.BlockContent(texts...)}}
}

type staticIdentity struct {
	id string
}

func (s staticIdentity) UserID(ctx context.Context) (string, bool) {
	if s.id == "" {
		return "", false
	}
	return s.id, true
}

type harness struct {
	blobs  *fakeBlobs
	raster *fakeRasterizer
	kv     *countingKV
	llm    *fakeInference
	ids    int
	p      *Pipeline
}

func newHarness(userID string) *harness {
	h := &harness{
		blobs:  newFakeBlobs(),
		raster: &fakeRasterizer{},
		kv:     newCountingKV(),
		llm:    &fakeInference{resp: textReply(validFeedback)},
	}
	p, err := New(Deps{
		Blobs:      h.blobs,
		Rasterizer: h.raster,
		KV:         h.kv,
		Inference:  h.llm,
		Identity:   staticIdentity{id: userID},
		NewID: func() string {
			h.ids++
			return fmt.Sprintf("id-%d", h.ids)
		},
		Now:          func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC) },
		StrictSchema: true,
	})
	if err != nil {
		panic(err)
	}
	h.p = p
	return h
}

func sampleInput() Input {
	return Input{
		File:           artifact.File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 fake")},
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Build Go services",
	}
}
