package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"resumind/internal/artifact"
	"resumind/internal/blob"
	"resumind/internal/inference"
	"resumind/internal/rasterize"
	"resumind/internal/resumes"
	"resumind/internal/shared/storage/object/local"
)

func collect(statuses *[]Status) Observer {
	return func(st Status) { *statuses = append(*statuses, st) }
}

func asFailure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T %v", err, err)
	}
	return f
}

func decodeMap(t *testing.T, value string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		t.Fatalf("decode %q: %v", value, err)
	}
	return m
}

func TestSubmitSuccess(t *testing.T) {
	h := newHarness("user-1")
	var statuses []Status

	rec, err := h.p.Submit(context.Background(), sampleInput(), collect(&statuses))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.ID != "id-1" || rec.UserID != "user-1" {
		t.Fatalf("unexpected record identity %+v", rec)
	}
	if rec.CreatedAt != "2026-03-04T05:06:07.008Z" {
		t.Fatalf("unexpected createdAt %q", rec.CreatedAt)
	}
	if rec.Feedback == nil || rec.Feedback.OverallScore != 81 {
		t.Fatalf("expected feedback, got %+v", rec.Feedback)
	}
	if h.kv.writeCount() != 2 {
		t.Fatalf("expected 2 writes, got %d", h.kv.writeCount())
	}
	if len(h.blobs.uploads) != 2 || rec.ResumePath != h.blobs.uploads[0] || rec.ImagePath != h.blobs.uploads[1] {
		t.Fatalf("unexpected paths %+v uploads=%v", rec, h.blobs.uploads)
	}
	if !strings.HasSuffix(rec.ImagePath, "cv.png") {
		t.Fatalf("expected image named after document, got %q", rec.ImagePath)
	}
	if len(h.llm.calls) != 1 || h.llm.calls[0] != rec.ResumePath {
		t.Fatalf("expected inference on document path, got %v", h.llm.calls)
	}
	if h.llm.instr != inference.PrepareInstructions("Backend Engineer", "Build Go services") {
		t.Fatalf("unexpected instruction")
	}

	stored, err := h.kv.Get(context.Background(), "resume:id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, err := resumes.Decode(stored)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("stored record differs:\n got %+v\nwant %+v", got, rec)
	}

	wantStates := []State{
		StateUploadingDocument,
		StateConvertingToImage,
		StateUploadingImage,
		StatePersistingDraftRecord,
		StateRequestingFeedback,
		StatePersistingFinalRecord,
		StateComplete,
	}
	if len(statuses) != len(wantStates) {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
	for i, st := range statuses {
		if st.State != wantStates[i] {
			t.Fatalf("status %d: got %s want %s", i, st.State, wantStates[i])
		}
		if st.Message == "" {
			t.Fatalf("status %d has no message", i)
		}
	}
	if statuses[0].Message != "Analyzing your resume..." || statuses[len(statuses)-1].Message != "Analysis complete! Redirecting to your resume..." {
		t.Fatalf("unexpected messages %+v", statuses)
	}
}

func TestDraftIsSubsetOfFinal(t *testing.T) {
	h := newHarness("user-1")
	if _, err := h.p.Submit(context.Background(), sampleInput(), nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	draft := decodeMap(t, h.kv.writes[0])
	final := decodeMap(t, h.kv.writes[1])

	if v, ok := draft["feedback"]; !ok || v != nil {
		t.Fatalf("expected draft feedback null, got %v", draft["feedback"])
	}
	if final["feedback"] == nil {
		t.Fatalf("expected final feedback populated")
	}
	for k, v := range draft {
		if k == "feedback" {
			continue
		}
		if !reflect.DeepEqual(final[k], v) {
			t.Fatalf("field %s changed: draft=%v final=%v", k, v, final[k])
		}
	}
	if len(final) != len(draft) {
		t.Fatalf("final has unexpected fields: %v", final)
	}
}

func TestSubmissionsGetDistinctRecords(t *testing.T) {
	h := newHarness("user-1")
	first, err := h.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := h.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, both %q", first.ID)
	}
	entries, err := h.kv.List(context.Background(), resumes.KeyPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 records, got %d", len(entries))
	}
}

func TestStringAndBlockContentProduceSameRecord(t *testing.T) {
	text := newHarness("user-1")
	blocks := newHarness("user-1")
	blocks.llm.resp = blockReply(validFeedback, "ignored second block")

	a, err := text.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	b, err := blocks.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ:\n%+v\n%+v", a, b)
	}
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *harness)
		wantState  State
		wantReason Reason
		wantWrites int
		wantUpload int
		wantDraft  bool
	}{
		{
			name:       "document upload fails",
			setup:      func(h *harness) { h.blobs.failOn = 1 },
			wantState:  StateUploadingDocument,
			wantReason: ReasonUploadFailed,
		},
		{
			name:       "document upload panics",
			setup:      func(h *harness) { h.blobs.panicOn = 1 },
			wantState:  StateUploadingDocument,
			wantReason: ReasonUploadFailed,
		},
		{
			name:       "conversion fails",
			setup:      func(h *harness) { h.raster.err = "Failed to convert PDF: malformed" },
			wantState:  StateConvertingToImage,
			wantReason: ReasonConversionFailed,
			wantUpload: 1,
		},
		{
			name:       "image upload fails",
			setup:      func(h *harness) { h.blobs.failOn = 2 },
			wantState:  StateUploadingImage,
			wantReason: ReasonImageUploadFailed,
			wantUpload: 1,
		},
		{
			name:       "draft write fails",
			setup:      func(h *harness) { h.kv.failOn = 1 },
			wantState:  StatePersistingDraftRecord,
			wantReason: ReasonPersistFailed,
			wantWrites: 1,
			wantUpload: 2,
		},
		{
			name:       "inference errors",
			setup:      func(h *harness) { h.llm.resp, h.llm.err = nil, errors.New("model down") },
			wantState:  StateRequestingFeedback,
			wantReason: ReasonInferenceFailed,
			wantWrites: 1,
			wantUpload: 2,
			wantDraft:  true,
		},
		{
			name:       "inference returns nothing",
			setup:      func(h *harness) { h.llm.resp = nil },
			wantState:  StateRequestingFeedback,
			wantReason: ReasonInferenceFailed,
			wantWrites: 1,
			wantUpload: 2,
			wantDraft:  true,
		},
		{
			name:       "empty block list",
			setup:      func(h *harness) { h.llm.resp = blockReply() },
			wantState:  StateRequestingFeedback,
			wantReason: ReasonMalformedFeedback,
			wantWrites: 1,
			wantUpload: 2,
			wantDraft:  true,
		},
		{
			name:       "prose reply",
			setup:      func(h *harness) { h.llm.resp = textReply("Your resume looks great!") },
			wantState:  StateRequestingFeedback,
			wantReason: ReasonMalformedFeedback,
			wantWrites: 1,
			wantUpload: 2,
			wantDraft:  true,
		},
		{
			name: "score out of range",
			setup: func(h *harness) {
				h.llm.resp = textReply(strings.Replace(validFeedback, `"overallScore": 81`, `"overallScore": 181`, 1))
			},
			wantState:  StateRequestingFeedback,
			wantReason: ReasonMalformedFeedback,
			wantWrites: 1,
			wantUpload: 2,
			wantDraft:  true,
		},
		{
			name:       "final write fails",
			setup:      func(h *harness) { h.kv.failOn = 2 },
			wantState:  StatePersistingFinalRecord,
			wantReason: ReasonPersistFailed,
			wantWrites: 2,
			wantUpload: 2,
			wantDraft:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("user-1")
			tt.setup(h)
			var statuses []Status

			rec, err := h.p.Submit(context.Background(), sampleInput(), collect(&statuses))
			f := asFailure(t, err)
			if f.State != tt.wantState || f.Reason != tt.wantReason {
				t.Fatalf("got %s/%s want %s/%s (%v)", f.State, f.Reason, tt.wantState, tt.wantReason, err)
			}
			if h.kv.writeCount() != tt.wantWrites {
				t.Fatalf("expected %d writes, got %d", tt.wantWrites, h.kv.writeCount())
			}
			if len(h.blobs.uploads) != tt.wantUpload {
				t.Fatalf("expected %d stored blobs, got %d", tt.wantUpload, len(h.blobs.uploads))
			}

			last := statuses[len(statuses)-1]
			if last.State != StateFailed || last.Reason != tt.wantReason || last.Message == "" {
				t.Fatalf("unexpected terminal status %+v", last)
			}

			stored, getErr := h.kv.Get(context.Background(), "resume:id-1")
			if tt.wantDraft {
				if getErr != nil {
					t.Fatalf("expected draft to remain: %v", getErr)
				}
				draft, decErr := resumes.Decode(stored)
				if decErr != nil {
					t.Fatalf("decode draft: %v", decErr)
				}
				if draft.HasFeedback() {
					t.Fatalf("expected draft without feedback")
				}
				if f.RecordID != "id-1" || rec.ID != "id-1" {
					t.Fatalf("expected record id on failure, got %q / %q", f.RecordID, rec.ID)
				}
			} else if getErr == nil {
				t.Fatalf("expected no stored record, found %s", stored)
			}
		})
	}
}

func TestConversionFailureKeepsDiagnostic(t *testing.T) {
	h := newHarness("user-1")
	h.raster.err = "Failed to convert PDF: no pages"

	_, err := h.p.Submit(context.Background(), sampleInput(), nil)
	f := asFailure(t, err)
	if f.Detail != "Failed to convert PDF: no pages" {
		t.Fatalf("unexpected detail %q", f.Detail)
	}
	if len(h.llm.calls) != 0 {
		t.Fatalf("expected no inference call")
	}
}

func TestMissingFileIsRejectedBeforeAnyCall(t *testing.T) {
	h := newHarness("user-1")
	in := sampleInput()
	in.File = artifact.File{}

	_, err := h.p.Submit(context.Background(), in, nil)
	f := asFailure(t, err)
	if f.Reason != ReasonInvalidInput || f.State != StateIdle {
		t.Fatalf("unexpected failure %+v", f)
	}
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if len(h.blobs.owners) != 0 || h.raster.calls != 0 || h.kv.writeCount() != 0 {
		t.Fatalf("expected no collaborator calls")
	}
}

func TestUnreadableDocumentsFailConversion(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{name: "zero bytes", data: nil},
		{name: "not a pdf", data: []byte("hello, this is plain text")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			converter, err := rasterize.New(1)
			if err != nil {
				t.Fatalf("rasterizer: %v", err)
			}
			store := newCountingKV()
			llm := &fakeInference{resp: textReply(validFeedback)}
			p, err := New(Deps{
				Blobs:      blob.New(local.New(t.TempDir())),
				Rasterizer: converter,
				KV:         store,
				Inference:  llm,
				Identity:   staticIdentity{id: "user-1"},
			})
			if err != nil {
				t.Fatalf("new: %v", err)
			}

			in := sampleInput()
			in.File = artifact.File{Name: "cv.pdf", ContentType: "application/pdf", Data: tc.data}
			_, err = p.Submit(context.Background(), in, nil)
			f := asFailure(t, err)
			if f.Reason != ReasonConversionFailed || f.State != StateConvertingToImage {
				t.Fatalf("unexpected failure %+v", f)
			}
			if !strings.HasPrefix(f.Detail, "Failed to convert PDF: ") {
				t.Fatalf("expected diagnostic, got %q", f.Detail)
			}
			if store.writeCount() != 0 {
				t.Fatalf("expected no kv writes, got %d", store.writeCount())
			}
			if len(llm.calls) != 0 {
				t.Fatalf("expected no inference call")
			}
		})
	}
}

func TestCancellationStopsAtNextBoundary(t *testing.T) {
	h := newHarness("user-1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.raster.onConvert = cancel

	_, err := h.p.Submit(ctx, sampleInput(), nil)
	f := asFailure(t, err)
	if f.Reason != ReasonCanceled || f.State != StateConvertingToImage {
		t.Fatalf("unexpected failure %+v", f)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain")
	}
	if len(h.blobs.owners) != 1 || h.kv.writeCount() != 0 {
		t.Fatalf("expected only the document upload, got uploads=%d writes=%d", len(h.blobs.owners), h.kv.writeCount())
	}
}

func TestCanceledBeforeStart(t *testing.T) {
	h := newHarness("user-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.p.Submit(ctx, sampleInput(), nil)
	if f := asFailure(t, err); f.Reason != ReasonCanceled || f.State != StateIdle {
		t.Fatalf("unexpected failure %+v", f)
	}
	if len(h.blobs.owners) != 0 {
		t.Fatalf("expected no upload")
	}
}

func TestStatusStreamIsStrictlyIncreasing(t *testing.T) {
	setups := []func(h *harness){
		func(h *harness) {},
		func(h *harness) { h.blobs.failOn = 2 },
		func(h *harness) { h.llm.resp = textReply("nope") },
		func(h *harness) { h.kv.failOn = 2 },
	}
	for i, setup := range setups {
		h := newHarness("user-1")
		setup(h)
		var statuses []Status
		_, _ = h.p.Submit(context.Background(), sampleInput(), collect(&statuses))

		terminal := 0
		for j, st := range statuses {
			if st.State.Terminal() {
				terminal++
				if j != len(statuses)-1 {
					t.Fatalf("run %d: terminal status %s is not last", i, st.State)
				}
			}
			if j > 0 && !statuses[j-1].State.Before(st.State) {
				t.Fatalf("run %d: %s does not follow %s", i, st.State, statuses[j-1].State)
			}
		}
		if terminal != 1 {
			t.Fatalf("run %d: expected one terminal status, got %d", i, terminal)
		}
	}
}

func TestMissingIdentityOmitsUserID(t *testing.T) {
	h := newHarness("")
	rec, err := h.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.UserID != "" {
		t.Fatalf("expected empty user id, got %q", rec.UserID)
	}
	for i, w := range h.kv.writes {
		if _, ok := decodeMap(t, w)["userId"]; ok {
			t.Fatalf("write %d carries userId: %s", i, w)
		}
	}
	if h.blobs.owners[0] != anonymousOwner {
		t.Fatalf("expected anonymous owner, got %q", h.blobs.owners[0])
	}
}

func TestLenientSchemaAcceptsOutOfRange(t *testing.T) {
	h := newHarness("user-1")
	h.p.deps.StrictSchema = false
	h.llm.resp = textReply(`{"overallScore": 140}`)

	rec, err := h.p.Submit(context.Background(), sampleInput(), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Feedback.OverallScore != 140 {
		t.Fatalf("unexpected feedback %+v", rec.Feedback)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
	p, err := New(Deps{Blobs: newFakeBlobs(), Rasterizer: &fakeRasterizer{}, KV: newCountingKV(), Inference: &fakeInference{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.deps.NewID == nil || p.deps.Now == nil || p.deps.Identity == nil {
		t.Fatalf("expected defaults to be filled")
	}
}

func TestFailureUnwrap(t *testing.T) {
	cause := errors.New("boom")
	f := &Failure{State: StateUploadingImage, Reason: ReasonImageUploadFailed, Detail: "boom", Err: cause}
	if !errors.Is(f, cause) {
		t.Fatalf("expected Unwrap to expose cause")
	}
	if !strings.Contains(f.Error(), "image_upload_failed") {
		t.Fatalf("unexpected message %q", f.Error())
	}
}

func TestLenientSchemaRejectsNonObjectReply(t *testing.T) {
	for _, reply := range []string{`null`, `{}`, `[]`} {
		h := newHarness("user-1")
		h.p.deps.StrictSchema = false
		h.llm.resp = textReply(reply)

		_, err := h.p.Submit(context.Background(), sampleInput(), nil)
		f := asFailure(t, err)
		if f.Reason != ReasonMalformedFeedback {
			t.Fatalf("reply %s: unexpected failure %+v", reply, f)
		}
		if h.kv.writeCount() != 1 {
			t.Fatalf("reply %s: expected only the draft write, got %d", reply, h.kv.writeCount())
		}
	}
}
