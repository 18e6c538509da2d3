// Package pipeline runs one résumé submission from upload to stored feedback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"resumind/internal/artifact"
	"resumind/internal/blob"
	"resumind/internal/inference"
	"resumind/internal/kv"
	"resumind/internal/rasterize"
	"resumind/internal/resumes"
	"resumind/internal/shared/auth"
	"resumind/internal/shared/metrics"
	"resumind/internal/shared/telemetry"
)

const anonymousOwner = "anonymous"

// ErrMissingFile is returned when Submit is called without a file.
var ErrMissingFile = errors.New("pipeline: missing resume file")

// createdAtLayout matches JavaScript's Date.toISOString.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Input is one upload request.
type Input struct {
	File           artifact.File
	CompanyName    string
	JobTitle       string
	JobDescription string
}

// IdentitySource resolves the current user, if any.
type IdentitySource interface {
	UserID(ctx context.Context) (string, bool)
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Blobs      blob.Store
	Rasterizer rasterize.Rasterizer
	KV         kv.Store
	Inference  inference.Client
	Identity   IdentitySource
	NewID      func() string
	Now        func() time.Time
	// StrictSchema rejects feedback with missing categories, out of range
	// scores or unknown tip types.
	StrictSchema bool
}

// Pipeline sequences the steps of a submission.
type Pipeline struct {
	deps Deps
}

// New validates deps and fills defaults for the optional ones.
func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Blobs == nil:
		return nil, errors.New("pipeline: blob store is required")
	case deps.Rasterizer == nil:
		return nil, errors.New("pipeline: rasterizer is required")
	case deps.KV == nil:
		return nil, errors.New("pipeline: key-value store is required")
	case deps.Inference == nil:
		return nil, errors.New("pipeline: inference client is required")
	}
	if deps.Identity == nil {
		deps.Identity = auth.ContextIdentity{}
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}, nil
}

// run is the per-submission state.
type run struct {
	ctx      context.Context
	observer Observer
	state    State
	recordID string
	userID   string
}

func (r *run) emit(st Status) {
	if r.observer != nil {
		r.observer(st)
	}
}

// Submit drives in through every step. On success it returns the stored
// record with feedback populated. On failure the error is a *Failure and the
// returned record holds whatever was persisted so far (zero if nothing was).
func (p *Pipeline) Submit(ctx context.Context, in Input, observer Observer) (resumes.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := p.deps.Now()
	r := &run{ctx: ctx, observer: observer, state: StateIdle}
	metrics.IncSubmissionStarted()

	rec, err := p.execute(r, in)
	durationMs := float64(p.deps.Now().Sub(startedAt).Milliseconds())
	metrics.ObserveSubmissionDurationMs(durationMs)

	var failure *Failure
	if errors.As(err, &failure) {
		metrics.IncSubmissionFailed(string(failure.Reason))
		logFailure := telemetry.Error
		if failure.Reason.Expected() {
			logFailure = telemetry.Warn
		}
		logFailure("pipeline.failed", map[string]any{
			"state":       string(failure.State),
			"reason":      string(failure.Reason),
			"detail":      failure.Detail,
			"resume_id":   failure.RecordID,
			"user_id":     r.userID,
			"duration_ms": durationMs,
			"request_id":  telemetry.RequestIDFromContext(ctx),
		})
		r.state = StateFailed
		r.emit(Status{State: StateFailed, Message: failure.Reason.Message(), Reason: failure.Reason, Detail: failure.Detail})
		return rec, failure
	}

	r.state = StateComplete
	metrics.IncSubmissionCompleted()
	telemetry.Info("pipeline.complete", map[string]any{
		"resume_id":   rec.ID,
		"user_id":     r.userID,
		"duration_ms": durationMs,
		"request_id":  telemetry.RequestIDFromContext(ctx),
	})
	r.emit(Status{State: StateComplete, Message: StateComplete.Message()})
	return rec, nil
}

func (p *Pipeline) execute(r *run, in Input) (resumes.Record, error) {
	if in.File.Missing() {
		return resumes.Record{}, &Failure{State: StateIdle, Reason: ReasonInvalidInput, Detail: "missing resume file", Err: ErrMissingFile}
	}
	userID, ok := p.deps.Identity.UserID(r.ctx)
	if ok {
		r.userID = userID
	}

	var doc blob.Uploaded
	if err := p.step(r, StateUploadingDocument, ReasonUploadFailed, func() (err error) {
		doc, err = p.uploadDocument(r.ctx, r.userID, in.File)
		return err
	}); err != nil {
		return resumes.Record{}, err
	}

	var pageImage artifact.File
	if err := p.step(r, StateConvertingToImage, ReasonConversionFailed, func() (err error) {
		pageImage, err = p.convert(r.ctx, in.File)
		return err
	}); err != nil {
		return resumes.Record{}, err
	}

	var img blob.Uploaded
	if err := p.step(r, StateUploadingImage, ReasonImageUploadFailed, func() (err error) {
		img, err = p.uploadImage(r.ctx, r.userID, pageImage)
		return err
	}); err != nil {
		return resumes.Record{}, err
	}

	rec := p.draft(r.userID, in, doc, img)
	if err := p.step(r, StatePersistingDraftRecord, ReasonPersistFailed, func() error {
		return p.persist(r.ctx, rec)
	}); err != nil {
		return resumes.Record{}, err
	}
	r.recordID = rec.ID

	var feedback *resumes.Feedback
	if err := p.step(r, StateRequestingFeedback, ReasonInferenceFailed, func() (err error) {
		feedback, err = p.requestFeedback(r.ctx, doc.Path, in)
		return err
	}); err != nil {
		return rec, err
	}

	final := rec
	final.Feedback = feedback
	if err := p.step(r, StatePersistingFinalRecord, ReasonPersistFailed, func() error {
		return p.persist(r.ctx, final)
	}); err != nil {
		return rec, err
	}
	return final, nil
}

// step enters state, runs fn and converts its error or panic into a
// *Failure. Cancellation is observed only here, before fn starts.
func (p *Pipeline) step(r *run, state State, reason Reason, fn func() error) (err error) {
	if !r.state.Before(state) {
		return &Failure{State: r.state, Reason: reason, RecordID: r.recordID, Err: fmt.Errorf("illegal transition %s -> %s", r.state, state)}
	}
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return &Failure{State: r.state, Reason: ReasonCanceled, Detail: ctxErr.Error(), RecordID: r.recordID, Err: ctxErr}
	}
	r.state = state
	r.emit(Status{State: state, Message: state.Message()})
	telemetry.Info("pipeline.transition", map[string]any{
		"state":      string(state),
		"resume_id":  r.recordID,
		"user_id":    r.userID,
		"request_id": telemetry.RequestIDFromContext(r.ctx),
	})

	defer func() {
		if rec := recover(); rec != nil {
			err = &Failure{State: state, Reason: reason, Detail: fmt.Sprintf("panic: %v", rec), RecordID: r.recordID, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	if stepErr := fn(); stepErr != nil {
		var rs *reasoned
		if errors.As(stepErr, &rs) {
			reason = rs.reason
			stepErr = rs.err
		}
		return &Failure{State: state, Reason: reason, Detail: stepErr.Error(), RecordID: r.recordID, Err: stepErr}
	}
	return nil
}

func (p *Pipeline) uploadDocument(ctx context.Context, userID string, file artifact.File) (blob.Uploaded, error) {
	up, err := p.deps.Blobs.Upload(ctx, ownerOf(userID), file)
	if err != nil {
		return blob.Uploaded{}, err
	}
	if up.Path == "" {
		return blob.Uploaded{}, errors.New("blob store returned no path")
	}
	return up, nil
}

func (p *Pipeline) convert(ctx context.Context, file artifact.File) (artifact.File, error) {
	res := p.deps.Rasterizer.Convert(ctx, file)
	if !res.OK() {
		if res.Err == "" {
			return artifact.File{}, errors.New("rasterizer returned no image")
		}
		return artifact.File{}, errors.New(res.Err)
	}
	return *res.Image, nil
}

func (p *Pipeline) uploadImage(ctx context.Context, userID string, image artifact.File) (blob.Uploaded, error) {
	up, err := p.deps.Blobs.Upload(ctx, ownerOf(userID), image)
	if err != nil {
		return blob.Uploaded{}, err
	}
	if up.Path == "" {
		return blob.Uploaded{}, errors.New("blob store returned no path")
	}
	return up, nil
}

// draft builds the checkpoint record. Feedback stays nil until inference succeeds.
func (p *Pipeline) draft(userID string, in Input, doc, img blob.Uploaded) resumes.Record {
	return resumes.Record{
		ID:             p.deps.NewID(),
		UserID:         userID,
		CompanyName:    in.CompanyName,
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
		CreatedAt:      p.deps.Now().UTC().Format(createdAtLayout),
		ResumePath:     doc.Path,
		ImagePath:      img.Path,
	}
}

func (p *Pipeline) persist(ctx context.Context, rec resumes.Record) error {
	value, err := resumes.Encode(rec)
	if err != nil {
		return err
	}
	if err := p.deps.KV.Set(ctx, resumes.Key(rec.ID), value); err != nil {
		return fmt.Errorf("set %s: %w", resumes.Key(rec.ID), err)
	}
	return nil
}

func (p *Pipeline) requestFeedback(ctx context.Context, documentPath string, in Input) (*resumes.Feedback, error) {
	instruction := inference.PrepareInstructions(in.JobTitle, in.JobDescription)
	resp, err := p.deps.Inference.Feedback(ctx, documentPath, instruction)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("inference returned no response")
	}
	text, err := resp.Message.Content.Normalize()
	if err != nil {
		return nil, withReason(ReasonMalformedFeedback, err)
	}
	feedback, err := resumes.ParseFeedback(text, p.deps.StrictSchema)
	if err != nil {
		return nil, withReason(ReasonMalformedFeedback, err)
	}
	return feedback, nil
}

func ownerOf(userID string) string {
	if userID == "" {
		return anonymousOwner
	}
	return userID
}
