package pipeline

import (
	"fmt"
	"strings"
)

// State is a stage of one submission.
type State string

const (
	StateIdle                  State = "idle"
	StateUploadingDocument     State = "uploading_document"
	StateConvertingToImage     State = "converting_to_image"
	StateUploadingImage        State = "uploading_image"
	StatePersistingDraftRecord State = "persisting_draft_record"
	StateRequestingFeedback    State = "requesting_feedback"
	StatePersistingFinalRecord State = "persisting_final_record"
	StateComplete              State = "complete"
	StateFailed                State = "failed"
)

var stateOrder = map[State]int{
	StateIdle:                  0,
	StateUploadingDocument:     1,
	StateConvertingToImage:     2,
	StateUploadingImage:        3,
	StatePersistingDraftRecord: 4,
	StateRequestingFeedback:    5,
	StatePersistingFinalRecord: 6,
	StateComplete:              7,
	StateFailed:                7,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Before reports whether s strictly precedes other in the pipeline order.
// The two terminal states are unordered with respect to each other.
func (s State) Before(other State) bool {
	a, okA := stateOrder[s]
	b, okB := stateOrder[other]
	return okA && okB && a < b
}

// Reason classifies a failed submission.
type Reason string

const (
	ReasonInvalidInput      Reason = "invalid_input"
	ReasonUploadFailed      Reason = "upload_failed"
	ReasonConversionFailed  Reason = "conversion_failed"
	ReasonImageUploadFailed Reason = "image_upload_failed"
	ReasonPersistFailed     Reason = "persist_failed"
	ReasonInferenceFailed   Reason = "inference_failed"
	ReasonMalformedFeedback Reason = "malformed_feedback"
	ReasonCanceled          Reason = "canceled"
)

// Expected reports whether the reason comes from the input, the caller or the
// model rather than from our own infrastructure.
func (r Reason) Expected() bool {
	switch r {
	case ReasonInvalidInput, ReasonConversionFailed, ReasonInferenceFailed, ReasonMalformedFeedback, ReasonCanceled:
		return true
	}
	return false
}

var stateMessages = map[State]string{
	StateIdle:                  "Drop your resume for an ATS score and improvement tips.",
	StateUploadingDocument:     "Analyzing your resume...",
	StateConvertingToImage:     "Generating image from resume...",
	StateUploadingImage:        "Uploading image...",
	StatePersistingDraftRecord: "Preparing data...",
	StateRequestingFeedback:    "Analyzing resume with AI...",
	StatePersistingFinalRecord: "Saving your analysis...",
	StateComplete:              "Analysis complete! Redirecting to your resume...",
}

var reasonMessages = map[Reason]string{
	ReasonInvalidInput:      "Please choose a resume file to upload.",
	ReasonUploadFailed:      "Failed to upload the file. Please try again.",
	ReasonConversionFailed:  "Failed to convert PDF to image.",
	ReasonImageUploadFailed: "Failed to upload the image. Please try again.",
	ReasonPersistFailed:     "Failed to save the analysis. Please try again.",
	ReasonInferenceFailed:   "Failed to analyze the resume.",
	ReasonMalformedFeedback: "Failed to analyze the resume.",
	ReasonCanceled:          "Analysis canceled.",
}

// Message returns the user-facing text for a state.
func (s State) Message() string {
	return stateMessages[s]
}

// Message returns the user-facing text for a failure reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}

// Status is one entry of the progress stream.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	Reason  Reason `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Observer receives progress updates. It is called synchronously.
type Observer func(Status)

// Failure is the terminal error of a submission. RecordID is set once a
// draft record has been persisted.
type Failure struct {
	State    State
	Reason   Reason
	Detail   string
	RecordID string
	Err      error
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s at %s", f.Reason, f.State)
	if f.Detail != "" {
		b.WriteString(": ")
		b.WriteString(f.Detail)
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// reasoned lets a step report a reason other than its default.
type reasoned struct {
	reason Reason
	err    error
}

func (r *reasoned) Error() string { return r.err.Error() }
func (r *reasoned) Unwrap() error { return r.err }

func withReason(reason Reason, err error) error {
	return &reasoned{reason: reason, err: err}
}
