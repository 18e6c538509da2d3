package resumes

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrMalformedFeedback = errors.New("malformed feedback")
	ErrNoArtifact        = errors.New("artifact not available")
)
