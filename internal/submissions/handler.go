// Package submissions exposes the analysis pipeline over HTTP.
package submissions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind/internal/artifact"
	"resumind/internal/pipeline"
	"resumind/internal/resumes"
	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Submitter runs one submission.
type Submitter interface {
	Submit(ctx context.Context, in pipeline.Input, observer pipeline.Observer) (resumes.Record, error)
}

// Handler accepts résumé uploads.
type Handler struct {
	Pipeline      Submitter
	MaxUploadSize int64
}

// NewHandler constructs a Handler. A non-positive maxUploadSize uses 10MB.
func NewHandler(p Submitter, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Pipeline: p, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches the submit route. Extra middleware runs before the
// handler, e.g. rate limiting and the per-user in-flight guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mw...), h.submit)
	rg.POST("/resumes", handlers...)
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)

	in, err := readInput(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	if wantsEventStream(c) {
		h.stream(c, in)
		return
	}

	rec, err := h.Pipeline.Submit(c.Request.Context(), in, func(st pipeline.Status) {
		c.Set(middleware.PipelineStateKey, string(st.State))
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(middleware.ResumeIDKey, rec.ID)
	respond.Created(c, rec)
}

// stream runs the pipeline while writing each status as a server-sent event.
// The final event is "result" with the record or "error" with the failure.
func (h *Handler) stream(c *gin.Context, in pipeline.Input) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	rec, err := h.Pipeline.Submit(c.Request.Context(), in, func(st pipeline.Status) {
		c.Set(middleware.PipelineStateKey, string(st.State))
		c.SSEvent("status", st)
		c.Writer.Flush()
	})
	if err != nil {
		_, _, body := failureResponse(err)
		c.SSEvent("error", body)
		c.Writer.Flush()
		return
	}
	c.Set(middleware.ResumeIDKey, rec.ID)
	c.SSEvent("result", rec)
	c.Writer.Flush()
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code, body := failureResponse(err)
	if body.ResumeID != "" {
		c.Set(middleware.ResumeIDKey, body.ResumeID)
	}
	respond.Error(c, status, code, body.Message, body)
}

// FailureBody describes a failed submission to the client.
type FailureBody struct {
	State    pipeline.State  `json:"state"`
	Reason   pipeline.Reason `json:"reason"`
	Message  string          `json:"message"`
	Detail   string          `json:"detail,omitempty"`
	ResumeID string          `json:"resumeId,omitempty"`
}

func failureResponse(err error) (int, string, FailureBody) {
	var f *pipeline.Failure
	if !errors.As(err, &f) {
		return http.StatusInternalServerError, "internal_error", FailureBody{Message: "Something went wrong. Please try again."}
	}
	body := FailureBody{
		State:    f.State,
		Reason:   f.Reason,
		Message:  f.Reason.Message(),
		ResumeID: f.RecordID,
	}
	switch f.Reason {
	case pipeline.ReasonInvalidInput:
		body.Detail = f.Detail
		return http.StatusBadRequest, string(f.Reason), body
	case pipeline.ReasonConversionFailed:
		body.Detail = f.Detail
		return http.StatusUnprocessableEntity, string(f.Reason), body
	case pipeline.ReasonInferenceFailed, pipeline.ReasonMalformedFeedback:
		return http.StatusBadGateway, string(f.Reason), body
	case pipeline.ReasonCanceled:
		return http.StatusRequestTimeout, string(f.Reason), body
	default:
		return http.StatusServiceUnavailable, string(f.Reason), body
	}
}

func readInput(c *gin.Context) (pipeline.Input, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Input{}, err
		}
		return pipeline.Input{}, errors.New("file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return pipeline.Input{}, errors.New("unable to read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Input{}, errors.New("unable to read file")
	}

	return pipeline.Input{
		File: artifact.File{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		},
		CompanyName:    strings.TrimSpace(c.PostForm("companyName")),
		JobTitle:       strings.TrimSpace(c.PostForm("jobTitle")),
		JobDescription: strings.TrimSpace(c.PostForm("jobDescription")),
	}, nil
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}
