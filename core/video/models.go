package video

import (
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// MaxUploadSize is the largest accepted video, 100 MiB.
const MaxUploadSize int64 = 100 << 20

var Statuses = []string{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

type Video struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	BlobURL         string    `json:"blob_url"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// NewVideo is a multipart upload. Body is read once by Upload.
type NewVideo struct {
	StudentID   string `form:"studentId" validate:"required"`
	Title       string `form:"title" validate:"required,notblank,max=200"`
	Filename    string `form:"-"`
	ContentType string `form:"-"`
	Size        int64  `form:"-"`
	Body        io.Reader
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.StudentID = core.CleanString(nv.StudentID)
	nv.Title = core.CleanString(nv.Title)
	if err := validate.Struct(nv); err != nil {
		return err
	}

	switch {
	case nv.Body == nil || nv.Filename == "":
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errFileRequired.Error()})
	case !strings.HasPrefix(nv.ContentType, "video/"):
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errNotAVideo.Error()})
	case nv.Size > MaxUploadSize:
		return FileTooLargeError()
	}
	return nil
}

// FileTooLargeError is the field error of an upload over MaxUploadSize.
func FileTooLargeError() error {
	return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errFileTooLarge.Error()})
}

type StatusUpdate struct {
	Status          string `json:"status" validate:"required,videostatus"`
	DurationSeconds *int   `json:"durationSeconds" validate:"omitempty,min=0"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	return validate.Struct(su)
}

// AnalyzeRequest submits an uploaded recording for analysis.
type AnalyzeRequest struct {
	VideoURL  string `json:"videoUrl"`
	AudioURL  string `json:"audioUrl"`
	SessionID string `json:"sessionId"`
}

func (ar *AnalyzeRequest) Validate() error {
	ar.VideoURL = core.CleanString(ar.VideoURL)
	ar.AudioURL = core.CleanString(ar.AudioURL)
	ar.SessionID = core.CleanString(ar.SessionID)
	if ar.VideoURL == "" && ar.AudioURL == "" {
		return core.NewValidationError(errMediaRequired)
	}
	return nil
}

type AnalyzeTask struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type GetFilter struct {
	ID      string
	BlobURL string
}
