package report

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/student"
)

// Report types
const (
	TypeQuarterly = "quarterly"
	TypeSingle    = "single"
)

// Content statuses
const (
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	titleQuarterly    = "Quarterly Summary Report"
	titleSingle       = "Single Session Analysis Report"
	placeholderSum    = "Report is being generated, content will be updated once AI analysis completes"
	placeholderMsg    = "report is being generated"
	createdMsg        = "report created, content is being generated"
	generationFailMsg = "report generation failed"
)

var Types = []string{TypeQuarterly, TypeSingle}

type Report struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ReportType string    `json:"report_type"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Content    Content   `json:"content"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Content is stored as a JSON document.
type Content struct {
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	Body        string     `json:"body,omitempty"`
	Model       string     `json:"model,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

type NewReport struct {
	StudentID  string `json:"studentId" validate:"required"`
	ReportType string `json:"reportType" validate:"required,reporttype"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.ReportType = core.CleanString(nr.ReportType, true /* lower */)
	return validate.Struct(nr)
}

// Created is the answer to a report creation.
type Created struct {
	Data    Report `json:"data"`
	Message string `json:"message"`
}

// GenerationInput is what a Generator knows about the student.
type GenerationInput struct {
	ReportType string
	Student    student.Student
	Errors     []student.LearningError
	Radar      radar.Metrics
	HasRadar   bool
}

type Generation struct {
	Summary string
	Body    string
	Model   string
}
