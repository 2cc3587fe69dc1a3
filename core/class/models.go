package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

// DefaultSummary is shown on the overview until a summary has been generated.
const DefaultSummary = "No summary yet, the AI assistant will generate class summaries periodically"

type Class struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type Summary struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	Content     string    `json:"summary_content"`
	GeneratedAt time.Time `json:"generated_at"` // UTC
}

// Stats holds the raw counters behind an Overview.
type Stats struct {
	Students       int
	PendingVideos  int
	PendingReports int
}

type Overview struct {
	TotalStudents int    `json:"totalStudents"`
	Summary       string `json:"summary"`
	PendingTasks  int    `json:"pendingTasks"`
}

type NewClass struct {
	TeacherID   string `json:"teacherId" validate:"required"`
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.TeacherID = core.CleanString(nc.TeacherID)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type NewSummary struct {
	Content string `json:"summaryContent" validate:"required,notblank"`
}

func (ns *NewSummary) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

type GetFilter struct {
	ID        string
	TeacherID string
}
