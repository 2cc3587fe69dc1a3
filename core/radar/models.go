package radar

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

// Metrics are the six competency scores of a student, each within [0, 100].
type Metrics struct {
	LanguageApplication        float64 `json:"language_application" validate:"min=0,max=100"`
	CommunicationCollaboration float64 `json:"communication_collaboration" validate:"min=0,max=100"`
	ProblemSolving             float64 `json:"problem_solving" validate:"min=0,max=100"`
	ProactiveExploration       float64 `json:"proactive_exploration" validate:"min=0,max=100"`
	CreativeExpression         float64 `json:"creative_expression" validate:"min=0,max=100"`
	IntrinsicMotivation        float64 `json:"intrinsic_motivation" validate:"min=0,max=100"`
}

// Record is one radar measurement. VideoID is empty for overall assessments.
type Record struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	VideoID    string    `json:"video_id,omitempty"`
	Metrics              // flattened in JSON
	RecordedAt time.Time `json:"recorded_at"` // UTC
}

type NewRecord struct {
	StudentID string `json:"-"`
	VideoID   string `json:"videoId"`
	Metrics
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.VideoID = core.CleanString(nr.VideoID)
	return validate.Struct(nr)
}
