package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Ing-la/future-navigator/core"
)

// Learning error types
const (
	ErrorGrammar       = "grammar"
	ErrorPronunciation = "pronunciation"
	ErrorVocabulary    = "vocabulary"
	ErrorOther         = "other"
)

var ErrorTypes = []string{ErrorGrammar, ErrorPronunciation, ErrorVocabulary, ErrorOther}

type Student struct {
	ID            string    `json:"id"`
	ClassID       string    `json:"class_id"`
	Name          string    `json:"name"`
	StudentNumber string    `json:"student_number,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// LearningError is a mistake a student keeps making, counted by Frequency.
type LearningError struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	ErrorType      string    `json:"error_type"`
	ErrorContent   string    `json:"error_content"`
	CorrectContent string    `json:"correct_content,omitempty"`
	Frequency      int       `json:"frequency"`
	Context        string    `json:"context,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

type NewStudent struct {
	ClassID       string `json:"classId" validate:"required"`
	Name          string `json:"name" validate:"required,notblank,max=100"`
	StudentNumber string `json:"studentNumber" validate:"max=50"`
	AvatarURL     string `json:"avatarUrl" validate:"omitempty,url"`
}

func (ns *NewStudent) Clean() {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Name = core.CleanString(ns.Name)
	ns.StudentNumber = core.CleanString(ns.StudentNumber)
	ns.AvatarURL = core.CleanString(ns.AvatarURL)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

type NewError struct {
	StudentID      string `json:"-"`
	ErrorType      string `json:"errorType" validate:"required,errortype"`
	ErrorContent   string `json:"errorContent" validate:"required,notblank"`
	CorrectContent string `json:"correctContent"`
	Context        string `json:"context"`
}

func (ne *NewError) Validate(validate *validator.Validate) error {
	ne.ErrorType = core.CleanString(ne.ErrorType, true /* lower */)
	ne.ErrorContent = core.CleanString(ne.ErrorContent)
	ne.CorrectContent = core.CleanString(ne.CorrectContent)
	ne.Context = core.CleanString(ne.Context)
	return validate.Struct(ne)
}

// ImportRow is one line of a roster spreadsheet. It follows the NewStudent limits.
type ImportRow struct {
	Name          string `validate:"required,max=100"`
	StudentNumber string `validate:"max=50"`
	AvatarURL     string `validate:"omitempty,url"`
}

// ImportResult reports what an import did with each row.
type ImportResult struct {
	Created []Student `json:"created"`
	Skipped []int     `json:"skipped"` // 1-based spreadsheet row numbers
}
