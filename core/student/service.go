package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/class"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	errClassMissing = errors.New("class not found")
	errEmptyRoster  = errors.New("the roster has no student")
)

// rowValidate checks roster rows with built-in tags only.
var rowValidate = validator.New()

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// CreateStudents inserts all students in one statement.
		CreateStudents(ctx context.Context, stds []Student) ([]Student, error)
		// QueryStudents returns the class's students, newest first.
		QueryStudents(ctx context.Context, classID string) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		DeleteStudent(ctx context.Context, id string) (int, error)

		// QueryErrors orders by frequency then created_at, both descending.
		QueryErrors(ctx context.Context, studentID string) ([]LearningError, error)
		// UpsertError bumps the frequency of an existing (type, content) pair or inserts a new one.
		UpsertError(ctx context.Context, lerr LearningError) (LearningError, error)
	}

	ServiceInterface interface {
		QueryByClass(ctx context.Context, classID string) ([]Student, error)
		Create(ctx context.Context, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		Delete(ctx context.Context, id string) error
		Errors(ctx context.Context, studentID string) ([]LearningError, error)
		RecordError(ctx context.Context, ne NewError) (LearningError, error)
		Import(ctx context.Context, classID string, rows []ImportRow) (ImportResult, error)
	}

	Service struct {
		repo     Repository
		classSvc class.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, classSvc class.ServiceInterface) *Service {
	return &Service{repo: repo, classSvc: classSvc}
}

func (svc *Service) checkClass(ctx context.Context, classID string) error {
	if _, err := svc.classSvc.GetByID(ctx, classID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: errClassMissing.Error()})
		}
		return errors.Wrap(err, "finding class")
	}
	return nil
}

func (svc *Service) QueryByClass(ctx context.Context, classID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, classID)
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkClass(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		ClassID:       ns.ClassID,
		Name:          ns.Name,
		StudentNumber: ns.StudentNumber,
		AvatarURL:     ns.AvatarURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.repo.DeleteStudent(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (svc *Service) Errors(ctx context.Context, studentID string) ([]LearningError, error) {
	return svc.repo.QueryErrors(ctx, studentID)
}

func (svc *Service) RecordError(ctx context.Context, ne NewError) (LearningError, error) {
	if _, err := svc.GetByID(ctx, ne.StudentID); err != nil {
		return LearningError{}, err
	}
	now := time.Now().UTC()
	return svc.repo.UpsertError(ctx, LearningError{
		StudentID:      ne.StudentID,
		ErrorType:      ne.ErrorType,
		ErrorContent:   ne.ErrorContent,
		CorrectContent: ne.CorrectContent,
		Context:        ne.Context,
		Frequency:      1,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Import creates the valid roster rows. Rows without a name or over the column limits are reported as skipped.
func (svc *Service) Import(ctx context.Context, classID string, rows []ImportRow) (ImportResult, error) {
	if err := svc.checkClass(ctx, classID); err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Skipped: []int{}}
	now := time.Now().UTC()
	stds := make([]Student, 0, len(rows))
	for i, row := range rows {
		ns := NewStudent{ClassID: classID, Name: row.Name, StudentNumber: row.StudentNumber, AvatarURL: row.AvatarURL}
		ns.Clean()
		cleaned := ImportRow{Name: ns.Name, StudentNumber: ns.StudentNumber, AvatarURL: ns.AvatarURL}
		if err := rowValidate.Struct(cleaned); err != nil {
			res.Skipped = append(res.Skipped, i+2) // header is row 1
			continue
		}
		stds = append(stds, Student{
			ClassID:       classID,
			Name:          ns.Name,
			StudentNumber: ns.StudentNumber,
			AvatarURL:     ns.AvatarURL,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if len(stds) == 0 {
		return ImportResult{}, core.NewValidationError(errEmptyRoster)
	}

	created, err := svc.repo.CreateStudents(ctx, stds)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "importing students")
	}
	res.Created = created
	return res, nil
}
