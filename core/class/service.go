package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrTeacherHasClass = errors.New("this teacher already has a class")
	errTeacherNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		// CreateClass returns ErrTeacherHasClass when the teacher already owns a class.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, filter GetFilter) (Class, error)
		CreateSummary(ctx context.Context, sum Summary) (Summary, error)
		// LatestSummary returns ErrNotFound when the class has no summary yet.
		LatestSummary(ctx context.Context, classID string) (Summary, error)
		// Stats counts the class's students, their pending videos and their reports still generating.
		Stats(ctx context.Context, classID string) (Stats, error)
	}

	ServiceInterface interface {
		GetByTeacher(ctx context.Context, teacherID string) (Class, error)
		GetByID(ctx context.Context, id string) (Class, error)
		Create(ctx context.Context, nc NewClass) (Class, error)
		AddSummary(ctx context.Context, classID, content string) (Summary, error)
		Overview(ctx context.Context, classID string) (Overview, error)
	}

	Service struct {
		repo    Repository
		userSvc user.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, userSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, userSvc: userSvc}
}

func (svc *Service) GetByTeacher(ctx context.Context, teacherID string) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{TeacherID: teacherID})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, GetFilter{ID: id})
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	teacher, err := svc.userSvc.GetByID(nc.TeacherID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Class{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: errTeacherNotFound.Error()})
		}
		return Class{}, errors.Wrap(err, "finding teacher")
	}
	if !teacher.IsTeacher() {
		return Class{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: errTeacherNotFound.Error()})
	}

	now := time.Now().UTC()
	cls, err := svc.repo.CreateClass(ctx, Class{
		TeacherID:   nc.TeacherID,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Cause(err) == ErrTeacherHasClass {
			return Class{}, core.NewValidationError(ErrTeacherHasClass)
		}
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) AddSummary(ctx context.Context, classID, content string) (Summary, error) {
	if _, err := svc.GetByID(ctx, classID); err != nil {
		return Summary{}, err
	}
	return svc.repo.CreateSummary(ctx, Summary{
		ClassID:     classID,
		Content:     content,
		GeneratedAt: time.Now().UTC(),
	})
}

// Overview aggregates the dashboard figures of a class.
// pendingTasks counts pending videos plus reports still being generated.
func (svc *Service) Overview(ctx context.Context, classID string) (Overview, error) {
	if _, err := svc.GetByID(ctx, classID); err != nil {
		return Overview{}, err
	}

	stats, err := svc.repo.Stats(ctx, classID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "computing class stats")
	}

	ov := Overview{
		TotalStudents: stats.Students,
		Summary:       DefaultSummary,
		PendingTasks:  stats.PendingVideos + stats.PendingReports,
	}
	sum, err := svc.repo.LatestSummary(ctx, classID)
	switch {
	case err == nil:
		ov.Summary = sum.Content
	case errors.Cause(err) != ErrNotFound:
		return Overview{}, errors.Wrap(err, "finding latest summary")
	}
	return ov, nil
}
