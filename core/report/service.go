package report

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("report not found")

	// GenerationTimeout bounds a background generation.
	GenerationTimeout = 2 * time.Minute
)

type (
	Repository interface {
		CreateReport(ctx context.Context, rep Report) (Report, error)
		// QueryReports returns the student's reports, newest first.
		QueryReports(ctx context.Context, studentID string) ([]Report, error)
		GetReport(ctx context.Context, id string) (Report, error)
		UpdateReport(ctx context.Context, rep Report) (Report, error)
	}

	// Generator writes the report body, usually with an LLM.
	Generator interface {
		GenerateReport(ctx context.Context, in GenerationInput) (Generation, error)
	}

	ServiceInterface interface {
		QueryByStudent(ctx context.Context, studentID string) ([]Report, error)
		Create(ctx context.Context, nr NewReport) (Created, error)
		GetByID(ctx context.Context, id string) (Report, error)
	}

	Service struct {
		repo       Repository
		studentSvc student.ServiceInterface
		radarSvc   radar.ServiceInterface
		generator  Generator
		logger     core.Logger
		wg         sync.WaitGroup
	}
)

var _ ServiceInterface = (*Service)(nil)

// NewService returns a report Service. A nil generator leaves new reports in the generating state.
func NewService(
	repo Repository,
	studentSvc student.ServiceInterface,
	radarSvc radar.ServiceInterface,
	generator Generator,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		studentSvc: studentSvc,
		radarSvc:   radarSvc,
		generator:  generator,
		logger:     logger,
	}
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Report, error) {
	return svc.repo.QueryReports(ctx, studentID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReport(ctx, id)
}

// Create stores a placeholder report and, when a Generator is set, fills it in the background.
func (svc *Service) Create(ctx context.Context, nr NewReport) (Created, error) {
	std, err := svc.studentSvc.GetByID(ctx, nr.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Created{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: student.ErrNotFound.Error()})
		}
		return Created{}, errors.Wrap(err, "finding student")
	}

	title := titleSingle
	if nr.ReportType == TypeQuarterly {
		title = titleQuarterly
	}
	now := time.Now().UTC()
	rep, err := svc.repo.CreateReport(ctx, Report{
		StudentID:  nr.StudentID,
		ReportType: nr.ReportType,
		Title:      title,
		Summary:    placeholderSum,
		Content:    Content{Status: StatusGenerating, Message: placeholderMsg},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Created{}, errors.Wrap(err, "creating report")
	}

	if svc.generator != nil {
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			svc.generate(rep, std)
		}()
	}
	return Created{Data: rep, Message: createdMsg}, nil
}

// Wait blocks until background generations are done.
func (svc *Service) Wait() {
	svc.wg.Wait()
}

func (svc *Service) generate(rep Report, std student.Student) {
	ctx, cancel := context.WithTimeout(context.Background(), GenerationTimeout)
	defer cancel()

	in := GenerationInput{ReportType: rep.ReportType, Student: std}
	var err error
	if in.Errors, err = svc.studentSvc.Errors(ctx, std.ID); err != nil {
		svc.fail(rep, errors.Wrap(err, "querying student errors"))
		return
	}
	if in.Radar, in.HasRadar, err = svc.radarSvc.Latest(ctx, std.ID); err != nil {
		svc.fail(rep, errors.Wrap(err, "finding radar data"))
		return
	}

	gen, err := svc.generator.GenerateReport(ctx, in)
	if err != nil {
		svc.fail(rep, errors.Wrap(err, "generating report"))
		return
	}

	now := time.Now().UTC()
	rep.Summary = gen.Summary
	rep.Content = Content{Status: StatusCompleted, Body: gen.Body, Model: gen.Model, GeneratedAt: &now}
	rep.UpdatedAt = now
	if _, err = svc.repo.UpdateReport(ctx, rep); err != nil {
		svc.logger.Error("saving generated report", err, map[string]interface{}{"report": rep.ID})
	}
}

// fail saves the failure with a fresh context since the generation one may be expired.
func (svc *Service) fail(rep Report, cause error) {
	svc.logger.Error(generationFailMsg, cause, map[string]interface{}{"report": rep.ID})

	rep.Content = Content{Status: StatusFailed, Message: generationFailMsg}
	rep.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateReport(context.Background(), rep); err != nil {
		svc.logger.Error("saving failed report", err, map[string]interface{}{"report": rep.ID})
	}
}
