package radar

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/student"
)

var (
	// errors
	ErrNotFound      = errors.New("no radar data")
	errVideoMismatch = errors.New("the video does not belong to this student")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// LatestOverall returns the newest record without a video, or ErrNotFound.
		LatestOverall(ctx context.Context, studentID string) (Record, error)
		// VideoOwner returns the student owning videoID, or ErrNotFound.
		VideoOwner(ctx context.Context, videoID string) (string, error)
	}

	ServiceInterface interface {
		// Latest returns zeroed metrics and found=false when the student has no overall record.
		Latest(ctx context.Context, studentID string) (m Metrics, found bool, err error)
		Record(ctx context.Context, nr NewRecord) (Record, error)
	}

	Service struct {
		repo       Repository
		studentSvc student.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, studentSvc student.ServiceInterface) *Service {
	return &Service{repo: repo, studentSvc: studentSvc}
}

func (svc *Service) Latest(ctx context.Context, studentID string) (Metrics, bool, error) {
	rec, err := svc.repo.LatestOverall(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Metrics{}, false, nil
		}
		return Metrics{}, false, err
	}
	return rec.Metrics, true, nil
}

func (svc *Service) Record(ctx context.Context, nr NewRecord) (Record, error) {
	if _, err := svc.studentSvc.GetByID(ctx, nr.StudentID); err != nil {
		return Record{}, err
	}
	if nr.VideoID != "" {
		owner, err := svc.repo.VideoOwner(ctx, nr.VideoID)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return Record{}, errors.Wrap(err, "finding video")
		}
		if owner != nr.StudentID {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "videoId", Error: errVideoMismatch.Error()})
		}
	}
	return svc.repo.CreateRecord(ctx, Record{
		StudentID:  nr.StudentID,
		VideoID:    nr.VideoID,
		Metrics:    nr.Metrics,
		RecordedAt: time.Now().UTC(),
	})
}
