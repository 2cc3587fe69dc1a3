package video

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/student"
)

var (
	// errors
	ErrNotFound      = errors.New("video not found")
	errFileRequired  = errors.New("a video file is required")
	errNotAVideo     = errors.New("only video files are allowed")
	errFileTooLarge  = fmt.Errorf("the file cannot exceed %dMB", MaxUploadSize>>20)
	errMediaRequired = errors.New("videoUrl or audioUrl is required")
)

type (
	Repository interface {
		CreateVideo(ctx context.Context, vid Video) (Video, error)
		// QueryVideos returns the student's videos, newest first.
		QueryVideos(ctx context.Context, studentID string) ([]Video, error)
		GetVideo(ctx context.Context, filter GetFilter) (Video, error)
		UpdateVideo(ctx context.Context, vid Video) (Video, error)
		DeleteVideo(ctx context.Context, id string) (int, error)
	}

	ServiceInterface interface {
		Upload(ctx context.Context, nv NewVideo) (Video, error)
		QueryByStudent(ctx context.Context, studentID string) ([]Video, error)
		GetByID(ctx context.Context, id string) (Video, error)
		UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Video, error)
		Delete(ctx context.Context, id string) error
		Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeTask, error)
	}

	Service struct {
		repo       Repository
		studentSvc student.ServiceInterface
		blobs      core.BlobStore
		logger     core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, studentSvc student.ServiceInterface, blobs core.BlobStore, logger core.Logger) *Service {
	return &Service{repo: repo, studentSvc: studentSvc, blobs: blobs, logger: logger}
}

// Upload stores the file then records it as pending.
// The blob is removed again when the row cannot be inserted.
func (svc *Service) Upload(ctx context.Context, nv NewVideo) (Video, error) {
	if _, err := svc.studentSvc.GetByID(ctx, nv.StudentID); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Video{}, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: student.ErrNotFound.Error()})
		}
		return Video{}, errors.Wrap(err, "finding student")
	}

	pathname := path.Join("videos", nv.StudentID, path.Base(nv.Filename))
	blob, err := svc.blobs.Put(ctx, pathname, nv.Body, nv.ContentType)
	if err != nil {
		return Video{}, errors.Wrap(err, "uploading video")
	}

	now := time.Now().UTC()
	vid, err := svc.repo.CreateVideo(ctx, Video{
		StudentID: nv.StudentID,
		BlobURL:   blob.URL,
		Title:     nv.Title,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if dErr := svc.blobs.Delete(ctx, blob.URL); dErr != nil {
			svc.logger.Error("deleting orphan blob", dErr, map[string]interface{}{"url": blob.URL})
		}
		return Video{}, errors.Wrap(err, "creating video")
	}
	return vid, nil
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Video, error) {
	return svc.repo.QueryVideos(ctx, studentID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideo(ctx, GetFilter{ID: id})
}

func (svc *Service) UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Video, error) {
	vid, err := svc.GetByID(ctx, id)
	if err != nil {
		return Video{}, err
	}
	vid.Status = su.Status
	if su.DurationSeconds != nil {
		vid.DurationSeconds = su.DurationSeconds
	}
	vid.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateVideo(ctx, vid)
}

// Delete removes the row first. A failing blob delete is only logged.
func (svc *Service) Delete(ctx context.Context, id string) error {
	vid, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	n, err := svc.repo.DeleteVideo(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if err = svc.blobs.Delete(ctx, vid.BlobURL); err != nil {
		svc.logger.Error("deleting video blob", err, map[string]interface{}{"url": vid.BlobURL})
	}
	return nil
}

// Analyze flags the video stored at req.VideoURL as processing and hands back a task id.
// Unknown URLs are accepted since the media may live outside the blob store.
func (svc *Service) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeTask, error) {
	if req.VideoURL != "" {
		vid, err := svc.repo.GetVideo(ctx, GetFilter{BlobURL: req.VideoURL})
		switch {
		case err == nil:
			if vid.Status == StatusPending || vid.Status == StatusFailed {
				vid.Status = StatusProcessing
				vid.UpdatedAt = time.Now().UTC()
				if _, err = svc.repo.UpdateVideo(ctx, vid); err != nil {
					return AnalyzeTask{}, errors.Wrap(err, "updating video status")
				}
			}
		case errors.Cause(err) != ErrNotFound:
			return AnalyzeTask{}, errors.Wrap(err, "finding video")
		}
	}

	taskID := req.SessionID
	if taskID == "" {
		taskID = uuid.New().String()
	}
	return AnalyzeTask{TaskID: taskID, Status: StatusProcessing}, nil
}
