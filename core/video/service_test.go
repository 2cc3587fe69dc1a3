package video_test

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/video"
	blobsvc "github.com/Ing-la/future-navigator/services/blob"
	logsvc "github.com/Ing-la/future-navigator/services/logger"
	inmemdb "github.com/Ing-la/future-navigator/storage/database/inmem"
)

type students struct {
	student.ServiceInterface
}

func (students) GetByID(_ context.Context, id string) (student.Student, error) {
	if id != "std-1" {
		return student.Student{}, student.ErrNotFound
	}
	return student.Student{ID: id, ClassID: "cls-1", Name: "Mia"}, nil
}

// brokenRepo cannot insert.
type brokenRepo struct {
	video.Repository
}

func (brokenRepo) CreateVideo(context.Context, video.Video) (video.Video, error) {
	return video.Video{}, errors.New("db is down")
}

func newService(repo video.Repository) (*video.Service, *blobsvc.MemoryStore) {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Env: core.EnvTest})
	logger.Enable(false)
	blobs := blobsvc.NewMemoryStore()
	return video.NewService(repo, students{}, blobs, logger), blobs
}

func newVideo(studentID string) video.NewVideo {
	return video.NewVideo{
		StudentID:   studentID,
		Title:       "Show and tell",
		Filename:    "../../etc/show.mp4",
		ContentType: "video/mp4",
		Body:        strings.NewReader("mp4"),
	}
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown student", func(t *testing.T) {
		svc, blobs := newService(inmemdb.NewVideoRepository(inmemdb.Open()))
		_, err := svc.Upload(ctx, newVideo("unknown"))

		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, map[string]string{"studentId": "student not found"}, verr.FieldMap())

		objs, _ := blobs.List(ctx, "")
		assert.Empty(t, objs)
	})

	t.Run("stored under the student", func(t *testing.T) {
		svc, blobs := newService(inmemdb.NewVideoRepository(inmemdb.Open()))
		vid, err := svc.Upload(ctx, newVideo("std-1"))
		require.NoError(t, err)
		assert.Equal(t, video.StatusPending, vid.Status)

		objs, err := blobs.List(ctx, "videos/std-1/")
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, vid.BlobURL, objs[0].URL)
		assert.True(t, strings.HasPrefix(objs[0].Pathname, "videos/std-1/show-"), objs[0].Pathname)
		assert.Equal(t, int64(3), objs[0].Size)
	})

	t.Run("orphan blob is removed", func(t *testing.T) {
		svc, blobs := newService(brokenRepo{})
		_, err := svc.Upload(ctx, newVideo("std-1"))
		require.Error(t, err)

		objs, _ := blobs.List(ctx, "")
		assert.Empty(t, objs)
	})
}

func TestService_UpdateStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, blobs := newService(inmemdb.NewVideoRepository(inmemdb.Open()))

	vid, err := svc.Upload(ctx, newVideo("std-1"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "unknown", video.StatusUpdate{Status: video.StatusCompleted})
	assert.Equal(t, video.ErrNotFound, errors.Cause(err))

	seconds := 42
	got, err := svc.UpdateStatus(ctx, vid.ID, video.StatusUpdate{Status: video.StatusCompleted, DurationSeconds: &seconds})
	require.NoError(t, err)
	assert.Equal(t, video.StatusCompleted, got.Status)
	assert.Equal(t, 42, *got.DurationSeconds)

	// the duration is kept when omitted
	got, err = svc.UpdateStatus(ctx, vid.ID, video.StatusUpdate{Status: video.StatusFailed})
	require.NoError(t, err)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 42, *got.DurationSeconds)

	require.NoError(t, svc.Delete(ctx, vid.ID))
	_, ok := blobs.Open(vid.BlobURL)
	assert.False(t, ok)
	assert.Equal(t, video.ErrNotFound, errors.Cause(svc.Delete(ctx, vid.ID)))
}

func TestService_Analyze(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(inmemdb.NewVideoRepository(inmemdb.Open()))

	vid, err := svc.Upload(ctx, newVideo("std-1"))
	require.NoError(t, err)
	done, err := svc.Upload(ctx, newVideo("std-1"))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, done.ID, video.StatusUpdate{Status: video.StatusCompleted})
	require.NoError(t, err)

	task, err := svc.Analyze(ctx, video.AnalyzeRequest{VideoURL: vid.BlobURL})
	require.NoError(t, err)
	assert.NotEmpty(t, task.TaskID)
	assert.Equal(t, video.StatusProcessing, task.Status)

	got, _ := svc.GetByID(ctx, vid.ID)
	assert.Equal(t, video.StatusProcessing, got.Status)

	// completed videos keep their status
	_, err = svc.Analyze(ctx, video.AnalyzeRequest{VideoURL: done.BlobURL, SessionID: "s-9"})
	require.NoError(t, err)
	got, _ = svc.GetByID(ctx, done.ID)
	assert.Equal(t, video.StatusCompleted, got.Status)

	task, err = svc.Analyze(ctx, video.AnalyzeRequest{VideoURL: "https://elsewhere.test.cd/v.mp4", SessionID: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", task.TaskID)
}
