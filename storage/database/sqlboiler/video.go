package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/video"
)

const videoColumns = "id, student_id, blob_url, title, status, duration_seconds, created_at, updated_at"

type videoRow struct {
	ID              string    `boil:"id"`
	StudentID       string    `boil:"student_id"`
	BlobURL         string    `boil:"blob_url"`
	Title           string    `boil:"title"`
	Status          string    `boil:"status"`
	DurationSeconds null.Int  `boil:"duration_seconds"`
	CreatedAt       time.Time `boil:"created_at"`
	UpdatedAt       time.Time `boil:"updated_at"`
}

type videoRepository struct {
	exec core.DBExecutor
}

var _ video.Repository = (*videoRepository)(nil)

func NewVideoRepository(exec core.DBExecutor) *videoRepository {
	return &videoRepository{exec: exec}
}

func (repo videoRepository) unboil(row videoRow) video.Video {
	return video.Video{
		ID:              row.ID,
		StudentID:       row.StudentID,
		BlobURL:         row.BlobURL,
		Title:           row.Title,
		Status:          row.Status,
		DurationSeconds: row.DurationSeconds.Ptr(),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (repo videoRepository) CreateVideo(ctx context.Context, vid video.Video) (video.Video, error) {
	vid.ID = uuid.New().String()
	_, err := queries.Raw(
		"INSERT INTO videos ("+videoColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		vid.ID, vid.StudentID, vid.BlobURL, vid.Title, vid.Status,
		null.IntFromPtr(vid.DurationSeconds), vid.CreatedAt.UTC(), vid.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "inserting video")
	}
	return vid, nil
}

func (repo videoRepository) QueryVideos(ctx context.Context, studentID string) ([]video.Video, error) {
	vids := make([]video.Video, 0)
	if !validID(studentID) {
		return vids, nil
	}

	var rows []videoRow
	err := queries.Raw(
		"SELECT "+videoColumns+" FROM videos WHERE student_id = $1 ORDER BY created_at DESC", studentID,
	).Bind(ctx, repo.exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	for _, r := range rows {
		vids = append(vids, repo.unboil(r))
	}
	return vids, nil
}

func (repo videoRepository) GetVideo(ctx context.Context, filter video.GetFilter) (video.Video, error) {
	q := "SELECT " + videoColumns + " FROM videos WHERE "
	var arg string
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return video.Video{}, video.ErrNotFound
		}
		q, arg = q+"id = $1", filter.ID
	case filter.BlobURL != "":
		q, arg = q+"blob_url = $1", filter.BlobURL
	default:
		return video.Video{}, video.ErrNotFound
	}

	var row videoRow
	if err := queries.Raw(q+" LIMIT 1", arg).Bind(ctx, repo.exec, &row); err != nil {
		return video.Video{}, trapNoRowsErr(err, video.ErrNotFound, "finding video")
	}
	return repo.unboil(row), nil
}

func (repo videoRepository) UpdateVideo(ctx context.Context, vid video.Video) (video.Video, error) {
	res, err := queries.Raw(
		"UPDATE videos SET title = $2, status = $3, duration_seconds = $4, updated_at = $5 WHERE id = $1",
		vid.ID, vid.Title, vid.Status, null.IntFromPtr(vid.DurationSeconds), vid.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "updating video")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return video.Video{}, video.ErrNotFound
	}
	return vid, nil
}

func (repo videoRepository) DeleteVideo(ctx context.Context, id string) (int, error) {
	if !validID(id) {
		return 0, nil
	}
	res, err := queries.Raw("DELETE FROM videos WHERE id = $1", id).ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, errors.Wrap(err, "deleting video")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting video")
}
