package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/video"
)

const classColumns = "id, teacher_id, name, description, created_at, updated_at"

type (
	classRow struct {
		ID          string      `boil:"id"`
		TeacherID   string      `boil:"teacher_id"`
		Name        string      `boil:"name"`
		Description null.String `boil:"description"`
		CreatedAt   time.Time   `boil:"created_at"`
		UpdatedAt   time.Time   `boil:"updated_at"`
	}

	summaryRow struct {
		ID          string    `boil:"id"`
		ClassID     string    `boil:"class_id"`
		Content     string    `boil:"summary_content"`
		GeneratedAt time.Time `boil:"generated_at"`
	}
)

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo classRepository) unboil(row classRow) class.Class {
	return class.Class{
		ID:          row.ID,
		TeacherID:   row.TeacherID,
		Name:        row.Name,
		Description: row.Description.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	_, err := queries.Raw(
		"INSERT INTO classes ("+classColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		cls.ID, cls.TeacherID, cls.Name, null.NewString(cls.Description, cls.Description != ""),
		cls.CreatedAt.UTC(), cls.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		if isUniqueViolation(err) {
			return class.Class{}, class.ErrTeacherHasClass
		}
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, filter class.GetFilter) (class.Class, error) {
	q := "SELECT " + classColumns + " FROM classes WHERE "
	var arg string
	switch {
	case filter.ID != "":
		q, arg = q+"id = $1", filter.ID
	case filter.TeacherID != "":
		q, arg = q+"teacher_id = $1", filter.TeacherID
	}
	if !validID(arg) {
		return class.Class{}, class.ErrNotFound
	}

	var row classRow
	if err := queries.Raw(q+" LIMIT 1", arg).Bind(ctx, repo.exec, &row); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return repo.unboil(row), nil
}

func (repo classRepository) CreateSummary(ctx context.Context, sum class.Summary) (class.Summary, error) {
	sum.ID = uuid.New().String()
	_, err := queries.Raw(
		"INSERT INTO class_summaries (id, class_id, summary_content, generated_at) VALUES ($1, $2, $3, $4)",
		sum.ID, sum.ClassID, sum.Content, sum.GeneratedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return class.Summary{}, errors.Wrap(err, "inserting class summary")
	}
	return sum, nil
}

func (repo classRepository) LatestSummary(ctx context.Context, classID string) (class.Summary, error) {
	if !validID(classID) {
		return class.Summary{}, class.ErrNotFound
	}
	var row summaryRow
	err := queries.Raw(
		"SELECT id, class_id, summary_content, generated_at FROM class_summaries WHERE class_id = $1 ORDER BY generated_at DESC LIMIT 1",
		classID,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return class.Summary{}, trapNoRowsErr(err, class.ErrNotFound, "finding latest class summary")
	}
	return class.Summary{ID: row.ID, ClassID: row.ClassID, Content: row.Content, GeneratedAt: row.GeneratedAt}, nil
}

func (repo classRepository) Stats(ctx context.Context, classID string) (class.Stats, error) {
	if !validID(classID) {
		return class.Stats{}, nil
	}
	var row struct {
		Students       int `boil:"students"`
		PendingVideos  int `boil:"pending_videos"`
		PendingReports int `boil:"pending_reports"`
	}
	err := queries.Raw(`
		SELECT
			(SELECT COUNT(*) FROM students s WHERE s.class_id = $1) AS students,
			(SELECT COUNT(*) FROM videos v JOIN students s ON s.id = v.student_id
				WHERE s.class_id = $1 AND v.status = $2) AS pending_videos,
			(SELECT COUNT(*) FROM analysis_reports r JOIN students s ON s.id = r.student_id
				WHERE s.class_id = $1 AND r.content->>'status' = $3) AS pending_reports`,
		classID, video.StatusPending, report.StatusGenerating,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return class.Stats{}, errors.Wrap(err, "counting class stats")
	}
	return class.Stats{Students: row.Students, PendingVideos: row.PendingVideos, PendingReports: row.PendingReports}, nil
}
