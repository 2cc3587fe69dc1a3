package boiledrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/student"
)

const (
	studentColumns = "id, class_id, name, student_number, avatar_url, created_at, updated_at"
	errorColumns   = "id, student_id, error_type, error_content, correct_content, frequency, context, created_at, updated_at"
)

type (
	studentRow struct {
		ID            string      `boil:"id"`
		ClassID       string      `boil:"class_id"`
		Name          string      `boil:"name"`
		StudentNumber null.String `boil:"student_number"`
		AvatarURL     null.String `boil:"avatar_url"`
		CreatedAt     time.Time   `boil:"created_at"`
		UpdatedAt     time.Time   `boil:"updated_at"`
	}

	errorRow struct {
		ID             string      `boil:"id"`
		StudentID      string      `boil:"student_id"`
		ErrorType      string      `boil:"error_type"`
		ErrorContent   string      `boil:"error_content"`
		CorrectContent null.String `boil:"correct_content"`
		Frequency      int         `boil:"frequency"`
		Context        null.String `boil:"context"`
		CreatedAt      time.Time   `boil:"created_at"`
		UpdatedAt      time.Time   `boil:"updated_at"`
	}
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) boil(std student.Student) []interface{} {
	return []interface{}{
		std.ID,
		std.ClassID,
		std.Name,
		null.NewString(std.StudentNumber, std.StudentNumber != ""),
		null.NewString(std.AvatarURL, std.AvatarURL != ""),
		std.CreatedAt.UTC(),
		std.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) unboil(row studentRow) student.Student {
	return student.Student{
		ID:            row.ID,
		ClassID:       row.ClassID,
		Name:          row.Name,
		StudentNumber: row.StudentNumber.String,
		AvatarURL:     row.AvatarURL.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func (repo studentRepository) unboilError(row errorRow) student.LearningError {
	return student.LearningError{
		ID:             row.ID,
		StudentID:      row.StudentID,
		ErrorType:      row.ErrorType,
		ErrorContent:   row.ErrorContent,
		CorrectContent: row.CorrectContent.String,
		Frequency:      row.Frequency,
		Context:        row.Context.String,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	created, err := repo.CreateStudents(ctx, []student.Student{std})
	if err != nil {
		return student.Student{}, err
	}
	return created[0], nil
}

// CreateStudents does a single multi-row INSERT.
func (repo studentRepository) CreateStudents(ctx context.Context, stds []student.Student) ([]student.Student, error) {
	if len(stds) == 0 {
		return nil, nil
	}
	const nCols = 7
	args := make([]interface{}, 0, len(stds)*nCols)
	created := make([]student.Student, 0, len(stds))
	for _, std := range stds {
		std.ID = uuid.New().String()
		args = append(args, repo.boil(std)...)
		created = append(created, std)
	}

	q := fmt.Sprintf("INSERT INTO students (%s) VALUES %s",
		studentColumns, strmangle.Placeholders(true, len(args), 1, nCols))
	if _, err := queries.Raw(q, args...).ExecContext(ctx, repo.exec); err != nil {
		return nil, errors.Wrap(err, "inserting students")
	}
	return created, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, classID string) ([]student.Student, error) {
	stds := make([]student.Student, 0)
	if !validID(classID) {
		return stds, nil
	}

	var rows []studentRow
	err := queries.Raw(
		"SELECT "+studentColumns+" FROM students WHERE class_id = $1 ORDER BY created_at DESC", classID,
	).Bind(ctx, repo.exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	for _, r := range rows {
		stds = append(stds, repo.unboil(r))
	}
	return stds, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := queries.Raw("SELECT "+studentColumns+" FROM students WHERE id = $1", id).Bind(ctx, repo.exec, &row); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.unboil(row), nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) (int, error) {
	if !validID(id) {
		return 0, nil
	}
	res, err := queries.Raw("DELETE FROM students WHERE id = $1", id).ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, errors.Wrap(err, "deleting student")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting student")
}

func (repo studentRepository) QueryErrors(ctx context.Context, studentID string) ([]student.LearningError, error) {
	errs := make([]student.LearningError, 0)
	if !validID(studentID) {
		return errs, nil
	}

	var rows []errorRow
	err := queries.Raw(
		"SELECT "+errorColumns+" FROM student_errors WHERE student_id = $1 ORDER BY frequency DESC, created_at DESC",
		studentID,
	).Bind(ctx, repo.exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying student errors")
	}
	for _, r := range rows {
		errs = append(errs, repo.unboilError(r))
	}
	return errs, nil
}

// UpsertError relies on the (student_id, error_type, error_content) unique constraint.
func (repo studentRepository) UpsertError(ctx context.Context, lerr student.LearningError) (student.LearningError, error) {
	var row errorRow
	err := queries.Raw(`
		INSERT INTO student_errors (`+errorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (student_id, error_type, error_content) DO UPDATE SET
			frequency = student_errors.frequency + 1,
			correct_content = COALESCE(EXCLUDED.correct_content, student_errors.correct_content),
			context = COALESCE(EXCLUDED.context, student_errors.context),
			updated_at = EXCLUDED.updated_at
		RETURNING `+errorColumns,
		uuid.New().String(),
		lerr.StudentID,
		lerr.ErrorType,
		lerr.ErrorContent,
		null.NewString(lerr.CorrectContent, lerr.CorrectContent != ""),
		lerr.Frequency,
		null.NewString(lerr.Context, lerr.Context != ""),
		lerr.CreatedAt.UTC(),
		lerr.UpdatedAt.UTC(),
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return student.LearningError{}, errors.Wrap(err, "upserting student error")
	}
	return repo.unboilError(row), nil
}
