package boiledrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/types"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/report"
)

const reportColumns = "id, student_id, report_type, title, summary, content, created_at, updated_at"

type reportRow struct {
	ID         string     `boil:"id"`
	StudentID  string     `boil:"student_id"`
	ReportType string     `boil:"report_type"`
	Title      string     `boil:"title"`
	Summary    string     `boil:"summary"`
	Content    types.JSON `boil:"content"`
	CreatedAt  time.Time  `boil:"created_at"`
	UpdatedAt  time.Time  `boil:"updated_at"`
}

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(exec core.DBExecutor) *reportRepository {
	return &reportRepository{exec: exec}
}

func (repo reportRepository) content(rep report.Report) (types.JSON, error) {
	b, err := json.Marshal(rep.Content)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling report content")
	}
	return types.JSON(b), nil
}

func (repo reportRepository) unboil(row reportRow) (report.Report, error) {
	rep := report.Report{
		ID:         row.ID,
		StudentID:  row.StudentID,
		ReportType: row.ReportType,
		Title:      row.Title,
		Summary:    row.Summary,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if err := row.Content.Unmarshal(&rep.Content); err != nil {
		return report.Report{}, errors.Wrap(err, "unmarshalling report content")
	}
	return rep, nil
}

func (repo reportRepository) CreateReport(ctx context.Context, rep report.Report) (report.Report, error) {
	content, err := repo.content(rep)
	if err != nil {
		return report.Report{}, err
	}
	rep.ID = uuid.New().String()
	_, err = queries.Raw(
		"INSERT INTO analysis_reports ("+reportColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		rep.ID, rep.StudentID, rep.ReportType, rep.Title, rep.Summary, content, rep.CreatedAt.UTC(), rep.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo reportRepository) QueryReports(ctx context.Context, studentID string) ([]report.Report, error) {
	reps := make([]report.Report, 0)
	if !validID(studentID) {
		return reps, nil
	}

	var rows []reportRow
	err := queries.Raw(
		"SELECT "+reportColumns+" FROM analysis_reports WHERE student_id = $1 ORDER BY created_at DESC", studentID,
	).Bind(ctx, repo.exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	for _, r := range rows {
		rep, err := repo.unboil(r)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, nil
}

func (repo reportRepository) GetReport(ctx context.Context, id string) (report.Report, error) {
	if !validID(id) {
		return report.Report{}, report.ErrNotFound
	}
	var row reportRow
	if err := queries.Raw("SELECT "+reportColumns+" FROM analysis_reports WHERE id = $1", id).Bind(ctx, repo.exec, &row); err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound, "finding report")
	}
	return repo.unboil(row)
}

func (repo reportRepository) UpdateReport(ctx context.Context, rep report.Report) (report.Report, error) {
	content, err := repo.content(rep)
	if err != nil {
		return report.Report{}, err
	}
	res, err := queries.Raw(
		"UPDATE analysis_reports SET title = $2, summary = $3, content = $4, updated_at = $5 WHERE id = $1",
		rep.ID, rep.Title, rep.Summary, content, rep.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "updating report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return report.Report{}, report.ErrNotFound
	}
	return rep, nil
}
