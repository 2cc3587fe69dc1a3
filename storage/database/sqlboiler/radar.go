package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/radar"
)

const radarColumns = "id, student_id, video_id, language_application, communication_collaboration, problem_solving, " +
	"proactive_exploration, creative_expression, intrinsic_motivation, recorded_at"

type radarRow struct {
	ID                         string      `boil:"id"`
	StudentID                  string      `boil:"student_id"`
	VideoID                    null.String `boil:"video_id"`
	LanguageApplication        float64     `boil:"language_application"`
	CommunicationCollaboration float64     `boil:"communication_collaboration"`
	ProblemSolving             float64     `boil:"problem_solving"`
	ProactiveExploration       float64     `boil:"proactive_exploration"`
	CreativeExpression         float64     `boil:"creative_expression"`
	IntrinsicMotivation        float64     `boil:"intrinsic_motivation"`
	RecordedAt                 time.Time   `boil:"recorded_at"`
}

type radarRepository struct {
	exec core.DBExecutor
}

var _ radar.Repository = (*radarRepository)(nil)

func NewRadarRepository(exec core.DBExecutor) *radarRepository {
	return &radarRepository{exec: exec}
}

func (repo radarRepository) unboil(row radarRow) radar.Record {
	return radar.Record{
		ID:        row.ID,
		StudentID: row.StudentID,
		VideoID:   row.VideoID.String,
		Metrics: radar.Metrics{
			LanguageApplication:        row.LanguageApplication,
			CommunicationCollaboration: row.CommunicationCollaboration,
			ProblemSolving:             row.ProblemSolving,
			ProactiveExploration:       row.ProactiveExploration,
			CreativeExpression:         row.CreativeExpression,
			IntrinsicMotivation:        row.IntrinsicMotivation,
		},
		RecordedAt: row.RecordedAt,
	}
}

func (repo radarRepository) CreateRecord(ctx context.Context, rec radar.Record) (radar.Record, error) {
	rec.ID = uuid.New().String()
	m := rec.Metrics
	_, err := queries.Raw(
		"INSERT INTO student_radar_data ("+radarColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		rec.ID, rec.StudentID, null.NewString(rec.VideoID, rec.VideoID != ""),
		m.LanguageApplication, m.CommunicationCollaboration, m.ProblemSolving,
		m.ProactiveExploration, m.CreativeExpression, m.IntrinsicMotivation,
		rec.RecordedAt.UTC(),
	).ExecContext(ctx, repo.exec)
	if err != nil {
		return radar.Record{}, errors.Wrap(err, "inserting radar record")
	}
	return rec, nil
}

func (repo radarRepository) LatestOverall(ctx context.Context, studentID string) (radar.Record, error) {
	if !validID(studentID) {
		return radar.Record{}, radar.ErrNotFound
	}
	var row radarRow
	err := queries.Raw(
		"SELECT "+radarColumns+" FROM student_radar_data WHERE student_id = $1 AND video_id IS NULL ORDER BY recorded_at DESC LIMIT 1",
		studentID,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return radar.Record{}, trapNoRowsErr(err, radar.ErrNotFound, "finding radar record")
	}
	return repo.unboil(row), nil
}

func (repo radarRepository) VideoOwner(ctx context.Context, videoID string) (string, error) {
	if !validID(videoID) {
		return "", radar.ErrNotFound
	}
	var row struct {
		StudentID string `boil:"student_id"`
	}
	if err := queries.Raw("SELECT student_id FROM videos WHERE id = $1", videoID).Bind(ctx, repo.exec, &row); err != nil {
		return "", trapNoRowsErr(err, radar.ErrNotFound, "finding video owner")
	}
	return row.StudentID, nil
}
