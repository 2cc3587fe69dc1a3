package report_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	logsvc "github.com/Ing-la/future-navigator/services/logger"
	inmemdb "github.com/Ing-la/future-navigator/storage/database/inmem"
)

var mia = student.Student{ID: "std-1", ClassID: "cls-1", Name: "Mia"}

type students struct {
	student.ServiceInterface
}

func (students) GetByID(_ context.Context, id string) (student.Student, error) {
	if id != mia.ID {
		return student.Student{}, student.ErrNotFound
	}
	return mia, nil
}

func (students) Errors(context.Context, string) ([]student.LearningError, error) {
	return []student.LearningError{{StudentID: mia.ID, ErrorType: student.ErrorGrammar, ErrorContent: "he go", Frequency: 2}}, nil
}

type radars struct {
	radar.ServiceInterface
}

func (radars) Latest(context.Context, string) (radar.Metrics, bool, error) {
	return radar.Metrics{LanguageApplication: 80}, true, nil
}

// generator records what it was given.
type generator struct {
	in  report.GenerationInput
	err error
}

func (g *generator) GenerateReport(_ context.Context, in report.GenerationInput) (report.Generation, error) {
	g.in = in
	if g.err != nil {
		return report.Generation{}, g.err
	}
	return report.Generation{Summary: "Mia shines.", Body: "Mia shines.\n\nMore details.", Model: "test-model"}, nil
}

func newService(gen report.Generator) *report.Service {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &core.Config{Env: core.EnvTest})
	logger.Enable(false)
	repo := inmemdb.NewReportRepository(inmemdb.Open())
	return report.NewService(repo, students{}, radars{}, gen, logger)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown student", func(t *testing.T) {
		svc := newService(nil)
		_, err := svc.Create(ctx, report.NewReport{StudentID: "unknown", ReportType: report.TypeSingle})
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, map[string]string{"studentId": "student not found"}, verr.FieldMap())
	})

	t.Run("without generator", func(t *testing.T) {
		svc := newService(nil)
		created, err := svc.Create(ctx, report.NewReport{StudentID: mia.ID, ReportType: report.TypeQuarterly})
		require.NoError(t, err)
		svc.Wait()

		rep, err := svc.GetByID(ctx, created.Data.ID)
		require.NoError(t, err)
		assert.Equal(t, "Quarterly Summary Report", rep.Title)
		assert.Equal(t, report.StatusGenerating, rep.Content.Status)
	})

	t.Run("generated", func(t *testing.T) {
		gen := &generator{}
		svc := newService(gen)
		created, err := svc.Create(ctx, report.NewReport{StudentID: mia.ID, ReportType: report.TypeSingle})
		require.NoError(t, err)
		assert.Equal(t, report.StatusGenerating, created.Data.Content.Status)
		svc.Wait()

		assert.Equal(t, report.TypeSingle, gen.in.ReportType)
		assert.Equal(t, mia, gen.in.Student)
		assert.True(t, gen.in.HasRadar)
		assert.Len(t, gen.in.Errors, 1)

		rep, err := svc.GetByID(ctx, created.Data.ID)
		require.NoError(t, err)
		assert.Equal(t, report.StatusCompleted, rep.Content.Status)
		assert.Equal(t, "Mia shines.", rep.Summary)
		assert.Equal(t, "test-model", rep.Content.Model)
		require.NotNil(t, rep.Content.GeneratedAt)
		assert.False(t, rep.UpdatedAt.Before(rep.CreatedAt))
	})

	t.Run("failed", func(t *testing.T) {
		svc := newService(&generator{err: errors.New("quota exceeded")})
		created, err := svc.Create(ctx, report.NewReport{StudentID: mia.ID, ReportType: report.TypeSingle})
		require.NoError(t, err)
		svc.Wait()

		rep, err := svc.GetByID(ctx, created.Data.ID)
		require.NoError(t, err)
		assert.Equal(t, report.StatusFailed, rep.Content.Status)
		assert.Equal(t, "report generation failed", rep.Content.Message)
		assert.Empty(t, rep.Content.Body)
	})
}

func TestService_QueryByStudent(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	first, err := svc.Create(ctx, report.NewReport{StudentID: mia.ID, ReportType: report.TypeSingle})
	require.NoError(t, err)
	second, err := svc.Create(ctx, report.NewReport{StudentID: mia.ID, ReportType: report.TypeQuarterly})
	require.NoError(t, err)

	reps, err := svc.QueryByStudent(ctx, mia.ID)
	require.NoError(t, err)
	require.Len(t, reps, 2)
	ids := []string{reps[0].ID, reps[1].ID}
	assert.ElementsMatch(t, []string{first.Data.ID, second.Data.ID}, ids)

	reps, err = svc.QueryByStudent(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, reps)

	_, err = svc.GetByID(ctx, "unknown")
	assert.Equal(t, report.ErrNotFound, errors.Cause(err))
}
