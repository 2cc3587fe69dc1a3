package inmemdb

import (
	"context"
	"sort"

	"github.com/Ing-la/future-navigator/core/report"
)

type reportRepository struct {
	db *reportTable
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db.report}
}

func (repo *reportRepository) CreateReport(_ context.Context, rep report.Report) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rep.ID = newID()
	repo.db.table[rep.ID] = &rep
	return rep, nil
}

func (repo *reportRepository) QueryReports(_ context.Context, studentID string) ([]report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	reps := make([]report.Report, 0)
	for _, rep := range repo.db.table {
		if rep.StudentID == studentID {
			reps = append(reps, *rep)
		}
	}
	sort.SliceStable(reps, func(i, j int) bool { return reps[i].CreatedAt.After(reps[j].CreatedAt) })
	return reps, nil
}

func (repo *reportRepository) GetReport(_ context.Context, id string) (report.Report, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rep, ok := repo.db.table[id]; ok {
		return *rep, nil
	}
	return report.Report{}, report.ErrNotFound
}

func (repo *reportRepository) UpdateReport(_ context.Context, rep report.Report) (report.Report, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rep.ID]; !ok {
		return report.Report{}, report.ErrNotFound
	}
	repo.db.table[rep.ID] = &rep
	return rep, nil
}
