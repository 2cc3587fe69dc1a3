package inmemdb

import (
	"context"
	"sort"

	"github.com/Ing-la/future-navigator/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	t := repo.db.student
	t.Lock()
	defer t.Unlock()

	std.ID = newID()
	t.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) CreateStudents(_ context.Context, stds []student.Student) ([]student.Student, error) {
	t := repo.db.student
	t.Lock()
	defer t.Unlock()

	created := make([]student.Student, 0, len(stds))
	for _, std := range stds {
		std := std
		std.ID = newID()
		t.table[std.ID] = &std
		created = append(created, std)
	}
	return created, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, classID string) ([]student.Student, error) {
	t := repo.db.student
	t.RLock()
	defer t.RUnlock()

	stds := make([]student.Student, 0)
	for _, std := range t.table {
		if std.ClassID == classID {
			stds = append(stds, *std)
		}
	}
	sort.SliceStable(stds, func(i, j int) bool { return stds[i].CreatedAt.After(stds[j].CreatedAt) })
	return stds, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	t := repo.db.student
	t.RLock()
	defer t.RUnlock()

	if std, ok := t.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

// DeleteStudent cascades to the student's errors, videos, reports and radar data.
func (repo *studentRepository) DeleteStudent(_ context.Context, id string) (int, error) {
	repo.db.student.Lock()
	_, ok := repo.db.student.table[id]
	delete(repo.db.student.table, id)
	repo.db.student.Unlock()
	if !ok {
		return 0, nil
	}

	repo.db.stdError.Lock()
	for k, e := range repo.db.stdError.table {
		if e.StudentID == id {
			delete(repo.db.stdError.table, k)
		}
	}
	repo.db.stdError.Unlock()

	repo.db.video.Lock()
	for k, v := range repo.db.video.table {
		if v.StudentID == id {
			delete(repo.db.video.table, k)
		}
	}
	repo.db.video.Unlock()

	repo.db.report.Lock()
	for k, r := range repo.db.report.table {
		if r.StudentID == id {
			delete(repo.db.report.table, k)
		}
	}
	repo.db.report.Unlock()

	repo.db.radarData.Lock()
	for k, r := range repo.db.radarData.table {
		if r.StudentID == id {
			delete(repo.db.radarData.table, k)
		}
	}
	repo.db.radarData.Unlock()
	return 1, nil
}

func (repo *studentRepository) QueryErrors(_ context.Context, studentID string) ([]student.LearningError, error) {
	t := repo.db.stdError
	t.RLock()
	defer t.RUnlock()

	errs := make([]student.LearningError, 0)
	for _, e := range t.table {
		if e.StudentID == studentID {
			errs = append(errs, *e)
		}
	}
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Frequency != errs[j].Frequency {
			return errs[i].Frequency > errs[j].Frequency
		}
		return errs[i].CreatedAt.After(errs[j].CreatedAt)
	})
	return errs, nil
}

func (repo *studentRepository) UpsertError(_ context.Context, lerr student.LearningError) (student.LearningError, error) {
	t := repo.db.stdError
	t.Lock()
	defer t.Unlock()

	for _, e := range t.table {
		if e.StudentID == lerr.StudentID && e.ErrorType == lerr.ErrorType && e.ErrorContent == lerr.ErrorContent {
			e.Frequency++
			if lerr.CorrectContent != "" {
				e.CorrectContent = lerr.CorrectContent
			}
			if lerr.Context != "" {
				e.Context = lerr.Context
			}
			e.UpdatedAt = lerr.UpdatedAt
			return *e, nil
		}
	}
	lerr.ID = newID()
	t.table[lerr.ID] = &lerr
	return lerr, nil
}
