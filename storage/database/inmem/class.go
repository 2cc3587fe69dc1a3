package inmemdb

import (
	"context"

	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/video"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	t := repo.db.class
	t.Lock()
	defer t.Unlock()

	for _, c := range t.table {
		if c.TeacherID == cls.TeacherID {
			return class.Class{}, class.ErrTeacherHasClass
		}
	}
	cls.ID = newID()
	t.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, filter class.GetFilter) (class.Class, error) {
	t := repo.db.class
	t.RLock()
	defer t.RUnlock()

	if filter.ID != "" {
		if cls, ok := t.table[filter.ID]; ok {
			return *cls, nil
		}
		return class.Class{}, class.ErrNotFound
	}
	for _, cls := range t.table {
		if filter.TeacherID != "" && cls.TeacherID == filter.TeacherID {
			return *cls, nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) CreateSummary(_ context.Context, sum class.Summary) (class.Summary, error) {
	t := repo.db.summary
	t.Lock()
	defer t.Unlock()

	sum.ID = newID()
	t.table[sum.ID] = &sum
	return sum, nil
}

func (repo *classRepository) LatestSummary(_ context.Context, classID string) (class.Summary, error) {
	t := repo.db.summary
	t.RLock()
	defer t.RUnlock()

	var latest *class.Summary
	for _, sum := range t.table {
		if sum.ClassID == classID && (latest == nil || sum.GeneratedAt.After(latest.GeneratedAt)) {
			latest = sum
		}
	}
	if latest == nil {
		return class.Summary{}, class.ErrNotFound
	}
	return *latest, nil
}

func (repo *classRepository) Stats(_ context.Context, classID string) (class.Stats, error) {
	var stats class.Stats
	students := make(map[string]bool)

	repo.db.student.RLock()
	for _, std := range repo.db.student.table {
		if std.ClassID == classID {
			students[std.ID] = true
		}
	}
	repo.db.student.RUnlock()
	stats.Students = len(students)

	repo.db.video.RLock()
	for _, vid := range repo.db.video.table {
		if students[vid.StudentID] && vid.Status == video.StatusPending {
			stats.PendingVideos++
		}
	}
	repo.db.video.RUnlock()

	repo.db.report.RLock()
	for _, rep := range repo.db.report.table {
		if students[rep.StudentID] && rep.Content.Status == report.StatusGenerating {
			stats.PendingReports++
		}
	}
	repo.db.report.RUnlock()

	return stats, nil
}
