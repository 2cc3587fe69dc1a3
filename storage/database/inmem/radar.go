package inmemdb

import (
	"context"

	"github.com/Ing-la/future-navigator/core/radar"
)

type radarRepository struct {
	db *DB
}

var _ radar.Repository = (*radarRepository)(nil)

func NewRadarRepository(db *DB) *radarRepository {
	return &radarRepository{db: db}
}

func (repo *radarRepository) CreateRecord(_ context.Context, rec radar.Record) (radar.Record, error) {
	t := repo.db.radarData
	t.Lock()
	defer t.Unlock()

	rec.ID = newID()
	t.table[rec.ID] = &rec
	return rec, nil
}

func (repo *radarRepository) LatestOverall(_ context.Context, studentID string) (radar.Record, error) {
	t := repo.db.radarData
	t.RLock()
	defer t.RUnlock()

	var latest *radar.Record
	for _, rec := range t.table {
		if rec.StudentID != studentID || rec.VideoID != "" {
			continue
		}
		if latest == nil || rec.RecordedAt.After(latest.RecordedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return radar.Record{}, radar.ErrNotFound
	}
	return *latest, nil
}

func (repo *radarRepository) VideoOwner(_ context.Context, videoID string) (string, error) {
	t := repo.db.video
	t.RLock()
	defer t.RUnlock()

	if vid, ok := t.table[videoID]; ok {
		return vid.StudentID, nil
	}
	return "", radar.ErrNotFound
}
