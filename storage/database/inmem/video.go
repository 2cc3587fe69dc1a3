package inmemdb

import (
	"context"
	"sort"

	"github.com/Ing-la/future-navigator/core/video"
)

type videoRepository struct {
	db *DB
}

var _ video.Repository = (*videoRepository)(nil)

func NewVideoRepository(db *DB) *videoRepository {
	return &videoRepository{db: db}
}

func (repo *videoRepository) CreateVideo(_ context.Context, vid video.Video) (video.Video, error) {
	t := repo.db.video
	t.Lock()
	defer t.Unlock()

	vid.ID = newID()
	t.table[vid.ID] = &vid
	return vid, nil
}

func (repo *videoRepository) QueryVideos(_ context.Context, studentID string) ([]video.Video, error) {
	t := repo.db.video
	t.RLock()
	defer t.RUnlock()

	vids := make([]video.Video, 0)
	for _, vid := range t.table {
		if vid.StudentID == studentID {
			vids = append(vids, *vid)
		}
	}
	sort.SliceStable(vids, func(i, j int) bool { return vids[i].CreatedAt.After(vids[j].CreatedAt) })
	return vids, nil
}

func (repo *videoRepository) GetVideo(_ context.Context, filter video.GetFilter) (video.Video, error) {
	t := repo.db.video
	t.RLock()
	defer t.RUnlock()

	if filter.ID != "" {
		if vid, ok := t.table[filter.ID]; ok {
			return *vid, nil
		}
		return video.Video{}, video.ErrNotFound
	}
	for _, vid := range t.table {
		if filter.BlobURL != "" && vid.BlobURL == filter.BlobURL {
			return *vid, nil
		}
	}
	return video.Video{}, video.ErrNotFound
}

func (repo *videoRepository) UpdateVideo(_ context.Context, vid video.Video) (video.Video, error) {
	t := repo.db.video
	t.Lock()
	defer t.Unlock()

	if _, ok := t.table[vid.ID]; !ok {
		return video.Video{}, video.ErrNotFound
	}
	t.table[vid.ID] = &vid
	return vid, nil
}

// DeleteVideo cascades to the radar records of the video.
func (repo *videoRepository) DeleteVideo(_ context.Context, id string) (int, error) {
	repo.db.video.Lock()
	_, ok := repo.db.video.table[id]
	delete(repo.db.video.table, id)
	repo.db.video.Unlock()
	if !ok {
		return 0, nil
	}

	repo.db.radarData.Lock()
	for k, r := range repo.db.radarData.table {
		if r.VideoID == id {
			delete(repo.db.radarData.table, k)
		}
	}
	repo.db.radarData.Unlock()
	return 1, nil
}
