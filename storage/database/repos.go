package database

import (
	"database/sql"

	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
	inmemdb "github.com/Ing-la/future-navigator/storage/database/inmem"
	boiledrepos "github.com/Ing-la/future-navigator/storage/database/sqlboiler"
	sqlxrepos "github.com/Ing-la/future-navigator/storage/database/sqlx"
)

// Repositories bundles one repository per domain package.
type Repositories struct {
	User     user.Repository
	Class    class.Repository
	Student  student.Repository
	Video    video.Repository
	Report   report.Repository
	Radar    radar.Repository
	AIConfig ai.ConfigRepository
}

// NewRepositories returns postgres backed repositories.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:     boiledrepos.NewUserRepository(db),
		Class:    boiledrepos.NewClassRepository(db),
		Student:  boiledrepos.NewStudentRepository(db),
		Video:    boiledrepos.NewVideoRepository(db),
		Report:   boiledrepos.NewReportRepository(db),
		Radar:    boiledrepos.NewRadarRepository(db),
		AIConfig: sqlxrepos.NewAIConfigRepository(db),
	}
}

// NewMemoryRepositories returns repositories sharing a fresh in-memory DB.
func NewMemoryRepositories() *Repositories {
	db := inmemdb.Open()
	return &Repositories{
		User:     inmemdb.NewUserRepository(db),
		Class:    inmemdb.NewClassRepository(db),
		Student:  inmemdb.NewStudentRepository(db),
		Video:    inmemdb.NewVideoRepository(db),
		Report:   inmemdb.NewReportRepository(db),
		Radar:    inmemdb.NewRadarRepository(db),
		AIConfig: inmemdb.NewAIConfigRepository(db),
	}
}
