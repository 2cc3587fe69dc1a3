package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
)

// DB is a process local store used in tests and with the "memory" database engine.
type (
	DB struct {
		user      *userTable
		aiConfig  *aiConfigTable
		class     *classTable
		summary   *summaryTable
		student   *studentTable
		stdError  *stdErrorTable
		video     *videoTable
		report    *reportTable
		radarData *radarTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	aiConfigTable struct {
		sync.RWMutex
		table map[string]*ai.ProviderConfig // by provider
	}
	classTable struct {
		sync.RWMutex
		table map[string]*class.Class
	}
	summaryTable struct {
		sync.RWMutex
		table map[string]*class.Summary
	}
	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}
	stdErrorTable struct {
		sync.RWMutex
		table map[string]*student.LearningError
	}
	videoTable struct {
		sync.RWMutex
		table map[string]*video.Video
	}
	reportTable struct {
		sync.RWMutex
		table map[string]*report.Report
	}
	radarTable struct {
		sync.RWMutex
		table map[string]*radar.Record
	}
)

func Open() *DB {
	return &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		aiConfig:  &aiConfigTable{table: make(map[string]*ai.ProviderConfig)},
		class:     &classTable{table: make(map[string]*class.Class)},
		summary:   &summaryTable{table: make(map[string]*class.Summary)},
		student:   &studentTable{table: make(map[string]*student.Student)},
		stdError:  &stdErrorTable{table: make(map[string]*student.LearningError)},
		video:     &videoTable{table: make(map[string]*video.Video)},
		report:    &reportTable{table: make(map[string]*report.Report)},
		radarData: &radarTable{table: make(map[string]*radar.Record)},
	}
}

func newID() string {
	return uuid.New().String()
}
