package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	. "github.com/Ing-la/future-navigator/apps/api/echo"
	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
	blobsvc "github.com/Ing-la/future-navigator/services/blob"
	emailsvc "github.com/Ing-la/future-navigator/services/email"
	llmsvc "github.com/Ing-la/future-navigator/services/llm"
	logsvc "github.com/Ing-la/future-navigator/services/logger"
	ratelimitsvc "github.com/Ing-la/future-navigator/services/ratelimit"
	"github.com/Ing-la/future-navigator/storage/database"
)

const (
	testPassword = "s3cret!"
	goodKey      = "good-key"
	geminiAnswer = "Great progress this term.\n\nKeep reading every day."

	interruptPrompt = "cut me off"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errRequired     = "this field is required"
)

// testApp is a fully wired API backed by in-memory storage and a fake Gemini.
type testApp struct {
	app    *Server
	conf   *core.Config
	blobs  *blobsvc.MemoryStore
	gemini *httptest.Server

	userSvc    *user.Service
	classSvc   *class.Service
	studentSvc *student.Service
	videoSvc   *video.Service
	reportSvc  *report.Service
	radarSvc   *radar.Service
	aiSvc      *ai.Service
}

func setup(t *testing.T, opts ...func(conf *core.Config)) *testApp {
	t.Helper()

	gemini := httptest.NewServer(http.HandlerFunc(fakeGemini))
	t.Cleanup(gemini.Close)

	conf := &core.Config{
		TestMode:                  true,
		AppName:                   "Future Navigator",
		SecretKey:                 "test-secret-key",
		Env:                       core.EnvTest,
		Build:                     "test",
		PasswordResetTimeoutDelta: time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			AllowOrigins:              []string{"*"},
		},
		Database: core.DatabaseConfig{Engine: core.DBEngineMemory},
		Mail:     core.MailConfig{DefaultFromEmail: mail.Address{Name: "Future Navigator", Address: "noreply@test.cd"}},
		Gemini: core.GeminiConfig{
			FlashModel: "gemini-flash",
			ProModel:   "gemini-pro",
			BaseURL:    gemini.URL,
		},
		Blob:      core.BlobConfig{Driver: core.BlobDriverMemory},
		RateLimit: core.RateLimitConfig{LoginPerMinute: 1000, ChatPerMinute: 1000},
	}
	for _, opt := range opts {
		opt(conf)
	}

	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	sealer, err := core.NewSealer(conf.SecretKey)
	require.NoError(t, err)

	repos := database.NewMemoryRepositories()
	blobs := blobsvc.NewMemoryStore()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	ta := &testApp{conf: conf, blobs: blobs, gemini: gemini}
	ta.userSvc = user.NewService(repos.User, mailSvc, conf)
	ta.classSvc = class.NewService(repos.Class, ta.userSvc)
	ta.studentSvc = student.NewService(repos.Student, ta.classSvc)
	ta.videoSvc = video.NewService(repos.Video, ta.studentSvc, blobs, logger)
	ta.radarSvc = radar.NewService(repos.Radar, ta.studentSvc)
	ta.aiSvc = ai.NewService(repos.AIConfig, llmsvc.NewGemini(conf), sealer, conf)
	ta.reportSvc = report.NewService(repos.Report, ta.studentSvc, ta.radarSvc, ta.aiSvc, logger)
	t.Cleanup(ta.reportSvc.Wait)

	ta.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Limiter:        ratelimitsvc.NewMemoryLimiter(),
		DisableReqLogs: true,
		UserSvc:        ta.userSvc,
		ClassSvc:       ta.classSvc,
		StudentSvc:     ta.studentSvc,
		VideoSvc:       ta.videoSvc,
		ReportSvc:      ta.reportSvc,
		RadarSvc:       ta.radarSvc,
		AISvc:          ta.aiSvc,
	})
	return ta
}

// fakeGemini answers like the Generative Language API. Only goodKey is accepted.
// A prompt containing interruptPrompt breaks the stream after the first chunk.
func fakeGemini(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-goog-api-key") != goodKey {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
		return
	}

	chunk := func(text string) string {
		b, _ := json.Marshal(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{"content": map[string]interface{}{"parts": []interface{}{map[string]string{"text": text}}}},
			},
		})
		return string(b)
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/models"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"models":[]}`)
	case strings.HasSuffix(r.URL.Path, ":streamGenerateContent"):
		w.Header().Set("Content-Type", "text/event-stream")
		if b, _ := io.ReadAll(r.Body); bytes.Contains(b, []byte(interruptPrompt)) {
			_, _ = fmt.Fprintf(w, "data: %s\r\n\r\n", chunk("Hello"))
			_, _ = io.WriteString(w, "data: {\"candidates\":[\r\n\r\n")
			return
		}
		for _, text := range []string{"Hello", " teacher"} {
			_, _ = fmt.Fprintf(w, "data: %s\r\n\r\n", chunk(text))
		}
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chunk(geminiAnswer))
	default:
		http.NotFound(w, r)
	}
}

func (ta *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.app.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) createUser(t *testing.T, uname, role string) user.User {
	t.Helper()
	usr, err := ta.userSvc.Create(user.NewUser{
		Username: uname,
		Email:    uname + "@test.cd",
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return usr
}

func (ta *testApp) createClass(t *testing.T, teacher user.User, name string) class.Class {
	t.Helper()
	cls, err := ta.classSvc.Create(context.Background(), class.NewClass{TeacherID: teacher.ID, Name: name})
	require.NoError(t, err)
	return cls
}

func (ta *testApp) createStudent(t *testing.T, cls class.Class, name string) student.Student {
	t.Helper()
	std, err := ta.studentSvc.Create(context.Background(), student.NewStudent{ClassID: cls.ID, Name: name})
	require.NoError(t, err)
	return std
}

func videoOf(studentID string) video.NewVideo {
	return video.NewVideo{
		StudentID:   studentID,
		Title:       "Show and tell",
		Filename:    "show.mp4",
		ContentType: "video/mp4",
		Body:        strings.NewReader("mp4"),
	}
}

func (ta *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(usr, ta.conf), ta.conf.SecretKey)
	require.NoError(t, err)
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (ta *testApp) runHTTPTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			rec := ta.serve(req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
