package tests

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
)

func mp4(content string) *upload {
	return &upload{field: "file", filename: "lesson.mp4", contentType: "video/mp4", content: []byte(content)}
}

func Test_videoApi_upload(t *testing.T) {
	ta := setup(t)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)
	other := ta.createUser(t, "other", user.RoleTeacher)
	parent := ta.createUser(t, "parent", user.RoleParent)
	cls := ta.createClass(t, teacher, "Sunflowers")
	mia := ta.createStudent(t, cls, "Mia")

	teacherToken := ta.getToken(t, teacher)
	fields := map[string]string{"studentId": mia.ID, "title": "Show and tell"}

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		file     *upload
		wantCode int
		wantData []byte
	}{
		{
			name:     "parents cannot",
			token:    ta.getToken(t, parent),
			fields:   fields,
			file:     mp4("data"),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing fields",
			token:    teacherToken,
			file:     mp4("data"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"studentId": errRequired, "title": errRequired}),
		},
		{
			name:     "missing file",
			token:    teacherToken,
			fields:   fields,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "a video file is required"}),
		},
		{
			name:     "not a video",
			token:    teacherToken,
			fields:   fields,
			file:     &upload{field: "file", filename: "notes.txt", contentType: "text/plain", content: []byte("hi")},
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "only video files are allowed"}),
		},
		{
			name:     "unknown student",
			token:    teacherToken,
			fields:   map[string]string{"studentId": "unknown", "title": "Show and tell"},
			file:     mp4("data"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"studentId": "student not found"}),
		},
		{
			name:     "student of another class",
			token:    ta.getToken(t, other),
			fields:   fields,
			file:     mp4("data"),
			wantCode: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.serve(newMultipartRequest(t, "/api/videos", tt.token, tt.fields, tt.file))
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	t.Run("upload", func(t *testing.T) {
		rec := ta.serve(newMultipartRequest(t, "/api/videos", teacherToken, fields, mp4("fake mp4 bytes")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var vid video.Video
		decode(t, rec, &vid)
		assert.NotEmpty(t, vid.ID)
		assert.Equal(t, mia.ID, vid.StudentID)
		assert.Equal(t, "Show and tell", vid.Title)
		assert.Equal(t, video.StatusPending, vid.Status)
		assert.True(t, strings.HasPrefix(vid.BlobURL, "memory://blob/videos/"+mia.ID+"/lesson"), vid.BlobURL)

		r, ok := ta.blobs.Open(vid.BlobURL)
		require.True(t, ok)
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "fake mp4 bytes", string(content))
	})
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func Test_videoApi_uploadTooLarge(t *testing.T) {
	ta := setup(t)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)
	mia := ta.createStudent(t, ta.createClass(t, teacher, "Sunflowers"), "Mia")
	token := ta.getToken(t, teacher)
	fields := map[string]string{"studentId": mia.ID, "title": "Show and tell"}
	want := marchallObj(t, map[string]string{"file": fmt.Sprintf("the file cannot exceed %dMB", video.MaxUploadSize>>20)})

	t.Run("declared length", func(t *testing.T) {
		req := newMultipartRequest(t, "/api/videos", token, fields, mp4("data"))
		req.ContentLength = video.MaxUploadSize + 2<<20
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: want}, ta.serve(req))
	})

	t.Run("streamed body", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, w.WriteField(k, v))
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="lesson.mp4"`)
		h.Set("Content-Type", "video/mp4")
		_, err := w.CreatePart(h)
		require.NoError(t, err)
		head := append([]byte(nil), buf.Bytes()...)
		buf.Reset()
		require.NoError(t, w.Close())

		body := io.MultiReader(bytes.NewReader(head), io.LimitReader(zeros{}, video.MaxUploadSize+2<<20), &buf)
		req := newAuthRequest(http.MethodPost, "/api/videos", token)
		req.Body = io.NopCloser(body)
		req.ContentLength = -1
		req.Header.Set("Content-Type", w.FormDataContentType())
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: want}, ta.serve(req))
	})

	vids, err := ta.videoSvc.QueryByStudent(context.Background(), mia.ID)
	require.NoError(t, err)
	assert.Empty(t, vids)
}

func Test_videoApi_manage(t *testing.T) {
	ta := setup(t)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)
	other := ta.createUser(t, "other", user.RoleTeacher)
	parent := ta.createUser(t, "parent", user.RoleParent)
	cls := ta.createClass(t, teacher, "Sunflowers")
	mia := ta.createStudent(t, cls, "Mia")

	vid, err := ta.videoSvc.Upload(context.Background(), videoOf(mia.ID))
	require.NoError(t, err)

	teacherToken := ta.getToken(t, teacher)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "list needs studentId",
			method:   http.MethodGet,
			path:     "/api/videos",
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"studentId": errRequired}),
		},
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/api/videos?studentId=" + mia.ID,
			token:    ta.getToken(t, parent),
			wantCode: http.StatusOK,
			wantData: marchallList(t, vid),
		},
		{
			name:     "list from another class",
			method:   http.MethodGet,
			path:     "/api/videos?studentId=" + mia.ID,
			token:    ta.getToken(t, other),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid status",
			method:   http.MethodPut,
			path:     "/api/videos/" + vid.ID + "/status",
			body:     []byte(`{"status":"lost"}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid status"}),
		},
		{
			name:     "unknown video",
			method:   http.MethodPut,
			path:     "/api/videos/unknown/status",
			body:     []byte(`{"status":"completed"}`),
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: video.ErrNotFound.Error()}),
		},
		{
			name:     "status of another class",
			method:   http.MethodPut,
			path:     "/api/videos/" + vid.ID + "/status",
			body:     []byte(`{"status":"completed"}`),
			token:    ta.getToken(t, other),
			wantCode: http.StatusForbidden,
		},
	})

	t.Run("update status", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPut, "/api/videos/"+vid.ID+"/status", teacherToken, []byte(`{"status":"Completed","durationSeconds":95}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got video.Video
		decode(t, rec, &got)
		assert.Equal(t, video.StatusCompleted, got.Status)
		require.NotNil(t, got.DurationSeconds)
		assert.Equal(t, 95, *got.DurationSeconds)
		assert.True(t, got.UpdatedAt.After(vid.UpdatedAt) || got.UpdatedAt.Equal(vid.UpdatedAt))
	})

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "parents cannot delete",
			method:   http.MethodDelete,
			path:     "/api/videos/" + vid.ID,
			token:    ta.getToken(t, parent),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/videos/" + vid.ID,
			token:    teacherToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete again",
			method:   http.MethodDelete,
			path:     "/api/videos/" + vid.ID,
			token:    teacherToken,
			wantCode: http.StatusNotFound,
		},
	})

	_, ok := ta.blobs.Open(vid.BlobURL)
	assert.False(t, ok, "the blob is deleted with the video")
}

func Test_videoApi_analyze(t *testing.T) {
	ta := setup(t)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)
	parent := ta.createUser(t, "parent", user.RoleParent)
	cls := ta.createClass(t, teacher, "Sunflowers")
	mia := ta.createStudent(t, cls, "Mia")

	vid, err := ta.videoSvc.Upload(context.Background(), videoOf(mia.ID))
	require.NoError(t, err)

	teacherToken := ta.getToken(t, teacher)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "parents cannot",
			method:   http.MethodPost,
			path:     "/api/analyze",
			body:     []byte(`{"videoUrl":"` + vid.BlobURL + `"}`),
			token:    ta.getToken(t, parent),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no media",
			method:   http.MethodPost,
			path:     "/api/analyze",
			body:     []byte(`{"sessionId":"s-1"}`),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "videoUrl or audioUrl is required"}),
		},
		{
			name:     "session id is the task id",
			method:   http.MethodPost,
			path:     "/api/analyze",
			body:     []byte(`{"videoUrl":"` + vid.BlobURL + `","sessionId":"s-1"}`),
			token:    teacherToken,
			wantCode: http.StatusAccepted,
			wantData: marchallObj(t, video.AnalyzeTask{TaskID: "s-1", Status: video.StatusProcessing}),
		},
	})

	got, err := ta.videoSvc.GetByID(context.Background(), vid.ID)
	require.NoError(t, err)
	assert.Equal(t, video.StatusProcessing, got.Status)

	t.Run("external audio", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPost, "/api/analyze", teacherToken, []byte(`{"audioUrl":"https://cdn.test.cd/a.mp3"}`)))
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var task video.AnalyzeTask
		decode(t, rec, &task)
		assert.NotEmpty(t, task.TaskID)
		assert.Equal(t, video.StatusProcessing, task.Status)
	})
}
