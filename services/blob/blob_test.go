package blobsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ing-la/future-navigator/core"
)

func TestWithRandomSuffix(t *testing.T) {
	re := regexp.MustCompile(`^videos/std-1/clip-[0-9a-f]{8}\.mp4$`)
	got := withRandomSuffix("videos/std-1/clip.mp4")
	assert.Regexp(t, re, got)
	assert.NotEqual(t, got, withRandomSuffix("videos/std-1/clip.mp4"))
	assert.Regexp(t, `^notes-[0-9a-f]{8}$`, withRandomSuffix("notes"))
}

func TestNew(t *testing.T) {
	store, err := New(&core.Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(&core.Config{Blob: core.BlobConfig{Driver: core.BlobDriverVercel, BaseURL: "https://blob.test.cd"}})
	require.NoError(t, err)
	assert.IsType(t, &VercelStore{}, store)

	_, err = New(&core.Config{Blob: core.BlobConfig{Driver: "s3"}})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a, err := s.Put(ctx, "/videos/a/one.mp4", strings.NewReader("one"), "video/mp4")
	require.NoError(t, err)
	b, err := s.Put(ctx, "videos/b/two.mp4", strings.NewReader("two!"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a.URL, "memory://blob/videos/a/one-"))
	assert.Equal(t, int64(4), b.Size)

	objs, err := s.List(ctx, "videos/a/")
	require.NoError(t, err)
	assert.Equal(t, []core.BlobObject{a}, objs)

	require.NoError(t, s.Delete(ctx, a.URL, "memory://blob/unknown"))
	_, ok := s.Open(a.URL)
	assert.False(t, ok)

	r, ok := s.Open(b.URL)
	require.True(t, ok)
	content, _ := io.ReadAll(r)
	assert.Equal(t, "two!", string(content))
}

func TestVercelStore(t *testing.T) {
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":"forbidden","message":"Access denied"}}`)
			return
		}
		assert.Equal(t, "7", r.Header.Get("x-api-version"))

		switch {
		case r.Method == http.MethodPut:
			assert.Equal(t, "/videos/std%201/clip.mp4", r.URL.EscapedPath())
			assert.Equal(t, "1", r.Header.Get("x-add-random-suffix"))
			assert.Equal(t, "video/mp4", r.Header.Get("x-content-type"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "mp4", string(body))
			_, _ = io.WriteString(w, `{"url":"https://x.public.blob.vercel-storage.com/videos/std%201/clip-abc.mp4","pathname":"videos/std 1/clip-abc.mp4","contentType":"video/mp4"}`)
		case r.Method == http.MethodGet:
			assert.Equal(t, "videos/", r.URL.Query().Get("prefix"))
			if r.URL.Query().Get("cursor") == "" {
				_, _ = io.WriteString(w, `{"blobs":[{"url":"u1","pathname":"videos/1","size":1}],"cursor":"c2","hasMore":true}`)
				return
			}
			assert.Equal(t, "c2", r.URL.Query().Get("cursor"))
			_, _ = io.WriteString(w, `{"blobs":[{"url":"u2","pathname":"videos/2","size":2}],"hasMore":false}`)
		case r.Method == http.MethodPost && r.URL.Path == "/delete":
			var payload struct {
				URLs []string `json:"urls"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			deleted = payload.URLs
			_, _ = io.WriteString(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		s := NewVercelStore(srv.URL, "")
		_, err := s.Put(ctx, "a.mp4", strings.NewReader("mp4"), "video/mp4")
		assert.Equal(t, errNoToken, err)
		assert.NoError(t, s.Delete(ctx))
	})

	t.Run("api error", func(t *testing.T) {
		s := NewVercelStore(srv.URL, "wrong")
		_, err := s.List(ctx, "")
		assert.EqualError(t, err, "blob api error (403): Access denied")
	})

	s := NewVercelStore(srv.URL+"/", "tok")

	t.Run("put", func(t *testing.T) {
		obj, err := s.Put(ctx, "/videos/std 1/clip.mp4", strings.NewReader("mp4"), "video/mp4")
		require.NoError(t, err)
		assert.Equal(t, "videos/std 1/clip-abc.mp4", obj.Pathname)
		assert.Equal(t, "video/mp4", obj.ContentType)
		assert.False(t, obj.UploadedAt.IsZero())
	})

	t.Run("list follows the cursor", func(t *testing.T) {
		objs, err := s.List(ctx, "videos/")
		require.NoError(t, err)
		require.Len(t, objs, 2)
		assert.Equal(t, "u1", objs[0].URL)
		assert.Equal(t, int64(2), objs[1].Size)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "u1", "u2"))
		assert.Equal(t, []string{"u1", "u2"}, deleted)
	})
}
