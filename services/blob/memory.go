package blobsvc

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
)

const memoryURLPrefix = "memory://blob/"

type memoryObject struct {
	core.BlobObject
	content []byte
}

// MemoryStore keeps blobs in memory, for DEV and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject // by URL
}

var _ core.BlobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(ctx context.Context, pathname string, body io.Reader, contentType string) (core.BlobObject, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return core.BlobObject{}, errors.Wrap(err, "reading blob")
	}
	pathname = withRandomSuffix(strings.TrimPrefix(pathname, "/"))
	obj := core.BlobObject{
		URL:         memoryURLPrefix + pathname,
		Pathname:    pathname,
		ContentType: contentType,
		Size:        int64(len(content)),
		UploadedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[obj.URL] = memoryObject{BlobObject: obj, content: content}
	s.mu.Unlock()
	return obj, nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]core.BlobObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objs := make([]core.BlobObject, 0)
	for _, o := range s.objects {
		if strings.HasPrefix(o.Pathname, prefix) {
			objs = append(objs, o.BlobObject)
		}
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Pathname < objs[j].Pathname })
	return objs, nil
}

func (s *MemoryStore) Delete(ctx context.Context, urls ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		delete(s.objects, u)
	}
	return nil
}

// Open returns the content stored at url.
func (s *MemoryStore) Open(url string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[url]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(o.content), true
}
