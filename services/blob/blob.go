package blobsvc

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
)

var errUnknownDriver = errors.New("unknown blob driver")

// New returns the BlobStore selected by conf.Blob.Driver.
func New(conf *core.Config) (core.BlobStore, error) {
	switch conf.Blob.Driver {
	case core.BlobDriverVercel:
		return NewVercelStore(conf.Blob.BaseURL, conf.Blob.Token), nil
	case core.BlobDriverSFTP:
		return NewSFTPStore(conf.Blob.SFTP), nil
	case core.BlobDriverMemory, "":
		return NewMemoryStore(), nil
	}
	return nil, errors.Wrap(errUnknownDriver, conf.Blob.Driver)
}

// withRandomSuffix turns "a/b/clip.mp4" into "a/b/clip-1f3a9c0d.mp4".
func withRandomSuffix(pathname string) string {
	ext := path.Ext(pathname)
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return strings.TrimSuffix(pathname, ext) + "-" + suffix + ext
}
