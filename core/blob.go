package core

import (
	"context"
	"io"
	"time"
)

type (
	// BlobObject describes a stored file.
	BlobObject struct {
		URL         string    `json:"url"`
		Pathname    string    `json:"pathname"`
		ContentType string    `json:"content_type,omitempty"`
		Size        int64     `json:"size"`
		UploadedAt  time.Time `json:"uploaded_at"`
	}

	// BlobStore is any public file storage. Put adds a random suffix to pathname.
	BlobStore interface {
		Put(ctx context.Context, pathname string, body io.Reader, contentType string) (BlobObject, error)
		List(ctx context.Context, prefix string) ([]BlobObject, error)
		Delete(ctx context.Context, urls ...string) error
	}
)
