package blobsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/Ing-la/future-navigator/core"
)

const vercelAPIVersion = "7"

var errNoToken = errors.New("blob read/write token is not configured")

type (
	vercelBlob struct {
		URL         string    `json:"url"`
		Pathname    string    `json:"pathname"`
		ContentType string    `json:"contentType"`
		Size        int64     `json:"size"`
		UploadedAt  time.Time `json:"uploadedAt"`
	}

	vercelList struct {
		Blobs   []vercelBlob `json:"blobs"`
		Cursor  string       `json:"cursor"`
		HasMore bool         `json:"hasMore"`
	}

	vercelError struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (b vercelBlob) object() core.BlobObject {
	return core.BlobObject{
		URL:         b.URL,
		Pathname:    b.Pathname,
		ContentType: b.ContentType,
		Size:        b.Size,
		UploadedAt:  b.UploadedAt,
	}
}

// VercelStore uses the Vercel Blob REST API. Uploads are public.
type VercelStore struct {
	baseURL string
	token   string
	http    *http.Client
	rest    *rest.Client
}

var _ core.BlobStore = (*VercelStore)(nil)

func NewVercelStore(baseURL, token string) *VercelStore {
	return &VercelStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}},
	}
}

func (s *VercelStore) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.token,
		"x-api-version": vercelAPIVersion,
	}
}

func vercelErr(status int, body string) error {
	var ve vercelError
	msg := http.StatusText(status)
	if err := json.Unmarshal([]byte(body), &ve); err == nil && ve.Error.Message != "" {
		msg = ve.Error.Message
	}
	return errors.Errorf("blob api error (%d): %s", status, msg)
}

// send runs a buffered call through the rest client, bound to ctx.
func (s *VercelStore) send(ctx context.Context, r rest.Request) (*rest.Response, error) {
	req, err := rest.BuildRequestObject(r)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := s.rest.MakeRequest(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(res)
}

// Put streams body with net/http since rest.Request only takes a byte slice.
func (s *VercelStore) Put(ctx context.Context, pathname string, body io.Reader, contentType string) (core.BlobObject, error) {
	if s.token == "" {
		return core.BlobObject{}, errNoToken
	}

	u := s.baseURL + "/" + (&url.URL{Path: strings.TrimPrefix(pathname, "/")}).EscapedPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, body)
	if err != nil {
		return core.BlobObject{}, errors.Wrap(err, "creating request")
	}
	for k, v := range s.headers() {
		req.Header.Set(k, v)
	}
	req.Header.Set("x-add-random-suffix", "1")
	if contentType != "" {
		req.Header.Set("x-content-type", contentType)
	}

	res, err := s.http.Do(req)
	if err != nil {
		return core.BlobObject{}, errors.Wrap(err, "uploading blob")
	}
	defer func() { _ = res.Body.Close() }()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return core.BlobObject{}, errors.Wrap(err, "reading response")
	}
	if res.StatusCode/100 != 2 {
		return core.BlobObject{}, vercelErr(res.StatusCode, string(b))
	}

	var vb vercelBlob
	if err = json.Unmarshal(b, &vb); err != nil {
		return core.BlobObject{}, errors.Wrap(err, "decoding response")
	}
	obj := vb.object()
	if obj.ContentType == "" {
		obj.ContentType = contentType
	}
	if obj.UploadedAt.IsZero() {
		obj.UploadedAt = time.Now().UTC()
	}
	return obj, nil
}

// List follows the cursor until every blob under prefix is listed.
func (s *VercelStore) List(ctx context.Context, prefix string) ([]core.BlobObject, error) {
	if s.token == "" {
		return nil, errNoToken
	}

	objs := make([]core.BlobObject, 0)
	var cursor string
	for {
		params := map[string]string{"limit": "1000"}
		if prefix != "" {
			params["prefix"] = prefix
		}
		if cursor != "" {
			params["cursor"] = cursor
		}
		res, err := s.send(ctx, rest.Request{
			Method:      rest.Get,
			BaseURL:     s.baseURL,
			Headers:     s.headers(),
			QueryParams: params,
		})
		if err != nil {
			return nil, errors.Wrap(err, "listing blobs")
		}
		if res.StatusCode/100 != 2 {
			return nil, vercelErr(res.StatusCode, res.Body)
		}

		var page vercelList
		if err = json.Unmarshal([]byte(res.Body), &page); err != nil {
			return nil, errors.Wrap(err, "decoding blob list")
		}
		for _, b := range page.Blobs {
			objs = append(objs, b.object())
		}
		if !page.HasMore || page.Cursor == "" {
			return objs, nil
		}
		cursor = page.Cursor
	}
}

func (s *VercelStore) Delete(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	if s.token == "" {
		return errNoToken
	}

	body, err := json.Marshal(map[string][]string{"urls": urls})
	if err != nil {
		return errors.Wrap(err, "marshalling urls")
	}
	headers := s.headers()
	headers["Content-Type"] = "application/json"
	res, err := s.send(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: s.baseURL + "/delete",
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return errors.Wrap(err, "deleting blobs")
	}
	if res.StatusCode/100 != 2 {
		return vercelErr(res.StatusCode, res.Body)
	}
	return nil
}

func (s *VercelStore) String() string {
	return fmt.Sprintf("vercel blob (%s)", s.baseURL)
}
