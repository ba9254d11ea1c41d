// Package gdrive archives artifacts in a Google Drive folder through
// the Drive v3 REST API.
//
// The adapter speaks plain HTTP with a caller-supplied token source
// instead of pulling in the full Google API client: the orchestrator
// needs exactly three calls (list, multipart upload, delete) against a
// single folder, all under the drive.file scope.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	musicai "github.com/musicyyai/MusicAI-Generator-by-Yajurva"
	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/platform"
)

const (
	apiBase    = "https://www.googleapis.com/drive/v3"
	uploadBase = "https://www.googleapis.com/upload/drive/v3"

	listPageSize = 1000
)

// TokenSource yields a valid OAuth2 access token for the drive.file
// scope. Implementations handle refresh; the client only attaches the
// bearer header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a fixed token. Useful in tests and
// for short-lived tooling.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) { return string(t), nil }

// Client talks to the Drive v3 API.
type Client struct {
	tokens  TokenSource
	http    *http.Client
	baseURL string // overridable for tests
	upURL   string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points both the API and upload endpoints at the given
// base. Used by tests against a local server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base; c.upURL = base }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Drive client using the given token source.
func New(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		tokens:  tokens,
		http:    &http.Client{Timeout: 5 * time.Minute},
		baseURL: apiBase,
		upURL:   uploadBase,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ platform.ObjectStore = (*Client)(nil)

type fileResource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedTime string `json:"createdTime"`
}

type fileList struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// List returns every non-trashed file in the given folder. Files whose
// createdTime cannot be parsed come back with a zero CreatedAt.
func (c *Client) List(ctx context.Context, folder string) ([]platform.Object, error) {
	var objects []platform.Object
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folder))
		q.Set("fields", "nextPageToken, files(id, name, createdTime)")
		q.Set("pageSize", fmt.Sprint(listPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page fileList
		if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/files?"+q.Encode(), nil, "", &page); err != nil {
			return nil, musicai.NewOpError("gdrive.list", musicai.KindUpload, err)
		}

		for _, f := range page.Files {
			obj := platform.Object{ID: f.ID, Name: f.Name}
			if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
				obj.CreatedAt = t
			} else {
				c.logger.Warn("gdrive: unparsable createdTime",
					slog.String("id", f.ID),
					slog.String("created_time", f.CreatedTime))
			}
			objects = append(objects, obj)
		}

		if page.NextPageToken == "" {
			return objects, nil
		}
		pageToken = page.NextPageToken
	}
}

// Upload stores a local file in the given folder via a multipart
// related upload and returns the new file's ID.
func (c *Client) Upload(ctx context.Context, localPath, folder, name string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}
	defer src.Close()

	if name == "" {
		name = filepath.Base(localPath)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaPart, err := mw.CreatePart(map[string][]string{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}
	meta := map[string]any{"name": name, "parents": []string{folder}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}

	filePart, err := mw.CreatePart(map[string][]string{
		"Content-Type": {"application/octet-stream"},
	})
	if err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}
	if _, err := io.Copy(filePart, src); err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}

	u := c.upURL + "/files?uploadType=multipart&fields=id"
	contentType := "multipart/related; boundary=" + mw.Boundary()

	var created fileResource
	if err := c.doJSON(ctx, http.MethodPost, u, &body, contentType, &created); err != nil {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload, err)
	}
	if created.ID == "" {
		return "", musicai.NewOpError("gdrive.upload", musicai.KindUpload,
			fmt.Errorf("upload response has no file id"))
	}

	c.logger.Info("gdrive: uploaded file",
		slog.String("name", name),
		slog.String("id", created.ID))
	return created.ID, nil
}

// Delete removes one file by ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.baseURL+"/files/"+url.PathEscape(id), nil, "", nil); err != nil {
		return musicai.NewOpError("gdrive.delete", musicai.KindUpload, err)
	}
	return nil
}

// doJSON performs one authenticated request and decodes a JSON response
// into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, u string, body io.Reader, contentType string, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("drive api %s %s: status %d: %s", method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
