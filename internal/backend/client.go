// Package backend is a typed client for the content backend's dashboard,
// video-generation and content-display APIs.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/livecommerce/console/internal/logging"
)

const (
	dashboardPrefix = "/api/v1/dashboard"
	videoPrefix     = "/api/v1/video-generation"
	displayPrefix   = "/api/v1/content-display"

	// StaticAudioPrefix is where the backend serves generated MP3 files.
	StaticAudioPrefix = "/static/audio/"
)

// ErrNotFound is matched by APIErrors with a 404 status.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend %s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to one backend base URL. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a client for baseURL (scheme://host[:port], no trailing slash needed).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.With(logging.ComponentBackend),
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AudioURL returns the absolute URL of a generated MP3 file.
func (c *Client) AudioURL(filename string) string {
	return c.baseURL + StaticAudioPrefix + url.PathEscape(filename)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Detail: errorDetail(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorDetail extracts FastAPI's {"detail": ...} or {"error": ...} message.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			return s
		}
		return string(body.Detail)
	}
	return body.Error
}

// decodeList decodes raw as a JSON array of T. Anything that is not an array
// (missing, null, an object, an error payload) degrades to an empty list.
func decodeList[T any](log *slog.Logger, field string, raw json.RawMessage) []T {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			log.Warn("Expected a list in backend response, using empty list", "field", field)
		}
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		log.Warn("Malformed list in backend response, using empty list", "field", field, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func idPath(prefix string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", prefix, id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
