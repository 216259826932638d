// Package drive is a read-only Google Drive v3 client authenticated by API key.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/driveshelf/internal/domain"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"

	defaultTimeout = 60 * time.Second
	pageSize       = 1000
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond

	listFields = "nextPageToken,files(id,name,mimeType,parents,size,createdTime,modifiedTime,thumbnailLink,videoMediaMetadata)"
	findFields = "files(id,name,mimeType,parents)"
)

// Client implements domain.RemoteStore and domain.MediaStreamer over the Drive REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// Media bodies can stream for hours, so they get a client without a timeout
	streamClient *http.Client
	retryDelay   time.Duration
	logger       *slog.Logger
}

// NewClient creates a new Drive API client
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		streamClient: &http.Client{},
		retryDelay:   baseRetryDelay,
		logger:       logger,
	}
}

// doRequest performs a keyed GET against the Drive API.
// Includes retry logic with exponential backoff for 5xx and 429 responses
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "path", path)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("drive request", "path", path, "q", query.Get("q"), "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("drive request failed", "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrRemoteUnavailable, err)
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, apiMessage(body))
			c.logger.Warn("drive server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", maxRetries,
				"path", path,
			)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, apiMessage(body))
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Error("drive request error", "status", resp.StatusCode, "message", apiMessage(body))
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, apiMessage(body))
		}

		return body, nil
	}

	c.logger.Error("drive request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

// ListFolder returns every direct child of a folder, following page tokens
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]domain.RemoteEntry, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID)))
	query.Set("fields", listFields)
	query.Set("pageSize", fmt.Sprint(pageSize))

	var entries []domain.RemoteEntry
	pageToken := ""
	for {
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		body, err := c.doRequest(ctx, "/files", query)
		if err != nil {
			return nil, err
		}

		var page FileList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		entries = append(entries, MapEntries(page.Files)...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug("listed folder", "folderID", folderID, "count", len(entries))
	return entries, nil
}

// FindFolders returns folders whose name matches exactly
func (c *Client) FindFolders(ctx context.Context, name string) ([]domain.RemoteEntry, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), FolderMimeType))
	query.Set("fields", findFields)

	body, err := c.doRequest(ctx, "/files", query)
	if err != nil {
		return nil, err
	}

	var resp FileList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapEntries(resp.Files), nil
}

// OpenMedia streams file content, forwarding the Range header. Failures are
// not retried since the caller is usually a player waiting on the first byte.
func (c *Client) OpenMedia(ctx context.Context, fileID, rangeHeader string) (*domain.MediaStream, error) {
	if rangeHeader == "" {
		rangeHeader = "bytes=0-"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MediaURL(fileID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", rangeHeader)

	c.logger.Debug("opening media", "fileID", fileID, "range", rangeHeader)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		c.logger.Error("media request failed", "fileID", fileID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, fileID)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.logger.Error("media request error", "fileID", fileID, "status", resp.StatusCode, "message", apiMessage(body))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, resp.StatusCode, apiMessage(body))
	}

	return &domain.MediaStream{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.Header.Get("Content-Length"),
		ContentRange:  resp.Header.Get("Content-Range"),
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
	}, nil
}

// MediaURL returns the direct download URL for a file, API key included.
// It must not leave the local machine.
func (c *Client) MediaURL(fileID string) string {
	query := url.Values{}
	query.Set("alt", "media")
	query.Set("key", c.apiKey)
	return fmt.Sprintf("%s/files/%s?%s", c.baseURL, url.PathEscape(fileID), query.Encode())
}

// escapeQuery escapes a literal for use inside a single-quoted Drive query string
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// apiMessage extracts the error message from a Drive error body
func apiMessage(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
