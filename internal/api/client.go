package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the connection settings for the sentiment-analysis backend.
type Config struct {
	BaseURL string
	Timeout int // seconds
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	return nil
}

// Client is a thin typed client for the backend job and preload endpoints.
// The endpoints themselves are black boxes owned by the backend; this client
// only shapes requests and decodes responses. Thread-safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}, nil
}

// ListJobStatuses fetches the status of every job the backend currently
// reports for this client session.
func (c *Client) ListJobStatuses(ctx context.Context) (*JobStatusListResponse, error) {
	var ret JobStatusListResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/jobs/status", nil, &ret); err != nil {
		return nil, fmt.Errorf("list job statuses: %w", err)
	}
	return &ret, nil
}

// SubmitPreload asks the backend to start a comment-preload job for videoID.
func (c *Client) SubmitPreload(ctx context.Context, videoID string) (*SubmitJobResponse, error) {
	return c.submitJob(ctx, "/api/jobs/preload", videoID)
}

// SubmitAnalysis asks the backend to start a sentiment-analysis job for videoID.
func (c *Client) SubmitAnalysis(ctx context.Context, videoID string) (*SubmitJobResponse, error) {
	return c.submitJob(ctx, "/api/jobs/analyze", videoID)
}

func (c *Client) submitJob(ctx context.Context, path, videoID string) (*SubmitJobResponse, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("video id is required")
	}
	payload := map[string]string{"video_id": videoID}
	var ret SubmitJobResponse
	if err := c.makeRequest(ctx, http.MethodPost, path, payload, &ret); err != nil {
		return nil, fmt.Errorf("submit job for %s: %w", videoID, err)
	}
	if !ret.Success {
		return nil, fmt.Errorf("submit job for %s: backend refused: %s", videoID, ret.Error)
	}
	return &ret, nil
}

// CancelJob asks the backend to cancel a running job.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("job id is required")
	}
	var ret CancelJobResponse
	path := "/api/jobs/" + url.PathEscape(jobID) + "/cancel"
	if err := c.makeRequest(ctx, http.MethodPost, path, nil, &ret); err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	if !ret.Success {
		return fmt.Errorf("cancel job %s: backend refused: %s", jobID, ret.Error)
	}
	return nil
}

// ListPreloadedVideos fetches the authoritative preloaded-videos listing used
// by the preload cache reconciliation.
func (c *Client) ListPreloadedVideos(ctx context.Context) ([]PreloadedVideo, error) {
	var ret PreloadedVideosResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/videos/preloaded", nil, &ret); err != nil {
		return nil, fmt.Errorf("list preloaded videos: %w", err)
	}
	if !ret.Success {
		return nil, fmt.Errorf("list preloaded videos: backend refused")
	}
	return ret.PreloadedVideos, nil
}

// makeRequest makes a raw HTTP request against the backend and decodes the
// JSON response into out.
func (c *Client) makeRequest(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
