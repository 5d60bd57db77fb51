// Package api is the HTTP client for the remote content API. It is a thin
// collaborator wrapper: 2xx responses are parsed as the collection payload,
// anything else is a failed fetch for that unit only.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/beaconchurch/beacon/internal/client/models"
	"github.com/beaconchurch/beacon/internal/common"
	"github.com/beaconchurch/beacon/internal/logging"
)

// Client is the surface consumed by the syncer, the analytics queue and the
// connectivity monitor.
type Client interface {
	// Ping probes server reachability cheaply.
	Ping(ctx context.Context) error

	Devotionals(ctx context.Context) ([]models.Devotional, error)
	TodaysDevotional(ctx context.Context) (*models.Devotional, error)
	VideoSermons(ctx context.Context) ([]models.VideoSermon, error)
	AudioSermons(ctx context.Context) ([]models.AudioSermon, error)
	Announcements(ctx context.Context) ([]models.Announcement, error)
	FeaturedContent(ctx context.Context) (*models.FeaturedContent, error)

	SendAnalyticsBatch(ctx context.Context, events []models.PendingEvent) error
	SendSession(ctx context.Context, session models.SessionData) error
}

// HTTPClient implements Client over net/http. Idempotent GETs are retried a
// bounded number of times on transient failures; all requests flow through
// a client-side rate limiter so a sync burst cannot hammer the backend.
type HTTPClient struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	log       logging.Logger
}

func NewHTTPClient(baseURL string, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "Beacon-Client/1.0",
		limiter:   rate.NewLimiter(rate.Limit(10), 20),
		log:       log.With("component", "api"),
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.doGet(ctx, "/health", nil)
}

func (c *HTTPClient) Devotionals(ctx context.Context) ([]models.Devotional, error) {
	var out []models.Devotional
	if err := c.getJSON(ctx, "/devotionals", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) TodaysDevotional(ctx context.Context) (*models.Devotional, error) {
	var out models.Devotional
	if err := c.getJSON(ctx, "/devotionals/today", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VideoSermons(ctx context.Context) ([]models.VideoSermon, error) {
	var out []models.VideoSermon
	if err := c.getJSON(ctx, "/video-sermons", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) AudioSermons(ctx context.Context) ([]models.AudioSermon, error) {
	var out []models.AudioSermon
	if err := c.getJSON(ctx, "/audio-sermons", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Announcements(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	if err := c.getJSON(ctx, "/announcements", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FeaturedContent merges the two featured endpoints into the single payload
// cached under one key. Both fetches must succeed.
func (c *HTTPClient) FeaturedContent(ctx context.Context) (*models.FeaturedContent, error) {
	var videos []models.VideoSermon
	if err := c.getJSON(ctx, "/video-sermons/featured", &videos); err != nil {
		return nil, err
	}
	var audios []models.AudioSermon
	if err := c.getJSON(ctx, "/audio-sermons/featured", &audios); err != nil {
		return nil, err
	}
	return &models.FeaturedContent{VideoSermons: videos, AudioSermons: audios}, nil
}

func (c *HTTPClient) SendAnalyticsBatch(ctx context.Context, events []models.PendingEvent) error {
	return c.postJSON(ctx, "/analytics/batch", map[string]any{"events": events})
}

func (c *HTTPClient) SendSession(ctx context.Context, session models.SessionData) error {
	return c.postJSON(ctx, "/analytics/session", session)
}

// getJSON performs a GET with bounded exponential-backoff retries on
// transient failures (transport errors and 5xx). Client errors (4xx) are
// returned immediately.
func (c *HTTPClient) getJSON(ctx context.Context, path string, dst any) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doGet(ctx, path, dst)
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (c *HTTPClient) doGet(ctx context.Context, path string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", common.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{method: http.MethodGet, path: path, code: resp.StatusCode}
	}

	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// postJSON performs a single POST attempt. Posts carry at-least-once
// payloads (analytics batches); retrying is the queue's job, not the
// transport's.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize %s payload: %w", path, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %w", common.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{method: http.MethodPost, path: path, code: resp.StatusCode}
	}
	return nil
}

// statusError is a non-2xx response. It unwraps to common.ErrUnavailable so
// callers can treat transport and status failures uniformly.
type statusError struct {
	method string
	path   string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.method, e.path, e.code)
}

func (e *statusError) Unwrap() error { return common.ErrUnavailable }
