package storageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// Client talks to the path storage service. It serves the progress engine as its
// curriculum source, progress source, progress writer and metadata sink.
type Client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func New(cfg Config, baseLog *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing storage api base url")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("storage api base url: %w", err)
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		log:        baseLog.With("client", "StorageAPI"),
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    backoff,
	}, nil
}

type httpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *httpError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("storage api %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("storage api %d", e.StatusCode)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *Client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &httpError{StatusCode: resp.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			herr.Code, herr.Message = env.Error.Code, env.Error.Message
		}
		return nil, toAPIError(herr)
	}
	return raw, nil
}

func toAPIError(herr *httpError) error {
	var cause error = herr
	switch herr.StatusCode {
	case http.StatusNotFound:
		cause = fmt.Errorf("%w: %w", apierr.ErrNotFound, herr)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		cause = fmt.Errorf("%w: %w", apierr.ErrInvalidArgument, herr)
	}
	return apierr.New(herr.StatusCode, herr.Code, cause)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Status == http.StatusTooManyRequests || ae.Status >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil || len(raw) == 0 {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("storage api decode %s %s: %w", method, path, uErr)
			}
			return nil
		}
		if !retryable(err) || attempt >= c.maxRetries {
			return err
		}
		c.log.Warn("storage api request retrying",
			"method", method,
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

type pathsResponse struct {
	Paths []*curriculum.Path `json:"paths"`
}

type pathResponse struct {
	Path *curriculum.Path `json:"path"`
}

type progressResponse struct {
	Progress *types.PathProgress `json:"progress"`
}

func (c *Client) ListPaths(ctx context.Context) ([]*curriculum.Path, error) {
	var resp pathsResponse
	if err := c.do(ctx, http.MethodGet, "/api/paths", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Paths, nil
}

func (c *Client) GetPath(ctx context.Context, id string) (*curriculum.Path, error) {
	var resp pathResponse
	if err := c.do(ctx, http.MethodGet, "/api/paths/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Path == nil {
		return nil, fmt.Errorf("path %s: empty body: %w", id, apierr.ErrNotFound)
	}
	return resp.Path, nil
}

// CreatePath uploads a curriculum document under title.
func (c *Client) CreatePath(ctx context.Context, title string, doc *curriculum.Document) (*curriculum.Path, error) {
	req := struct {
		Title      string               `json:"title"`
		Curriculum *curriculum.Document `json:"curriculum"`
	}{Title: title, Curriculum: doc}
	var resp pathResponse
	if err := c.do(ctx, http.MethodPost, "/api/paths", req, &resp); err != nil {
		return nil, err
	}
	return resp.Path, nil
}

func (c *Client) GetProgress(ctx context.Context, pathID, slug string) (*types.PathProgress, error) {
	var resp progressResponse
	if err := c.do(ctx, http.MethodGet, progressPath(pathID, slug), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Progress, nil
}

func (c *Client) PutProgress(ctx context.Context, p *types.PathProgress) error {
	if p == nil {
		return nil
	}
	return c.do(ctx, http.MethodPut, progressPath(p.PathID, p.Slug), p, nil)
}

func (c *Client) UpdatePathMetadata(ctx context.Context, pathID string, md curriculum.Metadata) error {
	return c.do(ctx, http.MethodPatch, "/api/paths/"+url.PathEscape(pathID)+"/metadata", md, nil)
}

func progressPath(pathID, slug string) string {
	return "/api/paths/" + url.PathEscape(pathID) + "/progress/" + url.PathEscape(types.SlugSegment(slug))
}
