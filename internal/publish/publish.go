// Package publish hands finished artifacts to an external host and returns a
// shareable link.
//
// The build engine only sees the Publisher interface. The CLI constructs and
// authenticates a concrete publisher (HTTPPublisher) and injects it; tests use
// FakePublisher.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/danieljhkim/packsmith/internal/fsops"
	"github.com/danieljhkim/packsmith/internal/packerr"
)

// Publisher uploads an artifact and returns a link that serves it.
type Publisher interface {
	// Publish uploads the file at path under name. digest is the artifact's
	// hex SHA-256, sent along for server-side verification when non-empty.
	Publish(ctx context.Context, path, name, digest string) (string, error)
}

// HTTPConfig configures an HTTPPublisher.
type HTTPConfig struct {
	// Endpoint is the base URL; artifacts are PUT to <Endpoint>/<name>
	Endpoint string

	// Token is sent as a bearer token
	Token string

	// MaxRetries bounds retries of transient failures
	MaxRetries uint64

	// Timeout bounds a single upload attempt
	Timeout time.Duration
}

// HTTPPublisher uploads artifacts with HTTP PUT.
type HTTPPublisher struct {
	fs     fsops.FS
	cfg    HTTPConfig
	client *http.Client
	// newBackOff is replaceable so tests do not sleep
	newBackOff func() backoff.BackOff
}

// NewHTTPPublisher creates an HTTPPublisher reading artifacts through fs.
func NewHTTPPublisher(fs fsops.FS, cfg HTTPConfig) (*HTTPPublisher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: no publish endpoint configured", packerr.ErrPublish)
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint %q: %v", packerr.ErrPublish, cfg.Endpoint, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &HTTPPublisher{
		fs:     fs,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}, nil
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Publish uploads the artifact, retrying 5xx, 429 and network failures.
func (p *HTTPPublisher) Publish(ctx context.Context, path, name, digest string) (string, error) {
	target := strings.TrimRight(p.cfg.Endpoint, "/") + "/" + url.PathEscape(name)
	requestID := uuid.NewString()

	var link string
	operation := func() error {
		var err error
		link, err = p.upload(ctx, target, path, requestID, digest)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: %s: %v", packerr.ErrPublish, name, err)
	}
	return link, nil
}

func (p *HTTPPublisher) upload(ctx context.Context, target, path, requestID, digest string) (string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to open artifact: %w", err))
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := p.fs.Stat(path)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to stat artifact: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/zip")
	req.Header.Set("X-Request-ID", requestID)
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}
	if digest != "" {
		req.Header.Set("X-Content-SHA256", digest)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("server returned %s", resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", backoff.Permanent(fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var out uploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("invalid response body: %w", err))
	}
	if out.URL == "" {
		return "", backoff.Permanent(errors.New("response did not include a url"))
	}
	return out.URL, nil
}

// FakePublisher records uploads and returns predictable links.
type FakePublisher struct {
	BaseURL string
	Err     error
	Calls   []FakeCall
}

// FakeCall is one recorded Publish invocation.
type FakeCall struct {
	Path   string
	Name   string
	Digest string
}

// NewFakePublisher creates a FakePublisher serving links under baseURL.
func NewFakePublisher(baseURL string) *FakePublisher {
	return &FakePublisher{BaseURL: baseURL}
}

// Publish records the call and returns BaseURL/name, or Err when set.
func (p *FakePublisher) Publish(ctx context.Context, path, name, digest string) (string, error) {
	p.Calls = append(p.Calls, FakeCall{Path: path, Name: name, Digest: digest})
	if p.Err != nil {
		return "", fmt.Errorf("%w: %v", packerr.ErrPublish, p.Err)
	}
	return strings.TrimRight(p.BaseURL, "/") + "/" + name, nil
}
