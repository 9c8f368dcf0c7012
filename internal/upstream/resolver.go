package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FallthroughPolicy controls which candidate failures advance the walk.
type FallthroughPolicy int

const (
	// Fallthrough404Only treats 404 as "route not found, try the next
	// candidate" and every other failure as terminal.
	Fallthrough404Only FallthroughPolicy = iota
	// FallthroughAll skips past any failure. This can mask genuine server
	// errors, so it is reserved for best-effort operations.
	FallthroughAll
)

// ErrNoEndpoint is returned when every candidate was exhausted without a success.
var ErrNoEndpoint = errors.New("upstream: no endpoint available")

// StatusError reports a terminal non-success status from a candidate.
type StatusError struct {
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned status %d", e.Path, e.Status)
}

// HTTPDoer defines the http.Client interface subset the resolver needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes one logical backend operation: an ordered list of
// candidate paths tried against the same base host.
type Request struct {
	Method     string
	Candidates []string
	Body       []byte
	Token      string
	Policy     FallthroughPolicy
}

// Result is the first successful response, with the winning candidate path
// kept for diagnostics.
type Result struct {
	Path   string
	Status int
	Body   []byte
}

// Resolver locates a working concrete route for a logical operation despite
// an unstable upstream naming scheme. Candidates are tried strictly one at a
// time; the first 2xx wins and no further candidates are attempted.
type Resolver struct {
	baseURL string
	client  HTTPDoer
	logger  *zap.Logger
}

// NewResolver builds a resolver against the given base URL.
func NewResolver(baseURL string, client HTTPDoer, logger *zap.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Resolve walks req.Candidates in order and returns the first success.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if len(req.Candidates) == 0 {
		return nil, errors.New("upstream: no candidates given")
	}

	for _, path := range req.Candidates {
		status, body, err := r.attempt(ctx, req, path)
		if err != nil {
			if req.Policy == FallthroughAll {
				r.logger.Warn("candidate request failed, trying next",
					zap.String("path", path), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("upstream: %s: %w", path, err)
		}

		switch {
		case status >= 200 && status < 300:
			r.logger.Debug("candidate resolved",
				zap.String("path", path), zap.Int("status", status))
			return &Result{Path: path, Status: status, Body: body}, nil
		case status == http.StatusNotFound:
			r.logger.Debug("candidate not found, trying next", zap.String("path", path))
			continue
		default:
			if req.Policy == FallthroughAll {
				r.logger.Warn("candidate returned non-success, trying next",
					zap.String("path", path), zap.Int("status", status))
				continue
			}
			return nil, &StatusError{Path: path, Status: status, Body: body}
		}
	}

	return nil, ErrNoEndpoint
}

func (r *Resolver) attempt(ctx context.Context, req Request, path string) (int, []byte, error) {
	var reader io.Reader
	if len(req.Body) > 0 {
		reader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, r.buildURL(path), reader)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Token "+req.Token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (r *Resolver) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.baseURL + path
}
