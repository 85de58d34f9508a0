// Package archival wraps the Wayback Machine save endpoint.
package archival

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// TransientError distinguishes capture failures the worker should retry
// from anything else. Spec-wise there is no permanent failure category at
// this layer — network errors, timeouts, 4xx/5xx responses and a missing
// or unparsable Location header are all transient; only the job's retry
// budget decides when to stop trying.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("archival: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// archiveTimestampPattern extracts the 14-digit capture timestamp the save
// endpoint embeds in its Location header, e.g. "/web/20240102030405/...".
var archiveTimestampPattern = regexp.MustCompile(`/web/(\d{14})`)

const archiveTimestampLayout = "20060102150405"

// Client is a single shared HTTP client for archival capture calls.
// Grounded on the teacher's scheduler.Executor: one *http.Client with a
// bounded transport reused across calls, per-call timeout via context.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient builds a Client that issues save requests against baseURL
// (e.g. "https://web.archive.org/save/").
func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			// The save endpoint answers with a 302 to the archived copy; the
			// timestamp we need is in that response's own Location header, so
			// redirects must not be followed.
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Capture requests that targetURL be saved and returns the timestamp the
// Wayback Machine recorded the capture at. Any failure — network, timeout,
// non-2xx/3xx status, or a response with no parsable Location header — is
// returned as a *TransientError.
func (c *Client) Capture(ctx context.Context, targetURL string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+targetURL, nil)
	if err != nil {
		return time.Time{}, transient("build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, transient("do request", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return time.Time{}, transient("status", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	location := resp.Header.Get("Location")
	match := archiveTimestampPattern.FindStringSubmatch(location)
	if match == nil {
		return time.Time{}, transient("parse location", fmt.Errorf("no capture timestamp in Location %q", location))
	}

	capturedAt, err := parseArchiveTimestamp(match[1])
	if err != nil {
		return time.Time{}, transient("parse timestamp", err)
	}
	return capturedAt, nil
}

func parseArchiveTimestamp(raw string) (time.Time, error) {
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", raw, err)
	}
	t, err := time.ParseInLocation(archiveTimestampLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", raw, err)
	}
	return t, nil
}
