// Package fetch implements the single HTTP GET primitive the aggregation
// server uses to pull code and source maps from its upstreams.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusError is returned when an upstream responds with anything other than
// 200. It carries the full response body so the underlying build error stays
// visible to whoever receives the failure.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Status, e.URL)
}

// Client fetches upstream resources. It deliberately has no retry and no
// default timeout; both are the caller's policy, which keeps the primitive
// composable.
type Client struct {
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// New returns a Client using the given http.Client, or a default one if nil.
func New(logger logrus.FieldLogger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Fetch issues one GET against u and returns the full response body as text.
// Only status 200 counts as success; any other status yields a *StatusError
// carrying the body. Connection-level errors propagate wrapped.
func (c *Client) Fetch(ctx context.Context, u string) (string, error) {
	c.logger.WithField("url", u).Debug("Fetching from upstream...")
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", u, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", &StatusError{URL: u, Status: res.StatusCode, Body: string(body)}
	}

	c.logger.WithFields(logrus.Fields{
		"url": u,
		"t":   time.Since(startTime),
		"len": len(body),
	}).Debug("Fetched!")
	return string(body), nil
}
