// Package client talks to a kobo server over HTTP. SnapshotClient feeds a
// remote sync core and RemoteFacade carries its mutations.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"kobo/internal/core"
	"kobo/internal/syncer"
)

const maxErrorBody = 512

var _ syncer.SnapshotFetcher = (*SnapshotClient)(nil)

// NewHTTPClient returns a pooled client with dial, TLS and header timeouts.
// The overall timeout is left to the caller's context.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

type base struct {
	baseURL string
	http    *http.Client
}

func newBase(baseURL string, hc *http.Client) base {
	if hc == nil {
		hc = NewHTTPClient()
	}
	return base{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SnapshotClient fetches the initial-data endpoint.
type SnapshotClient struct {
	base
	now func() time.Time
}

func NewSnapshotClient(baseURL string, hc *http.Client) *SnapshotClient {
	return &SnapshotClient{base: newBase(baseURL, hc), now: time.Now}
}

// FetchSnapshot loads all four collections in one request. The timestamp
// query parameter and no-cache headers defeat intermediary caches.
func (c *SnapshotClient) FetchSnapshot(ctx context.Context) (core.RawSnapshot, error) {
	u := fmt.Sprintf("%s/api/initial-data?t=%d", c.baseURL, c.now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return core.RawSnapshot{}, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.RawSnapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.RawSnapshot{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var raw core.RawSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return core.RawSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return raw, nil
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}
