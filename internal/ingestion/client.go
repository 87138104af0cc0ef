// Package ingestion holds the signal fetchers: pure translation from upstream
// HTTP APIs to models, with no state of their own.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUpstreamUnavailable wraps every fetch failure: transport errors,
// timeouts, non-200 responses and undecodable bodies.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

func getJSON(ctx context.Context, client *http.Client, source, fullURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %w", ErrUpstreamUnavailable, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s status %d: %s", ErrUpstreamUnavailable, source, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrUpstreamUnavailable, source, err)
	}
	return nil
}
