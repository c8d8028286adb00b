// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sirseerhq/analytics-relay/internal/apierror"
	relaierrors "github.com/sirseerhq/analytics-relay/internal/errors"
)

const (
	// DefaultEndpoint is the Reporting API v4 batchGet URL.
	DefaultEndpoint = "https://analyticsreporting.googleapis.com/v4/reports:batchGet"

	// DefaultMetadataEndpoint lists the columns known to the API.
	DefaultMetadataEndpoint = "https://www.googleapis.com/analytics/v3/metadata/ga/columns"

	// maxResponseBytes caps a single response body.
	maxResponseBytes = 10 * 1024 * 1024
)

// ClientConfig holds the transport settings of an HTTPClient.
type ClientConfig struct {
	// Endpoint is the batchGet URL.
	Endpoint string
	// MetadataEndpoint is the column metadata URL.
	MetadataEndpoint string
	// Timeout bounds one HTTP round trip. Zero disables the timeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero or less disables
	// throttling.
	RequestsPerSecond float64
	// Burst is the token bucket size.
	Burst int
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the settings used when none are configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:          DefaultEndpoint,
		MetadataEndpoint:  DefaultMetadataEndpoint,
		Timeout:           60 * time.Second,
		RequestsPerSecond: 10,
		Burst:             1,
	}
}

// HTTPClient implements Client against the live reporting API.
// It authenticates every request with a bearer access token, waits on a
// token bucket before each call, and classifies non-2xx responses into
// *apierror.Error values.
type HTTPClient struct {
	httpClient       *http.Client
	endpoint         string
	metadataEndpoint string
	limiter          *rate.Limiter
	inspector        apierror.Inspector
}

// NewHTTPClient creates a client that authenticates with the given access
// token. Empty endpoints fall back to the defaults.
func NewHTTPClient(token string, cfg ClientConfig) *HTTPClient {
	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	metadataEndpoint := cfg.MetadataEndpoint
	if metadataEndpoint == "" {
		metadataEndpoint = DefaultMetadataEndpoint
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &authTransport{
				token: token,
				base:  base,
			},
		},
		endpoint:         endpoint,
		metadataEndpoint: metadataEndpoint,
		limiter:          rate.NewLimiter(limit, burst),
		inspector:        apierror.NewInspector(),
	}
}

// BatchGet posts one batchGet request. A non-empty quotaUser is sent as the
// quotaUser query parameter.
func (c *HTTPClient) BatchGet(ctx context.Context, req *BatchGetRequest, quotaUser string) (*BatchGetResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding batchGet request: %w", err)
	}

	target, err := withQuery(c.endpoint, "quotaUser", quotaUser)
	if err != nil {
		return nil, err
	}

	var resp BatchGetResponse
	if err := c.do(ctx, http.MethodPost, target, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Columns fetches the column metadata listing.
func (c *HTTPClient) Columns(ctx context.Context) (*ColumnsResponse, error) {
	var resp ColumnsResponse
	if err := c.do(ctx, http.MethodGet, c.metadataEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for request slot: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.mapTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierror.FromResponse(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding reporting API response: %w", err)
	}
	return nil
}

// mapTransportError maps errors that happened before a status code was
// received. Timeouts keep the underlying error in the chain so that the
// inspector classifies them as transient.
func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if c.inspector.IsTimeout(err) || c.inspector.IsNetworkError(err) {
		return fmt.Errorf("network error calling reporting API, check connectivity and try again: %w: %w",
			relaierrors.ErrNetworkFailure, err)
	}
	return fmt.Errorf("calling reporting API: %w", err)
}

func withQuery(target, key, value string) (string, error) {
	if value == "" {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", target, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
