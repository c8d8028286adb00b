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
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sirseerhq/analytics-relay/internal/apierror"
)

// RetryConfig configures the retry behavior for API calls
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first one
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       9,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryClient wraps a Client with exponential backoff. Only transient
// failures are retried: backend server errors and network timeouts. Every
// other classified error is returned on the first occurrence.
type RetryClient struct {
	client    Client
	config    *RetryConfig
	inspector apierror.Inspector
	logger    *slog.Logger
	calls     atomic.Int64
}

// NewRetryClient creates a new RetryClient. A nil config selects
// DefaultRetryConfig and a nil logger discards retry diagnostics.
func NewRetryClient(client Client, config *RetryConfig, logger *slog.Logger) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RetryClient{
		client:    client,
		config:    config,
		inspector: apierror.NewInspector(),
		logger:    logger,
	}
}

// BatchGet implements the Client interface with retry logic
func (r *RetryClient) BatchGet(ctx context.Context, req *BatchGetRequest, quotaUser string) (*BatchGetResponse, error) {
	var resp *BatchGetResponse
	err := r.do(ctx, "batchGet", func() error {
		var err error
		resp, err = r.client.BatchGet(ctx, req, quotaUser)
		return err
	})
	return resp, err
}

// Columns implements the Client interface with retry logic
func (r *RetryClient) Columns(ctx context.Context) (*ColumnsResponse, error) {
	var resp *ColumnsResponse
	err := r.do(ctx, "columns", func() error {
		var err error
		resp, err = r.client.Columns(ctx)
		return err
	})
	return resp, err
}

// Calls returns the number of attempts made so far, whatever their outcome.
func (r *RetryClient) Calls() int {
	return int(r.calls.Load())
}

func (r *RetryClient) do(ctx context.Context, op string, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		r.calls.Add(1)
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't retry if context is cancelled
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !r.inspector.IsTransient(err) {
			return err
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		backoff := r.calculateBackoff(attempt - 1)
		r.logger.Warn("transient reporting API error, backing off",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"backoff", backoff,
			"error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, r.config.MaxAttempts, lastErr)
}

// calculateBackoff calculates the backoff duration for the given retry
// number, starting at zero.
func (r *RetryClient) calculateBackoff(retry int) time.Duration {
	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffMultiplier, float64(retry))

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}

	// Add jitter (±10%) to prevent thundering herd
	jitter := backoff * 0.1 * (2*rand.Float64() - 1)
	backoff += jitter

	return time.Duration(backoff)
}
