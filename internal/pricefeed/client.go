package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateProvider supplies the reference-currency spot rate in USD, pinned once
// per recomputation pass.
type RateProvider interface {
	UsdRate(ctx context.Context) (decimal.Decimal, error)
}

// Client fetches the spot rate from an external HTTP price feed.
type Client struct {
	url     string
	http    *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

func NewClient(url string, retries int, backoff time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:     url,
		http:    &http.Client{Timeout: 10 * time.Second},
		retries: retries,
		backoff: backoff,
		logger:  logger,
	}
}

// UsdRate fetches the current rate, retrying transient failures with
// exponential backoff.
func (c *Client) UsdRate(ctx context.Context) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := withRetry(ctx, c.retries, c.backoff, func(ctx context.Context) error {
		var err error
		rate, err = c.fetch(ctx)
		if err != nil {
			c.logger.Warn("spot rate fetch failed", zap.Error(err))
		}
		return err
	})
	return rate, err
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch spot rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("spot rate feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read spot rate: %w", err)
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode spot rate: %w", err)
	}

	rate, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse spot rate %q: %w", payload.Price, err)
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative spot rate %q", payload.Price)
	}
	return rate, nil
}
