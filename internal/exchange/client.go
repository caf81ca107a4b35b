// Package exchange implements the narrow HTTP collaborator the core uses
// to seed an order book from the CLOB REST API and to forward pre-signed
// order placement/cancellation requests. No signing logic lives here: the
// core never derives keys or signs typed data, it only relays whatever
// signed payload the caller supplies.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"polymarket-index/pkg/types"
)

// Gateway is the narrow external-collaborator surface the streaming
// service's book seeding and order-management callers depend on, so tests
// can supply a fake instead of a live REST client.
type Gateway interface {
	GetOrderBook(ctx context.Context, tokenID string) (*types.BookResponse, error)
	PostOrders(ctx context.Context, orders []types.SignedOrder) ([]types.OrderResponse, error)
	CancelOrders(ctx context.Context, orderIDs []string) (*types.CancelResponse, error)
	CancelAll(ctx context.Context) (*types.CancelResponse, error)
}

// Client is the CLOB REST API client. GetOrderBook is wrapped in a
// CircuitBreaker so a failing endpoint degrades only the book component
// (the asset simply stays unseeded until the next wire snapshot) instead
// of escalating to a process-level failure.
type Client struct {
	http    *resty.Client
	rl      *RateLimiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a REST client with rate limiting, retry, and a
// circuit breaker around the book-read endpoint.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "clob-book",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		http:    httpClient,
		rl:      NewRateLimiter(),
		breaker: breaker,
		logger:  logger,
	}
}

// GetOrderBook fetches the order book for a single token, used as a
// startup/reconnect fallback before the wire protocol delivers its first
// snapshot for the asset.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*types.BookResponse, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var result types.BookResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("token_id", tokenID).
			SetResult(&result).
			Get("/book")
		if err != nil {
			return nil, fmt.Errorf("get book: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("get book: status %d: %s", resp.StatusCode(), resp.String())
		}
		return &result, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.BookResponse), nil
}

// PostOrders forwards up to 15 pre-signed orders to the placement
// endpoint. The caller is responsible for signing every order; this
// method performs no signature construction.
func (c *Client) PostOrders(ctx context.Context, orders []types.SignedOrder) ([]types.OrderResponse, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	if len(orders) > 15 {
		return nil, fmt.Errorf("batch limit is 15 orders, got %d", len(orders))
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return nil, err
	}

	var results []types.OrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orders).
		SetResult(&results).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("post orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("post orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	return results, nil
}

// CancelOrders cancels multiple orders by ID.
func (c *Client) CancelOrders(ctx context.Context, orderIDs []string) (*types.CancelResponse, error) {
	if len(orderIDs) == 0 {
		return &types.CancelResponse{}, nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(struct {
		OrderIDs []string `json:"orderIDs"`
	}{OrderIDs: orderIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal cancel request: %w", err)
	}

	var result types.CancelResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(json.RawMessage(body)).
		SetResult(&result).
		Delete("/orders")
	if err != nil {
		return nil, fmt.Errorf("cancel orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("cancel orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("orders cancelled", "count", len(result.Canceled))
	return &result, nil
}

// CancelAll cancels every open order across all markets.
func (c *Client) CancelAll(ctx context.Context) (*types.CancelResponse, error) {
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}

	var result types.CancelResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Delete("/cancel-all")
	if err != nil {
		return nil, fmt.Errorf("cancel all: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("cancel all: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Warn("all orders cancelled", "count", len(result.Canceled))
	return &result, nil
}
