// Package alpaca implements the broker transport against the Alpaca trading
// and streaming APIs: REST for order submission/cancellation and a websocket
// stream for quotes, trades and order lifecycle updates.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"tick-core/pkg/broker"
)

// Config holds Alpaca credentials and endpoints.
type Config struct {
	KeyID     string
	SecretKey string
	BaseURL   string // REST endpoint; paper trading uses https://paper-api.alpaca.markets
	StreamURL string // websocket endpoint
}

// Client is an Alpaca REST trading client implementing broker.Gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient builds a REST client. Paper keys (PK prefix) default to the paper
// endpoint when no BaseURL is given.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.alpaca.markets"
		if len(cfg.KeyID) >= 2 && cfg.KeyID[:2] == "PK" {
			cfg.BaseURL = "https://paper-api.alpaca.markets"
		}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type orderPayload struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

type orderResponse struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
}

// SubmitOrder places an order and returns the broker-assigned id.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if c.cfg.KeyID == "" || c.cfg.SecretKey == "" {
		return broker.OrderResult{}, errors.New("alpaca: key id/secret required")
	}

	payload := orderPayload{
		Symbol:        req.Symbol,
		Qty:           strconv.FormatInt(req.Qty, 10),
		Side:          string(req.Side),
		Type:          string(req.Type),
		TimeInForce:   string(req.TimeInForce),
		ClientOrderID: req.ClientOrderID,
	}
	if req.Type == broker.OrderTypeLimit {
		payload.LimitPrice = strconv.FormatFloat(req.LimitPrice, 'f', 2, 64)
	}

	body, err := c.do(ctx, http.MethodPost, "/v2/orders", payload)
	if err != nil {
		return broker.OrderResult{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return broker.OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	return broker.OrderResult{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientOrderID,
		Status:        resp.Status,
	}, nil
}

// CancelOrder requests cancellation by broker order id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("alpaca: empty order id")
	}
	_, err := c.do(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.SecretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("alpaca %s %s: status %d: %s", method, path, res.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
