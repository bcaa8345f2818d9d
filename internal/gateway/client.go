package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

type apiErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client opens orders on the payment gateway
type Client struct {
	http *resty.Client
}

// NewClient creates a gateway client authenticated with the key id and secret
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetBasicAuth(keyID, keySecret).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// CreateOrder opens a gateway order for an amount in minor currency units.
// receipt is our payment id, echoed back by the gateway for reconciliation.
// Returns the gateway order id.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	var result createOrderResponse
	var apiErr apiErrorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createOrderRequest{
			Amount:   amountMinor,
			Currency: currency,
			Receipt:  receipt,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/orders")
	if err != nil {
		return "", fmt.Errorf("failed to create gateway order: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gateway rejected order with status %d: %s", resp.StatusCode(), apiErr.Error.Description)
	}
	if result.ID == "" {
		return "", fmt.Errorf("gateway returned an order without id")
	}

	return result.ID, nil
}
