// Package identity resolves user contact details from the identity service.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// Contact is what notifications need to reach a user
type Contact struct {
	UserID int    `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Client calls the identity service's internal API with a service API key
type Client struct {
	http *resty.Client
}

// NewClient creates an identity client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("X-API-Key", apiKey),
	}
}

// GetContact returns the contact details of a user
func (c *Client) GetContact(ctx context.Context, userID int) (*Contact, error) {
	var contact Contact

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(userID)).
		SetResult(&contact).
		Get("/api/v1/internal/users/{id}/contact")
	if err != nil {
		return nil, fmt.Errorf("failed to get user contact: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("user %d not found", userID)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode())
	}
	if contact.Email == "" {
		return nil, fmt.Errorf("user %d has no email", userID)
	}

	return &contact, nil
}
