package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/learnmarket/backend/internal/models"
)

type renderResponse struct {
	URL string `json:"url"`
}

// Renderer asks the certificate rendering service for a certificate document
type Renderer struct {
	http *resty.Client
}

// NewRenderer creates a renderer client
func NewRenderer(baseURL string, timeout time.Duration) *Renderer {
	return &Renderer{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Render returns the URL of the rendered certificate
func (r *Renderer) Render(ctx context.Context, req models.CertificateRenderRequest) (string, error) {
	var result renderResponse

	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/certificates")
	if err != nil {
		return "", fmt.Errorf("failed to render certificate: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("certificate renderer returned status %d", resp.StatusCode())
	}
	if result.URL == "" {
		return "", fmt.Errorf("certificate renderer returned no url")
	}

	return result.URL, nil
}
