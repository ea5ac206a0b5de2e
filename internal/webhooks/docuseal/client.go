package docuseal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vouchsafe/internal/application/models"
)

// Client creates certification e-signature submissions through the provider
// API. It implements the application service's SigningProvider.
type Client struct {
	baseURL    string
	apiKey     string
	templateID string
	httpClient *http.Client
}

// NewClient creates a provider API client.
func NewClient(baseURL, apiKey, templateID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		templateID: templateID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createSubmissionRequest struct {
	TemplateID string              `json:"template_id"`
	SendEmail  bool                `json:"send_email"`
	Submitters []submissionPartyIn `json:"submitters"`
}

type submissionPartyIn struct {
	Role       string            `json:"role"`
	ExternalID string            `json:"external_id"`
	Fields     map[string]string `json:"values,omitempty"`
}

type createSubmissionResponse struct {
	ID json.Number `json:"id"`
}

// CreateSubmission opens a signing request for the application's
// certification form and returns the provider submission ID.
func (c *Client) CreateSubmission(ctx context.Context, app *models.Application) (string, error) {
	body, err := json.Marshal(createSubmissionRequest{
		TemplateID: c.templateID,
		SendEmail:  true,
		Submitters: []submissionPartyIn{{
			Role:       "Medical Provider",
			ExternalID: app.ID.String(),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding submission request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("creating submission: status %d: %s", resp.StatusCode, payload)
	}

	var created createSubmissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding submission response: %w", err)
	}
	if created.ID.String() == "" {
		return "", fmt.Errorf("submission response carries no ID")
	}
	return created.ID.String(), nil
}
