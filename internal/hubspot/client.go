// Package hubspot implements the HubSpot contacts API integration used
// for the contact-form CRM fan-out.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadlab/engage/internal/contact"
)

// DefaultBaseURL is the HubSpot API root.
const DefaultBaseURL = "https://api.hubapi.com"

// Doer executes HTTP requests. Satisfied by *http.Client; tests inject
// their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a HubSpot CRM API client. Calls are single-shot: upstream
// failures are reported to the caller, never retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient Doer
}

// NewClient creates a HubSpot client with a 10s request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWith creates a client against a custom base URL and Doer (tests).
func NewClientWith(baseURL, apiKey string, doer Doer) *Client {
	return &Client{baseURL: baseURL, apiKey: apiKey, httpClient: doer}
}

type contactProperties struct {
	FirstName         string `json:"firstname"`
	LastName          string `json:"lastname"`
	Email             string `json:"email"`
	Message           string `json:"message"`
	HSAnalyticsSource string `json:"hs_analytics_source"`
	UTMMedium         string `json:"utm_medium"`
	UTMCampaign       string `json:"utm_campaign"`
	GCLID             string `json:"gclid"`
	FBCLID            string `json:"fbclid"`
	MSCLKID           string `json:"msclkid"`
	ClientID          string `json:"client_id"`
}

type createContactRequest struct {
	Properties contactProperties `json:"properties"`
}

// CreateContact creates a CRM contact record carrying the submission and
// its attribution fields.
func (c *Client) CreateContact(ctx context.Context, sub contact.Submission) error {
	payload := createContactRequest{Properties: contactProperties{
		FirstName:         sub.FirstName(),
		LastName:          sub.LastName(),
		Email:             sub.Email,
		Message:           sub.Message,
		HSAnalyticsSource: sub.UTMSource,
		UTMMedium:         sub.UTMMedium,
		UTMCampaign:       sub.UTMCampaign,
		GCLID:             sub.GCLID,
		FBCLID:            sub.FBCLID,
		MSCLKID:           sub.MSCLKID,
		ClientID:          sub.ClientID,
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crm/v3/objects/contacts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("hubspot API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
