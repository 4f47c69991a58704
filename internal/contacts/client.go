// Package contacts is the HTTP client for the messaging platform's contact
// directory, used to turn an opaque contact id into a phone number.
package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNotConfigured = errors.New("contact directory token not configured")
	ErrNoPhone       = errors.New("contact has no phone number")
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// contactPayload covers the field spellings the directory has used for the
// phone number across API versions.
type contactPayload struct {
	Phone         string `json:"phone"`
	Number        string `json:"number"`
	PhoneNumber   string `json:"phoneNumber"`
	IDFromService string `json:"idFromService"`
	Data          struct {
		Number      string `json:"number"`
		ValidNumber string `json:"validNumber"`
	} `json:"data"`
}

// LookupPhone fetches the contact and returns the first phone-like field it
// carries. Callers treat any error as a soft miss and continue their own
// fallback chain.
func (c *Client) LookupPhone(ctx context.Context, contactID string) (string, error) {
	if c.token == "" {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/contacts/%s", c.baseURL, contactID), nil)
	if err != nil {
		return "", fmt.Errorf("build contact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup contact %s: %w", contactID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup contact %s: status %d", contactID, resp.StatusCode)
	}

	var payload contactPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode contact %s: %w", contactID, err)
	}

	for _, candidate := range []string{
		payload.Phone,
		payload.Number,
		payload.PhoneNumber,
		payload.IDFromService,
		payload.Data.Number,
		payload.Data.ValidNumber,
	} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", ErrNoPhone
}
