package ticketview

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/copperdesk/copperdesk/pkg/tickets"
)

// Client fetches the visible ticket set over HTTP with bearer-session
// authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a retrieval client for the given server base URL and
// session token. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

type filteredResponse struct {
	Success bool             `json:"success"`
	Tickets []tickets.Ticket `json:"tickets"`
	Message string           `json:"message"`
	Error   string           `json:"error"`
}

// FetchTickets calls GET /api/v1/tickets/filtered and returns the ticket
// set. Non-2xx responses surface the server's error envelope message.
func (c *Client) FetchTickets(ctx context.Context) ([]tickets.Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tickets/filtered", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticket fetch failed: %w", err)
	}
	defer resp.Body.Close()

	var body filteredResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !body.Success {
		message := body.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("server rejected ticket fetch (status %d): %s", resp.StatusCode, message)
	}

	if body.Tickets == nil {
		body.Tickets = []tickets.Ticket{}
	}
	return body.Tickets, nil
}
