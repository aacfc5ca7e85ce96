// Package doordash fetches a consumer's order history from the DoorDash
// GraphQL API. This is not a general GraphQL client: it speaks exactly one
// query shape for exactly one consumer surface.
package doordash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api-consumer-client.doordash.com/graphql"

// Browser-like headers. The consumer API rejects requests that don't look
// like they came from the web client.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ordersField is the GraphQL field the order history lives under. Keep in
// sync with ordersQuery and driftMarkers.
const ordersField = "getConsumerOrdersWithDetails"

const ordersQuery = `
    query getConsumerOrdersWithDetails($offset: Int!, $limit: Int!, $includeCancelled: Boolean, $orderFilterType: OrderFilterType) {
      getConsumerOrdersWithDetails(
        offset: $offset
        limit: $limit
        includeCancelled: $includeCancelled
        orderFilterType: $orderFilterType
      ) {
        id
        orderUuid
        createdAt
        submittedAt
        store {
          id
          name
        }
        orders {
          id
          creator {
            id
            firstName
            lastName
          }
          items {
            id
            name
            quantity
            specialInstructions
            orderItemExtras {
              menuItemExtraId
              name
              orderItemExtraOptions {
                menuExtraOptionId
                name
                description
                price
                quantity
              }
            }
          }
        }
      }
    }
`

// Client posts the hardcoded order history query with session-cookie auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    string
	logger     *slog.Logger
}

// NewClient creates a client from a sessionid cookie value or a full cookie
// string copied out of the browser.
func NewClient(session string, logger *slog.Logger) (*Client, error) {
	if session == "" {
		return nil, fmt.Errorf("a sessionid is required: log into doordash.com in a web browser and copy your sessionid cookie")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		session:    session,
		logger:     logger.With(slog.String("system", "doordash")),
	}, nil
}

// SetBaseURL overrides the GraphQL endpoint, for proxies and tests.
func (c *Client) SetBaseURL(url string) {
	if url != "" {
		c.baseURL = url
	}
}

// SessionCookie returns the Cookie header value. A value containing
// semicolons is assumed to already be a full cookie string.
func (c *Client) SessionCookie() string {
	if strings.Contains(c.session, ";") {
		return c.session
	}
	return "sessionid=" + c.session
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// FetchOrdersPage posts one order history page request and returns the raw
// response body. Transport failures are fatal to the run; there is no retry
// because a stale query or revoked session is not resolved by retrying.
func (c *Client) FetchOrdersPage(ctx context.Context, limit, offset int) ([]byte, error) {
	body, err := json.Marshal(graphQLRequest{
		Query: ordersQuery,
		Variables: map[string]any{
			"limit":            limit,
			"offset":           offset,
			"includeCancelled": true,
			"orderFilterType":  nil,
		},
		OperationName: ordersField,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal orders query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create orders request: %w", err)
	}
	req.Header.Set("Cookie", c.SessionCookie())
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", "https://www.doordash.com")
	req.Header.Set("Referer", "https://www.doordash.com/consumer/order-history/")

	c.logger.Debug("posting orders query", slog.Int("limit", limit), slog.Int("offset", offset))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post orders query (offset %d): %w", offset, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read orders response (offset %d): %w", offset, err)
	}
	return payload, nil
}
