// Package feed talks to the external game-data API that publishes the
// full price list.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"squad-stash/internal/domain"
)

// itemsQuery pulls the whole price list in one request.
const itemsQuery = `
	{
		items {
			id
			name
			avg24hPrice
			link
		}
	}
`

// PriceFeed fetches the current full price list or fails; partial
// results are never returned.
type PriceFeed interface {
	FetchItems(ctx context.Context) ([]domain.CatalogItem, error)
}

// Client is a PriceFeed over a GraphQL endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a feed client for the given endpoint.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlResponse struct {
	Data struct {
		Items []feedItem `json:"items"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type feedItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Avg24hPrice *float64 `json:"avg24hPrice"`
	Link        *string  `json:"link"`
}

// FetchItems downloads and maps the full price list. Items without a
// price are kept with price 0.
func (c *Client) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	body, err := json.Marshal(graphqlRequest{Query: itemsQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var decoded graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("feed returned error: %s", decoded.Errors[0].Message)
	}

	items := make([]domain.CatalogItem, 0, len(decoded.Data.Items))
	for _, it := range decoded.Data.Items {
		price := 0.0
		if it.Avg24hPrice != nil {
			price = *it.Avg24hPrice
		}
		items = append(items, domain.CatalogItem{
			ID:    it.ID,
			Name:  it.Name,
			Price: price,
			Link:  it.Link,
		})
	}

	return items, nil
}
