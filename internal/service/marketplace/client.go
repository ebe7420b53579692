package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ComicScout/internal/domain/models"
	"ComicScout/internal/domain/repository"
	xhttp "ComicScout/pkg/http"
)

const (
	liveListingsPath = "/v1/listings/live"
	soldListingsPath = "/v1/listings/sold"
	apiKeyHeader     = "X-API-Key"

	defaultTimeout = 5 * time.Second
	retryBackoff   = 100 * time.Millisecond
)

type listingsEnvelope struct {
	Items []models.Listing `json:"items"`
}

type soldEnvelope struct {
	Items []models.SoldListing `json:"items"`
}

// Client reads live and sold listings from the marketplace feed API.
type Client struct {
	baseURL string
	apiKey  string
	retries int
	client  *xhttp.Client
}

var (
	_ repository.ListingSource = (*Client)(nil)
	_ repository.SalesSource   = (*Client)(nil)
)

func NewClient(baseURL, apiKey string, timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if retries < 1 {
		retries = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		retries: retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (c *Client) FetchLiveListings(ctx context.Context, searchTerms []string) ([]models.Listing, error) {
	terms := make([]string, 0, len(searchTerms))
	for _, t := range searchTerms {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var env listingsEnvelope
	if err := c.getJSONWithRetry(ctx, liveListingsPath, map[string][]string{"q": terms}, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

func (c *Client) FetchSoldListings(ctx context.Context, issueID, gradeID string, windowDays int) ([]models.SoldListing, error) {
	params := map[string][]string{
		"issueId":    {issueID},
		"gradeId":    {gradeID},
		"windowDays": {strconv.Itoa(windowDays)},
	}
	var env soldEnvelope
	if err := c.getJSONWithRetry(ctx, soldListingsPath, params, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	if c.client == nil || c.baseURL == "" {
		return fmt.Errorf("marketplace client not initialized")
	}
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers[apiKeyHeader] = c.apiKey
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     headers,
		QueryParams: params,
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

func (c *Client) getJSONWithRetry(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	var err error
	for i := 1; i <= c.retries; i++ {
		err = c.getJSON(ctx, path, params, dest)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || i == c.retries {
			break
		}
		select {
		case <-time.After(time.Duration(i) * retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
