package shopping

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://shopping.yahooapis.jp/ShoppingWebService/V3/itemSearch"

	defaultResults = 20
	imageSize      = "300"
)

type ClientOpts struct {
	BaseURL  string
	ClientID string
	// RatePerSecond limits outgoing searches. Zero disables limiting.
	RatePerSecond float64
}

// Client searches the Yahoo! Shopping item search API.
type Client struct {
	httpClient *resty.Client
	clientID   string
	limiter    *rate.Limiter
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("yahoo client id is empty")
	}
	baseURL := DefaultBaseURL
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	c := &Client{
		clientID: opts.ClientID,
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json"),
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c, nil
}

// Search implements fashion.Catalog.
func (c *Client) Search(ctx context.Context, query string, opts fashion.SearchOptions) ([]fashion.Listing, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	results := opts.Results
	if results <= 0 {
		results = defaultResults
	}
	params := map[string]string{
		"appid":      c.clientID,
		"query":      query,
		"results":    strconv.Itoa(results),
		"image_size": imageSize,
	}
	if opts.Sort != "" {
		params["sort"] = opts.Sort
	}

	res, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(""))
	if err != nil {
		return nil, err
	}

	listings, err := ParseListings(res.Body())
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	log.Info().
		Str("query", query).
		Int("results", results).
		Int("hits", len(listings)).
		Msg("catalog search")

	return listings, nil
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, &StatusError{
			Method: res.Request.Method,
			URL:    res.Request.URL,
			Status: res.StatusCode(),
		}
	}
	return res, nil
}

// StatusError is a catalog response with an error status code.
type StatusError struct {
	Method string
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	var reason string
	switch {
	case e.Status == http.StatusBadRequest:
		reason = "bad request"
	case e.Status == http.StatusUnauthorized:
		reason = "authentication failed, check the client id"
	case e.Status == http.StatusForbidden:
		reason = "access denied, check api limits"
	case e.Status >= 500:
		reason = "server error"
	default:
		reason = http.StatusText(e.Status)
	}
	return fmt.Sprintf("request failed: %s %s (status: %d, %s)", e.Method, redactAppID(e.URL), e.Status, reason)
}

func redactAppID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
