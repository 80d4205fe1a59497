// Package brave provides a client for the Brave Search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.search.brave.com"
	defaultCount   = 5
)

// Search modes. General hits the web index; News hits the news index and
// is the fallback when a general query returns nothing.
const (
	ModeGeneral = "general"
	ModeNews    = "news"
)

// Client performs searches against the Brave Search API.
type Client interface {
	Search(ctx context.Context, query, mode string, count int) ([]Result, error)
}

// Result is a single search hit, normalized across modes.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age,omitempty"`
}

// APIError is returned for non-200 responses so callers can decide
// whether the status is worth retrying.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brave: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the request rate limit in requests per second.
// The free API tier allows one request per second.
func WithRateLimit(rps int) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Brave Search API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// webResponse mirrors the /res/v1/web/search body.
type webResponse struct {
	Web struct {
		Results []apiResult `json:"results"`
	} `json:"web"`
}

// newsResponse mirrors the /res/v1/news/search body.
type newsResponse struct {
	Results []apiResult `json:"results"`
}

type apiResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age"`
}

func (c *httpClient) Search(ctx context.Context, query, mode string, count int) ([]Result, error) {
	if query == "" {
		return nil, eris.New("brave: empty query")
	}
	if count <= 0 {
		count = defaultCount
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "brave: rate limit wait")
	}

	path := "/res/v1/web/search"
	if mode == ModeNews {
		path = "/res/v1/news/search"
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "brave: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "brave: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "brave: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var raw []apiResult
	if mode == ModeNews {
		var nr newsResponse
		if err := json.Unmarshal(respBody, &nr); err != nil {
			return nil, eris.Wrap(err, "brave: unmarshal news response")
		}
		raw = nr.Results
	} else {
		var wr webResponse
		if err := json.Unmarshal(respBody, &wr); err != nil {
			return nil, eris.Wrap(err, "brave: unmarshal web response")
		}
		raw = wr.Web.Results
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		results = append(results, Result(r))
	}
	return results, nil
}
