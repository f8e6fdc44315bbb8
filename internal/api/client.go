package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent with every request; both Wikipedia and the chart
// endpoint reject requests without one.
const DefaultUserAgent = "Mozilla/5.0 (compatible; sp500-explorer/1.0)"

// Client interface for testability
type Client interface {
	GetChart(ctx context.Context, symbol string, q ChartQuery) (*ChartResult, error)
	DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error)
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

// ChartQuery selects the window and sampling of a chart request. Range
// ("ytd", "1y", ...) wins over Start/End when both are set.
type ChartQuery struct {
	Range          string
	Start          time.Time
	End            time.Time
	Interval       string
	IncludePrePost bool
}

func NewClient(baseURL, userAgent string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// ChartURL builds the chart endpoint URL for symbol.
func (c *HTTPClient) ChartURL(symbol string, q ChartQuery) string {
	params := url.Values{}
	if q.Range != "" {
		params.Set("range", q.Range)
	} else {
		params.Set("period1", strconv.FormatInt(q.Start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(q.End.Unix(), 10))
	}
	params.Set("interval", q.Interval)
	params.Set("includePrePost", strconv.FormatBool(q.IncludePrePost))
	params.Set("events", "div,splits")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())
}

func (c *HTTPClient) GetChart(ctx context.Context, symbol string, q ChartQuery) (*ChartResult, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.ChartURL(symbol, q)
	c.logger.Debug("requesting", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, ErrAuthFailed
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var chartResp ChartResponse
		if err := json.Unmarshal(body, &chartResp); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}

		if chartResp.Chart.Error != nil || len(chartResp.Chart.Result) == 0 {
			return nil, ErrNotFound
		}

		return &chartResp.Chart.Result[0], nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *HTTPClient) DownloadFile(ctx context.Context, url string, dest io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	// Stream to destination
	return io.Copy(dest, resp.Body)
}

// ProviderSymbol maps an index symbol to the provider's ticker format
// (share classes use a dash: BRK.B -> BRK-B).
func ProviderSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}
