// Package geo looks up store locations with the Google Maps geocoding and places APIs.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const (
	maxAttempts  = 3
	maxPlaces    = 10
	userAgent    = "PriceLens/1.0"
	statusOK     = "OK"
	statusZero   = "ZERO_RESULTS"
	requestLimit = 30 * time.Second
)

// errTransient marks failures worth retrying.
var errTransient = errors.New("transient geolocation failure")

// Client handles communication with the Google Maps APIs
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new geolocation client. requestsPerSecond and burst bound the
// outbound request rate.
func NewClient(apiKey, baseURL string, requestsPerSecond float64, burst int, logger zerolog.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: requestLimit,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:      logger.With().Str("component", "geo").Logger(),
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff returns the wait before retrying after attempt: 500ms, 1s, 2s.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// FindStoreByAddress geocodes address to its first result.
func (c *Client) FindStoreByAddress(ctx context.Context, address string) (*domain.StoreLocation, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", c.apiKey)

	resp, err := c.get(ctx, "/geocode/json", params)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, domain.ErrStoreNotFound
	}

	location := mapResult(resp.Results[0])
	c.logger.Debug().Str("address", address).Str("place_id", location.PlaceID).Msg("geocoded store address")
	return &location, nil
}

// FindStoresByName searches places matching name, returning at most ten.
func (c *Client) FindStoresByName(ctx context.Context, name string) ([]domain.StoreLocation, error) {
	params := url.Values{}
	params.Add("query", name)
	params.Add("key", c.apiKey)

	resp, err := c.get(ctx, "/place/textsearch/json", params)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, domain.ErrStoreNotFound
	}

	results := resp.Results
	if len(results) > maxPlaces {
		results = results[:maxPlaces]
	}
	c.logger.Debug().Str("name", name).Int("results", len(results)).Msg("found stores by name")
	return mapResults(results), nil
}

// get calls path with params, retrying transport failures and 5xx responses.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*apiResponse, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.attempt(ctx, reqURL)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, errTransient) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("geolocation request failed")
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrGeoAPIFailure, lastErr)
}

func (c *Client) attempt(ctx context.Context, reqURL string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errTransient, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", errTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeoAPIFailure, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrGeoAPIFailure, err)
	}

	switch parsed.Status {
	case statusOK:
		return &parsed, nil
	case statusZero:
		return nil, domain.ErrStoreNotFound
	default:
		return nil, fmt.Errorf("%w: status %s %s", domain.ErrGeoAPIFailure, parsed.Status, parsed.ErrorMessage)
	}
}

var _ domain.GeoClient = (*Client)(nil)
