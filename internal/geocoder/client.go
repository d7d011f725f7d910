package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/observability"
)

// ErrNoResults is returned when the provider found nothing for the query.
// It is a user-facing, retryable condition: the reporter can rephrase the
// address or click the map directly.
var ErrNoResults = errors.New("no results for address query")

// Result is one ranked candidate returned by the address search provider.
type Result struct {
	Lat         float64
	Lon         float64
	Name        string
	DisplayName string
	Importance  float64
}

// Geocoder resolves free-text addresses to ranked coordinate candidates.
// The first result is used as the default candidate pin.
type Geocoder interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Client implements Geocoder against a Nominatim-style /search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *observability.Metrics
	maxRetries int
	baseDelay  time.Duration
}

func NewClient(baseURL string, timeout time.Duration, maxRetries int, baseDelay time.Duration, logger *logrus.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		metrics:    metrics,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Search runs an address query and returns ranked candidates. Transport
// errors are retried with exponential backoff; an empty result set is
// reported as ErrNoResults without retrying.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	log := c.logger.WithFields(logrus.Fields{
		"component": "geocoder",
		"query":     query,
	})

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {strconv.Itoa(maxResults)},
	}
	fullURL := c.baseURL + "/search?" + params.Encode()

	started := time.Now()
	defer func() {
		c.metrics.GeocodeDuration.Observe(time.Since(started).Seconds())
	}()

	var lastErr error
	delay := c.baseDelay
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
				return nil, fmt.Errorf("address search cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		results, err := c.doSearch(ctx, fullURL)
		if err != nil {
			lastErr = err
			log.WithError(err).Warnf("Address search attempt failed. Retries left: %d", c.maxRetries-1-attempt)
			continue
		}

		if len(results) == 0 {
			c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
			return nil, ErrNoResults
		}
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		return results, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("address search failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doSearch(ctx context.Context, fullURL string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API error: status %d: %s", resp.StatusCode, body)
	}

	var entries []searchEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		// The provider sends lat/lon as strings.
		lat, latErr := strconv.ParseFloat(e.Lat, 64)
		lon, lonErr := strconv.ParseFloat(e.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		results = append(results, Result{
			Lat:         lat,
			Lon:         lon,
			Name:        e.Name,
			DisplayName: e.DisplayName,
			Importance:  e.Importance,
		})
	}
	return results, nil
}

// searchEntry mirrors the provider's wire format.
type searchEntry struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}
