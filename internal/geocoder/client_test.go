package geocoder

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JetsonAtWork/incident-triage/internal/observability"
)

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewClient(baseURL, 2*time.Second, maxRetries, time.Millisecond, logger, observability.NewMetricsForTesting())
}

func TestSearch_ParsesRankedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "123 Main St", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"lat": "49.25", "lon": "-123.0", "name": "Main St", "display_name": "123 Main St, Vancouver", "importance": 0.71},
			{"lat": "48.41", "lon": "-123.36", "name": "Main St", "display_name": "123 Main St, Victoria", "importance": 0.55}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)

	results, err := client.Search(context.Background(), "123 Main St", 5)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 49.25, results[0].Lat)
	assert.Equal(t, -123.0, results[0].Lon)
	assert.Equal(t, "123 Main St, Vancouver", results[0].DisplayName)
}

func TestSearch_EmptyResultSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)

	_, err := client.Search(context.Background(), "nowhere at all", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearch_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"lat": "49.25", "lon": "-123.0", "name": "Main St", "display_name": "123 Main St", "importance": 0.7}]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3)

	results, err := client.Search(context.Background(), "123 Main St", 5)

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSearch_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2)

	_, err := client.Search(context.Background(), "123 Main St", 5)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestSearch_SkipsUnparsableCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"lat": "not-a-number", "lon": "-123.0", "display_name": "broken"},
			{"lat": "49.25", "lon": "-123.0", "display_name": "ok"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 1)

	results, err := client.Search(context.Background(), "q", 5)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].DisplayName)
}

func TestCachedGeocoder_ServesSecondLookupFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"lat": "49.25", "lon": "-123.0", "display_name": "123 Main St", "importance": 0.7}]`))
	}))
	defer srv.Close()

	cached := NewCachedGeocoder(newTestClient(t, srv.URL, 1), 8, observability.NewMetricsForTesting())
	ctx := context.Background()

	first, err := cached.Search(ctx, "123 Main St", 5)
	require.NoError(t, err)
	second, err := cached.Search(ctx, "123 Main St", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedGeocoder_DoesNotCacheEmptyResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cached := NewCachedGeocoder(newTestClient(t, srv.URL, 1), 8, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, err := cached.Search(ctx, "nowhere", 5)
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = cached.Search(ctx, "nowhere", 5)
	assert.ErrorIs(t, err, ErrNoResults)

	assert.Equal(t, int32(2), calls.Load(), "a not-found must stay retryable")
}
