package reanalysis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skyrisk/weatherrisk-api/internal/cache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func disabledCache() *cache.Service {
	return cache.New(&cache.Config{}) // empty URL fails Validate, service comes up disabled
}

func TestGetDailySeriesValidatesLatLon(t *testing.T) {
	c := New(Config{}, disabledCache(), testLogger())
	ctx := context.Background()
	now := time.Now()

	if _, err := c.GetDailySeries(ctx, 91, 0, now, now, nil); err == nil {
		t.Error("expected error for lat out of range")
	}
	if _, err := c.GetDailySeries(ctx, 0, 181, now, now, nil); err == nil {
		t.Error("expected error for lon out of range")
	}
	if _, err := c.GetDailySeries(ctx, 0, 0, now, now.Add(-24*time.Hour), nil); err == nil {
		t.Error("expected error when start is after end")
	}
}

func TestGetDailySeriesFetchesAndSanitizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"properties": map[string]interface{}{
				"parameter": map[string]interface{}{
					"T2M": map[string]float64{
						"20200101": 25.0,
						"20200102": -999.0,
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 1}, disabledCache(), testLogger())

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	result, err := c.GetDailySeries(context.Background(), 10, 20, start, end, []string{"T2M"})
	if err != nil {
		t.Fatal(err)
	}

	series, ok := result["T2M"]
	if !ok {
		t.Fatal("expected T2M series in result")
	}
	if series["20200101"].V == nil || *series["20200101"].V != 25.0 {
		t.Errorf("20200101 value = %v, want 25.0", series["20200101"].V)
	}
	if series["20200102"].V != nil {
		t.Errorf("expected sentinel -999 to sanitize to nil, got %v", *series["20200102"].V)
	}
}

func TestGetDailySeriesRetriesOnServerErrorThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 2}, disabledCache(), testLogger())
	c.baseDelay = time.Millisecond // keep the test fast

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.GetDailySeries(context.Background(), 10, 20, start, start, []string{"T2M"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (Retries)", attempts)
	}
}

func TestGetDailySeriesNonRetryableStatusStopsImmediately(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Retries: 3}, disabledCache(), testLogger())
	c.baseDelay = time.Millisecond

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.GetDailySeries(context.Background(), 10, 20, start, start, []string{"T2M"})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a non-retryable status", attempts)
	}
}

func TestSanitizeMapsSentinelToNil(t *testing.T) {
	raw := map[string]map[string]float64{
		"T2M": {"20200101": 30.0, "20200102": -999.0},
	}
	out := sanitize(raw)
	if out["T2M"]["20200101"].V == nil || *out["T2M"]["20200101"].V != 30.0 {
		t.Error("expected present value to carry through")
	}
	if out["T2M"]["20200102"].V != nil {
		t.Error("expected sentinel to sanitize to nil")
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	c := New(Config{}, disabledCache(), testLogger())
	c.cache = cache.New(&cache.Config{KeyPrefix: "test"})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	key1 := c.cacheKey(10, 20, start, end, []string{"T2M", "RH2M"})
	key2 := c.cacheKey(10, 20, start, end, []string{"T2M", "RH2M"})
	if key1 != key2 {
		t.Errorf("cacheKey not deterministic: %q vs %q", key1, key2)
	}

	key3 := c.cacheKey(10, 20, start, end, []string{"T2M"})
	if key1 == key3 {
		t.Error("expected different param sets to produce different keys")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	if !isRetryableStatus(http.StatusServiceUnavailable) {
		t.Error("expected 503 to be retryable")
	}
	if isRetryableStatus(http.StatusBadRequest) {
		t.Error("expected 400 to not be retryable")
	}
}
