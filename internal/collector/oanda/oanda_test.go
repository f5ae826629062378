package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/fxlab/internal/collector"
	"github.com/newthinker/fxlab/internal/core"
	"github.com/newthinker/fxlab/internal/metrics"
)

func TestOanda_ImplementsHistoryProvider(t *testing.T) {
	var _ collector.HistoryProvider = (*Oanda)(nil)
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestNew_Defaults(t *testing.T) {
	o, err := New(Config{Token: "secret", PageSize: 100000})
	require.NoError(t, err)
	assert.Equal(t, "oanda", o.Name())
	assert.Equal(t, PracticeURL, o.baseURL)
	assert.Equal(t, MaxPageSize, o.pageSize)
}

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// candleServer serves n hourly candles starting at t0, honouring from,
// count and includeFirst. The last candle is still forming.
func candleServer(t *testing.T, n int, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/v3/instruments/EUR_USD/candles", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "M", q.Get("price"))
		assert.Equal(t, "H1", q.Get("granularity"))

		from, err := time.Parse(time.RFC3339Nano, q.Get("from"))
		require.NoError(t, err)
		count, err := strconv.Atoi(q.Get("count"))
		require.NoError(t, err)

		idx := int(from.Sub(t0) / time.Hour)
		if q.Get("includeFirst") == "false" {
			idx++
		}

		var candles []map[string]any
		for i := idx; i < n && len(candles) < count; i++ {
			price := 1.1 + float64(i)/10000
			candles = append(candles, map[string]any{
				"time":     t0.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05.000000000Z"),
				"complete": i < n-1,
				"volume":   100 + i,
				"mid": map[string]string{
					"o": fmt.Sprintf("%.5f", price),
					"h": fmt.Sprintf("%.5f", price+0.0005),
					"l": fmt.Sprintf("%.5f", price-0.0005),
					"c": fmt.Sprintf("%.5f", price+0.0001),
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"instrument":  "EUR_USD",
			"granularity": "H1",
			"candles":     candles,
		})
	}))
}

func TestFetchHistory_Pages(t *testing.T) {
	var requests atomic.Int32
	srv := candleServer(t, 25, &requests)
	defer srv.Close()

	reg := metrics.NewRegistry()
	o, err := New(Config{BaseURL: srv.URL, Token: "secret", PageSize: 10}, WithMetrics(reg))
	require.NoError(t, err)

	bars, err := o.FetchHistory(context.Background(), "EUR_USD", t0, t0.Add(48*time.Hour), core.GranularityH1)
	require.NoError(t, err)

	// 25 candles, the last one incomplete.
	require.Len(t, bars, 24)
	assert.Equal(t, int32(3), requests.Load())
	for i, b := range bars {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), b.Time)
	}
	assert.Equal(t, 1.1, bars[0].Open)
	assert.Equal(t, 1.1005, bars[0].High)
	assert.Equal(t, 1.0995, bars[0].Low)
	assert.Equal(t, 1.1001, bars[0].Close)
	assert.Equal(t, int64(100), bars[0].Volume)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range mfs {
		if mf.GetName() == "fxlab_http_requests_total" {
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, total)
}

func TestFetchHistory_StopsAtEnd(t *testing.T) {
	var requests atomic.Int32
	srv := candleServer(t, 100, &requests)
	defer srv.Close()

	o, err := New(Config{BaseURL: srv.URL, Token: "secret", PageSize: 10})
	require.NoError(t, err)

	bars, err := o.FetchHistory(context.Background(), "EUR_USD", t0, t0.Add(15*time.Hour), core.GranularityH1)
	require.NoError(t, err)
	require.Len(t, bars, 15)
	assert.Equal(t, t0.Add(14*time.Hour), bars[14].Time)
	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchHistory_InvalidArguments(t *testing.T) {
	o, err := New(Config{BaseURL: "http://127.0.0.1:1", Token: "secret"})
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name        string
		instrument  string
		start, end  time.Time
		granularity core.Granularity
	}{
		{"bad instrument", "eurusd", t0, t0.Add(time.Hour), core.GranularityH1},
		{"bad granularity", "EUR_USD", t0, t0.Add(time.Hour), core.Granularity("W")},
		{"empty range", "EUR_USD", t0, t0, core.GranularityH1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.FetchHistory(ctx, tt.instrument, tt.start, tt.end, tt.granularity)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
		})
	}
}

func TestFetchHistory_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessage":"Insufficient authorization to perform request."}`))
	}))
	defer srv.Close()

	o, err := New(Config{BaseURL: srv.URL, Token: "wrong"})
	require.NoError(t, err)

	_, err = o.FetchHistory(context.Background(), "EUR_USD", t0, t0.Add(time.Hour), core.GranularityH1)
	require.ErrorIs(t, err, core.ErrCollectorFailed)
	assert.Contains(t, err.Error(), "Insufficient authorization")
}

func TestFetchHistory_ContextCancelled(t *testing.T) {
	var requests atomic.Int32
	srv := candleServer(t, 10, &requests)
	defer srv.Close()

	o, err := New(Config{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.FetchHistory(ctx, "EUR_USD", t0, t0.Add(time.Hour), core.GranularityH1)
	assert.ErrorIs(t, err, context.Canceled)
}
