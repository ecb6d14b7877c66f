package prices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletwatcher/internal/core"
	"walletwatcher/internal/log"
)

const samplePayload = `{
  "currency": "INR",
  "gold": {"18k": "₹5,100.00", "22k": "₹6,200.00", "24k": "₹6,745.50", "unit": "1g"},
  "silver": {"price": "80,500", "unit": "1kg"},
  "platinum": {"price": "n/a", "unit": "10g"},
  "nifty": 22145.6
}`

func TestDecodeAndSamples(t *testing.T) {
	q, err := DecodeQuote([]byte(samplePayload))
	require.NoError(t, err)
	assert.Equal(t, "INR", q.Currency)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	got := Samples(q, at)

	require.Len(t, got, 3)
	assert.Equal(t, core.AssetPrice{Symbol: "GOLD", Date: at, Price: 6745.5}, got[0])
	assert.Equal(t, "SILVER", got[1].Symbol)
	assert.InDelta(t, 80500, got[1].Price, 1e-9)
	assert.Equal(t, "NIFTY", got[2].Symbol)
	assert.InDelta(t, 22145.6, got[2].Price, 1e-9)
}

func TestFigureValue(t *testing.T) {
	tests := []struct {
		in     Figure
		want   float64
		wantOK bool
	}{
		{"1234.5", 1234.5, true},
		{"₹1,234.56", 1234.56, true},
		{"24,741", 24741, true},
		{"", 0, false},
		{"--", 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			v, ok := tt.in.Value()
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	q, err := NewClient(srv.URL, time.Second, log.Discard()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Figure("₹6,745.50"), q.Gold.K24)
}

func TestClientFetchUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, log.Discard()).FetchRaw(context.Background())
	var upstream *core.UpstreamFetchError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
}

func TestCachedFeedSharesOneRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	feed := NewCachedFeed(NewClient(srv.URL, time.Second, log.Discard()), time.Hour)
	ctx := context.Background()

	_, err := feed.Raw(ctx)
	require.NoError(t, err)
	samples, err := feed.FetchSamples(ctx, time.Now())
	require.NoError(t, err)

	assert.Len(t, samples, 3)
	assert.Equal(t, int32(1), hits.Load())
}
