package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"heat_engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestFetchCandles_Pagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		after := r.URL.Query().Get("after")
		w.Header().Set("Content-Type", "application/json")
		if after == "0" {
			// полная страница — клиент должен прийти за следующей
			rows := ""
			for i := 0; i < 300; i++ {
				if i > 0 {
					rows += ","
				}
				ts := 1000 + i*1000
				rows += fmt.Sprintf(`["%d","1","2","0.5","1.5","10"]`, ts)
			}
			fmt.Fprintf(w, `{"code":"0","data":[%s]}`, rows)
			return
		}
		fmt.Fprint(w, `{"code":"0","data":[["400000","1","2","0.5","1.5","10"]]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.FetchCandles(context.Background(), "BTC-USDT", "1s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(got) != 301 {
		t.Fatalf("candles = %d, want 301", len(got))
	}
	if got[0].Timestamp != 1000 || got[300].Timestamp != 400000 {
		t.Errorf("order: first=%d last=%d", got[0].Timestamp, got[300].Timestamp)
	}
	if got[0].Resolution != "1s" {
		t.Errorf("resolution = %q", got[0].Resolution)
	}
}

func TestFetchCandles_RetriesAfterRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"code":"0","data":[["1000","1","2","0.5","1.5","10"]]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.FetchCandles(context.Background(), "BTC-USDT", "1s", 0)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(got) != 1 {
		t.Fatalf("candles = %d, want 1", len(got))
	}
}

func TestFetchCandles_RateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.FetchCandles(context.Background(), "BTC-USDT", "1s", 0)

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want RateLimitError", err)
	}
}

func TestFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"last":"50123.5"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	px, err := c.FetchTicker(context.Background(), "BTC-USDT")
	if err != nil {
		t.Fatal(err)
	}
	if px != 50123.5 {
		t.Errorf("price = %v", px)
	}
}
