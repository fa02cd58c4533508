package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"okx-signal-sentry/internal/storage"
	"okx-signal-sentry/pkg/types"
)

const tickersBody = `{"code":"0","msg":"","data":[
{"instId":"BTC-USDT","last":"43250.1","ts":"1704067200000"},
{"instId":"ETH-USDT","last":"2300.5","ts":"1704067200000"},
{"instId":"ETH-BTC","last":"0.053","ts":"1704067200000"},
{"instId":"BAD-USDT","last":"0","ts":"1704067200000"}]}`

func newTestFetcher(url string, symbols []string) (*DataFetcher, *storage.StateManager) {
	sm := storage.NewStateManager(types.RedisConfig{}, time.Hour)
	f := NewDataFetcher(sm, types.NetworkConfig{Timeout: 5 * time.Second}, time.Minute, symbols)
	f.baseURL = url
	return f, sm
}

func TestFetchAndStore_AllUSDTPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/market/tickers" || r.URL.Query().Get("instType") != "SPOT" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(tickersBody))
	}))
	defer srv.Close()

	f, sm := newTestFetcher(srv.URL, nil)
	if n := f.FetchAndStore(context.Background()); n != 2 {
		t.Fatalf("stored = %d, want 2", n)
	}
	latest, ok := sm.Latest("BTC-USDT")
	if !ok || latest.Price != 43250.1 || latest.Timestamp.UnixMilli() != 1704067200000 {
		t.Fatalf("latest = %+v", latest)
	}
	if _, ok := sm.Latest("ETH-BTC"); ok {
		t.Error("non-USDT pair stored")
	}
}

func TestFetchAndStore_ConfiguredSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tickersBody))
	}))
	defer srv.Close()

	f, sm := newTestFetcher(srv.URL, []string{"ETH-USDT"})
	if n := f.FetchAndStore(context.Background()); n != 1 {
		t.Fatalf("stored = %d, want 1", n)
	}
	if symbols := sm.GetAllSymbols(); len(symbols) != 1 || symbols[0] != "ETH-USDT" {
		t.Fatalf("symbols = %v", symbols)
	}
}

func TestGetTickers_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(tickersBody))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(srv.URL, nil)
	tickers, err := f.getTickers(context.Background())
	if err != nil {
		t.Fatalf("getTickers: %v", err)
	}
	if len(tickers) != 4 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("tickers = %d, calls = %d", len(tickers), calls)
	}
}

func TestGetTickers_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"50011","msg":"rate limit","data":[]}`))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(srv.URL, nil)
	_, err := f.getTickers(context.Background())
	if err == nil || !strings.Contains(err.Error(), "50011") {
		t.Fatalf("err = %v, want API error 50011", err)
	}
}
