package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetOHLCVParsesAndOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v2/aggs/ticker/AAPL/range/1/day/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Fatalf("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		// deliberately out of order
		_, _ = w.Write([]byte(`{"ticker":"AAPL","status":"OK","results":[
			{"o":11,"h":12,"l":10,"c":11.5,"v":200,"t":1750032000000},
			{"o":10,"h":11,"l":9,"c":10.5,"v":100,"t":1749945600000}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	bars, err := c.GetOHLCV(context.Background(), "AAPL", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].TS.Before(bars[1].TS) {
		t.Fatalf("bars not ordered oldest first")
	}
	if bars[0].Close != 10.5 || bars[1].Close != 11.5 {
		t.Fatalf("unexpected closes %v %v", bars[0].Close, bars[1].Close)
	}
	if bars[0].Symbol != "AAPL" {
		t.Fatalf("symbol not set")
	}
}

func TestGetOHLCVEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker":"XXXX","status":"OK","results":[]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	if _, err := c.GetOHLCV(context.Background(), "XXXX", 30); err == nil {
		t.Fatalf("expected error for empty results")
	}
}

func TestGetOHLCVUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ticker":"AAPL","status":"OK","results":[
			{"o":10,"h":11,"l":9,"c":10.5,"v":100,"t":1749945600000}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	if _, err := c.GetOHLCV(context.Background(), "AAPL", 30); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := c.GetOHLCV(context.Background(), "AAPL", 30); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits)
	}
}

func TestGetTopMoversSortedAndLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tickers":[
			{"ticker":"AAA","todaysChangePerc":3.1,"day":{"c":10,"v":100}},
			{"ticker":"BBB","todaysChangePerc":8.5,"day":{"c":20,"v":200}},
			{"ticker":"CCC","todaysChangePerc":5.2,"day":{"c":30,"v":300}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	movers, err := c.GetTopMovers(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(movers) != 2 {
		t.Fatalf("expected 2 movers, got %d", len(movers))
	}
	if movers[0].Ticker != "BBB" || movers[1].Ticker != "CCC" {
		t.Fatalf("unexpected order %v", movers)
	}
}

func TestGetCompanyNameFallsBackToTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	name, err := c.GetCompanyName(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("lookup failure should not error: %v", err)
	}
	if name != "AAPL" {
		t.Fatalf("expected ticker fallback, got %q", name)
	}
}

func TestGetCompanyNameCached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"name":"Apple Inc."}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	for i := 0; i < 2; i++ {
		name, err := c.GetCompanyName(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "Apple Inc." {
			t.Fatalf("unexpected name %q", name)
		}
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits)
	}
}

func TestGetGroupedDailyParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v2/aggs/grouped/locale/us/market/stocks/2026-08-28") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("adjusted") != "true" {
			t.Fatalf("missing adjusted param")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"T":"AAPL","o":230,"h":233,"l":229,"c":232,"v":50000000,"vw":231.5},
			{"T":"MSFT","o":410,"h":415,"l":408,"c":414,"v":20000000,"vw":412}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	grouped, err := c.GetGroupedDaily(context.Background(), "2026-08-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(grouped))
	}
	if grouped[0].Ticker != "AAPL" || grouped[0].Close != 232 || grouped[0].VWAP != 231.5 {
		t.Fatalf("unexpected row %+v", grouped[0])
	}
}

func TestGetGroupedDailyNonTradingDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","queryCount":0}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)
	grouped, err := c.GetGroupedDaily(context.Background(), "2026-08-30")
	if err != nil {
		t.Fatalf("non-trading day should not error: %v", err)
	}
	if len(grouped) != 0 {
		t.Fatalf("expected no rows, got %d", len(grouped))
	}
}
