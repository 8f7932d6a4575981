package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Tradia/internal/domain/models"
	"Tradia/pkg/config"
)

func TestRankOrdersByProbability(t *testing.T) {
	candidates := []*models.Signal{
		{Ticker: "AAA", MLProba: 0.61},
		{Ticker: "BBB", MLProba: 0.85},
		{Ticker: "CCC", MLProba: 0.72},
	}
	ranked, err := NewStarRanker(5).Rank(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranked[0].Ticker != "BBB" || ranked[1].Ticker != "CCC" || ranked[2].Ticker != "AAA" {
		t.Fatalf("unexpected order %v", ranked)
	}
	if ranked[0].Rank != 1 || ranked[2].Rank != 3 {
		t.Fatalf("ranks not sequential: %v", ranked)
	}
}

func TestStarsThresholds(t *testing.T) {
	cases := []struct {
		proba float64
		stars int
	}{
		{0.85, 5},
		{0.80, 5},
		{0.75, 4},
		{0.65, 3},
		{0.56, 2},
		{0.40, 1},
	}
	for _, c := range cases {
		if got := starsFor(c.proba); got != c.stars {
			t.Fatalf("proba %v: got %d stars, want %d", c.proba, got, c.stars)
		}
	}
}

func TestTopPickCut(t *testing.T) {
	candidates := []*models.Signal{
		{Ticker: "A", MLProba: 0.9},
		{Ticker: "B", MLProba: 0.8},
		{Ticker: "C", MLProba: 0.7},
	}
	ranked, err := NewStarRanker(2).Rank(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ranked[0].TopPick || !ranked[1].TopPick {
		t.Fatalf("expected first two as top picks")
	}
	if ranked[2].TopPick {
		t.Fatalf("rank 3 should not be a top pick")
	}
}

func TestReasonPrefersStrategyTag(t *testing.T) {
	s := &models.Signal{StrategyTags: []string{"RSI Oversold"}, CandleTags: []string{"Hammer"}}
	if got := reasonFor(s); got != "RSI Oversold" {
		t.Fatalf("unexpected reason %q", got)
	}
	s = &models.Signal{CandleTags: []string{"Hammer"}}
	if got := reasonFor(s); got != "Hammer" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := reasonFor(&models.Signal{}); got != "momentum" {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestLocalScorerOversoldIsBullish(t *testing.T) {
	scorer := NewLocalEdgeScorer()
	oversold, err := scorer.Predict(context.Background(), "AAA", map[string]float64{"rsi": 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overbought, err := scorer.Predict(context.Background(), "AAA", map[string]float64{"rsi": 80})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oversold.ProbaUp <= overbought.ProbaUp {
		t.Fatalf("oversold (%v) should score above overbought (%v)", oversold.ProbaUp, overbought.ProbaUp)
	}
	if oversold.ProbaUp <= 0 || oversold.ProbaUp >= 1 {
		t.Fatalf("probability out of range: %v", oversold.ProbaUp)
	}
}

func TestLocalScorerNeutralNearHalf(t *testing.T) {
	score, err := NewLocalEdgeScorer().Predict(context.Background(), "AAA", map[string]float64{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.ProbaUp != 0.5 {
		t.Fatalf("empty features should be neutral, got %v", score.ProbaUp)
	}
	if score.Model != "heuristic-v1" {
		t.Fatalf("unexpected model %q", score.Model)
	}
}

func rankerConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Analytics.ModelServiceURL = url
	cfg.Analytics.Timeout = time.Second
	return cfg
}

func TestHTTPRankerParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req rankReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Candidates) != 2 || req.Candidates[0].Ticker != "AAA" {
			t.Errorf("unexpected candidates %+v", req.Candidates)
		}
		_, _ = w.Write([]byte(`{"ranked":[
			{"ticker":"BBB","rank":1,"stars":5,"top_pick":true,"reason":"breakout"},
			{"ticker":"AAA","rank":2,"stars":3,"top_pick":false,"reason":"oversold bounce"}
		]}`))
	}))
	defer srv.Close()

	ranker := NewHTTPRanker(rankerConfig(srv.URL))
	ranked, err := ranker.Rank(context.Background(), []*models.Signal{
		{Ticker: "AAA", MLProba: 0.65, StrategyTags: []string{"RSI Oversold"}},
		{Ticker: "BBB", MLProba: 0.9},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 2 || ranked[0].Ticker != "BBB" || !ranked[0].TopPick {
		t.Fatalf("unexpected ranking %+v", ranked)
	}
	if ranked[1].Reason != "oversold bounce" {
		t.Fatalf("unexpected reason %q", ranked[1].Reason)
	}
}

func TestHTTPRankerFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ranker := NewHTTPRanker(rankerConfig(srv.URL))
	ranked, err := ranker.Rank(context.Background(), []*models.Signal{
		{Ticker: "AAA", MLProba: 0.9},
		{Ticker: "BBB", MLProba: 0.6},
	})
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if len(ranked) != 2 || ranked[0].Ticker != "AAA" || ranked[0].Stars != 5 || !ranked[0].TopPick {
		t.Fatalf("expected local star ranking, got %+v", ranked)
	}
}

func TestHTTPRankerEmptyCandidates(t *testing.T) {
	ranker := NewHTTPRanker(rankerConfig("http://127.0.0.1:0"))
	ranked, err := ranker.Rank(context.Background(), nil)
	if err != nil || ranked != nil {
		t.Fatalf("empty input should be a no-op, got %v %v", ranked, err)
	}
}
