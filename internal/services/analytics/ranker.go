package analytics

import (
    "context"
    "sort"
    "time"

    "Tradia/internal/domain/models"
    domsvc "Tradia/internal/domain/service"
    ametrics "Tradia/internal/service/metrics"
    "Tradia/pkg/config"
)

// StarRanker ranks signal candidates by model probability and assigns
// a 1-5 star quality grade. The top five become top picks.
type StarRanker struct {
    topPicks int
}

func NewStarRanker(topPicks int) *StarRanker {
    if topPicks <= 0 {
        topPicks = 5
    }
    return &StarRanker{topPicks: topPicks}
}

func (r *StarRanker) Rank(_ context.Context, candidates []*models.Signal) ([]models.RankedSignal, error) {
    sorted := make([]*models.Signal, len(candidates))
    copy(sorted, candidates)
    sort.SliceStable(sorted, func(i, j int) bool {
        return sorted[i].MLProba > sorted[j].MLProba
    })

    ranked := make([]models.RankedSignal, 0, len(sorted))
    for i, s := range sorted {
        rank := i + 1
        ranked = append(ranked, models.RankedSignal{
            Ticker:  s.Ticker,
            Rank:    rank,
            Stars:   starsFor(s.MLProba),
            TopPick: rank <= r.topPicks,
            Reason:  reasonFor(s),
        })
    }
    return ranked, nil
}

func starsFor(proba float64) int {
    switch {
    case proba >= 0.80:
        return 5
    case proba >= 0.70:
        return 4
    case proba >= 0.60:
        return 3
    case proba >= 0.55:
        return 2
    default:
        return 1
    }
}

func reasonFor(s *models.Signal) string {
    if len(s.StrategyTags) > 0 {
        return s.StrategyTags[0]
    }
    if len(s.CandleTags) > 0 {
        return s.CandleTags[0]
    }
    return "momentum"
}

var _ domsvc.SignalRanker = (*StarRanker)(nil)

// HTTPRanker asks the external model service to rank candidates. A failed
// or empty response degrades to the local star ranking so a scan never
// dies on the ranker.
type HTTPRanker struct {
    base  *HTTPServiceBase
    local *StarRanker
}

func NewHTTPRanker(cfg *config.Config) *HTTPRanker {
    ametrics.Register()
    return &HTTPRanker{base: NewHTTPServiceBase(cfg), local: NewStarRanker(5)}
}

type rankCandidate struct {
    Ticker     string   `json:"ticker"`
    ProbaUp    float64  `json:"proba_up"`
    Tags       []string `json:"tags"`
    Support    float64  `json:"support"`
    Resistance float64  `json:"resistance"`
}

type rankReq struct {
    Candidates []rankCandidate `json:"candidates"`
}

type rankResp struct {
    Ranked []struct {
        Ticker  string `json:"ticker"`
        Rank    int    `json:"rank"`
        Stars   int    `json:"stars"`
        TopPick bool   `json:"top_pick"`
        Reason  string `json:"reason"`
    } `json:"ranked"`
}

func (r *HTTPRanker) Rank(ctx context.Context, candidates []*models.Signal) ([]models.RankedSignal, error) {
    if len(candidates) == 0 {
        return nil, nil
    }

    req := rankReq{Candidates: make([]rankCandidate, 0, len(candidates))}
    for _, c := range candidates {
        tags := make([]string, 0, len(c.StrategyTags)+len(c.CandleTags))
        tags = append(tags, c.StrategyTags...)
        tags = append(tags, c.CandleTags...)
        req.Candidates = append(req.Candidates, rankCandidate{
            Ticker:     c.Ticker,
            ProbaUp:    c.MLProba,
            Tags:       tags,
            Support:    c.Support,
            Resistance: c.Resistance,
        })
    }

    var rr rankResp
    start := time.Now()
    err := r.base.PostJSONWithRetry(ctx, "/rank", req, &rr, 2)
    ametrics.AnalyticsLatency.WithLabelValues("rank").Observe(time.Since(start).Seconds())
    if err != nil || len(rr.Ranked) == 0 {
        ametrics.AnalyticsErrors.WithLabelValues("rank").Inc()
        return r.local.Rank(ctx, candidates)
    }

    ranked := make([]models.RankedSignal, 0, len(rr.Ranked))
    for _, v := range rr.Ranked {
        ranked = append(ranked, models.RankedSignal{
            Ticker:  v.Ticker,
            Rank:    v.Rank,
            Stars:   v.Stars,
            TopPick: v.TopPick,
            Reason:  v.Reason,
        })
    }
    return ranked, nil
}

var _ domsvc.SignalRanker = (*HTTPRanker)(nil)
