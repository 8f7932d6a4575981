package models

import "time"

// SignalView is the serialized read-API shape of a signal: commonly used
// indicator fields lifted to the top level, plus risk/reward derived from
// entry, target and stop. No transport concerns here.
type SignalView struct {
	ID            string             `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	Ticker        string             `json:"ticker"`
	CompanyName   string             `json:"company_name,omitempty"`
	Sector        string             `json:"sector,omitempty"`
	Timeframe     string             `json:"timeframe,omitempty"`
	Direction     string             `json:"direction"`
	MLProba       float64            `json:"ml_proba"`
	Support       float64            `json:"support,omitempty"`
	Resistance    float64            `json:"resistance,omitempty"`
	AllTags       []string           `json:"all_tags"`
	StrategyTags  []string           `json:"strategy_tags"`
	CandleTags    []string           `json:"candle_tags"`
	RiskReward    *float64           `json:"risk_reward,omitempty"` // reward/risk multiple
	RewardPct     *float64           `json:"reward_pct,omitempty"`
	RiskPct       *float64           `json:"risk_pct,omitempty"`
	PriceAtSignal float64            `json:"price_at_signal"`
	TargetPrice   float64            `json:"target_price"`
	StopLoss      float64            `json:"stop_loss"`
	Stars         int                `json:"stars"`
	Rank          int                `json:"rank"`
	TopPick       bool               `json:"is_top_pick"`
	HorizonDays   int                `json:"horizon_days"`
	WindowTag     string             `json:"window_tag,omitempty"`
	Indicators    map[string]float64 `json:"indicators,omitempty"`
	Outcome       *OutcomeView       `json:"outcome,omitempty"`
}

// OutcomeView is the outcome section of a SignalView.
type OutcomeView struct {
	Status      string     `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	TargetMetAt *time.Time `json:"target_met_at,omitempty"`
}

// StatsSummary aggregates signal and outcome counts for the stats endpoint.
type StatsSummary struct {
	Signals         int64    `json:"signals"`
	TopPicks        int64    `json:"top_picks"`
	Met             int64    `json:"met"`
	NotMet          int64    `json:"not_met"`
	Pending         int64    `json:"pending"`
	WinRatePct      *float64 `json:"win_rate_pct,omitempty"`
	AvgDaysToTarget *float64 `json:"avg_days_to_target,omitempty"`
}
