package models

import "time"

// Outcome statuses.
const (
	OutcomePending = "PENDING"
	OutcomeMet     = "MET"
	OutcomeNotMet  = "NOT_MET"
)

// Signal directions.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Signal is a scan result: a candidate trade setup on one ticker.
type Signal struct {
	ID            string
	CreatedAt     time.Time
	Ticker        string
	CompanyName   string
	Sector        string
	Timeframe     string
	Direction     string
	PriceAtSignal float64
	TargetPrice   float64
	StopLoss      float64
	MLProba       float64
	Stars         int
	Rank          int
	TopPick       bool
	HorizonDays   int
	WindowTag     string // scan window, "YYYY-MM-DD HH:MM"
	StrategyTags  []string
	CandleTags    []string
	Support       float64
	Resistance    float64
	Indicators    map[string]float64
}

// Outcome tracks whether a signal reached its target before the deadline.
type Outcome struct {
	ID          string
	SignalID    string
	Status      string
	Deadline    time.Time
	TargetMetAt *time.Time
	CreatedAt   time.Time
}

// EdgeScore is the model service's probability estimate for a feature vector.
type EdgeScore struct {
	Ticker     string
	Timestamp  time.Time
	ProbaUp    float64
	Confidence float64
	Model      string
}

// RankedSignal is a ranker verdict for one candidate signal.
type RankedSignal struct {
	Ticker  string
	Rank    int
	Stars   int
	TopPick bool
	Reason  string
}
