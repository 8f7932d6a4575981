package models

import "time"

// Bar represents an OHLCV record for one time step.
type Bar struct {
	TS     time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Trade is a single trade print from the live market stream.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// GroupedBar is one row of the whole-market grouped daily aggregates.
type GroupedBar struct {
	Ticker string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	VWAP   float64
}

// Mover is a top gainer/loser snapshot row from the market data provider.
type Mover struct {
	Ticker    string
	Price     float64
	ChangePct float64
	Volume    float64
}
