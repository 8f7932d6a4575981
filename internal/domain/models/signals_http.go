package models

// Requests for the signals read API. Defined in domain for consistency and reuse.

type LatestSignalsRequest struct {
	Limit   int  `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	OnlyTop bool `query:"only_top" json:"only_top"`
}

type TopSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=50"`
}

type SignalsByDayRequest struct {
	Date string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
	// nil means unspecified; the handler defaults to top picks only. A
	// struct-tag default would clobber an explicit only_top=false, since
	// defaults run after binding.
	OnlyTop *bool `query:"only_top" json:"only_top"`
	Limit   int   `query:"limit" json:"limit" default:"600" validate:"gte=1,lte=2000"`
}

type SearchSignalsRequest struct {
	Ticker  string `query:"ticker" json:"ticker" validate:"required,min=1"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=2000"`
	TopOnly bool   `query:"top_only" json:"top_only"`
}

type SignalHistoryRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,min=1"`
}
