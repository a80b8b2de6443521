package models

// Requests for the HTTP API. Defined in domain for reuse by the CLI.

type TradesRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type SignalRequest struct {
	Date string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type EnterRequest struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
	Date      string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Direction string  `json:"direction" default:"LONG" validate:"oneof=LONG LONG_INVERSE"`
	Tier      int     `json:"tier" default:"1" validate:"gte=1,lte=4"`
	Shares    float64 `json:"shares" validate:"gte=0"`
	Capital   float64 `json:"capital" validate:"gte=0"`
}

type ExitRequest struct {
	Price   float64 `json:"price" validate:"gt=0"`
	Date    string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Partial bool    `json:"partial"`
	Reason  string  `json:"reason" default:"MANUAL" validate:"oneof=MANUAL STOP_HIT STAGE_CHANGE TARGET_HIT VIX_EMERGENCY"`
}

type StopRequest struct {
	Stop float64 `json:"stop" validate:"gt=0"`
	Date string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type CapitalRequest struct {
	Cash float64 `json:"cash" validate:"gt=0"`
}

type BacktestRequest struct {
	Start   string  `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string  `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Capital float64 `json:"capital" default:"100000" validate:"gt=0"`
}
