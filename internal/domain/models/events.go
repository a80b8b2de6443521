package models

import "time"

type EventType string

const (
	EventSignal            EventType = "signal"
	EventPositionOpened    EventType = "position_opened"
	EventPositionReduced   EventType = "position_reduced"
	EventTradeClosed       EventType = "trade_closed"
	EventBacktestCompleted EventType = "backtest_completed"
)

// Event is a decision or ledger change published to downstream consumers.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Key       string      `json:"key"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MarketDataMessage is the ingest envelope for externally acquired data.
type MarketDataMessage struct {
	Kind       string  `json:"kind"` // bar, vix, breadth
	Symbol     string  `json:"symbol,omitempty"`
	Date       string  `json:"date"`
	Open       float64 `json:"open,omitempty"`
	High       float64 `json:"high,omitempty"`
	Low        float64 `json:"low,omitempty"`
	Close      float64 `json:"close,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	UpVolume   float64 `json:"up_volume,omitempty"`
	DownVolume float64 `json:"down_volume,omitempty"`
}
