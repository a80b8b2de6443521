package models

import (
	"math"
	"time"
)

// PriceBar is one daily OHLCV record keyed by (symbol, date).
// Open is zero when the source did not provide it.
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// VixBar is one daily volatility-index close.
type VixBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// BreadthBar is one day of NYSE up/down volume.
type BreadthBar struct {
	Date       time.Time `json:"date"`
	UpVolume   float64   `json:"up_volume"`
	DownVolume float64   `json:"down_volume"`
}

// Opt converts a computed value to an optional one. NaN and infinities become nil.
func Opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Val returns the value behind p, or NaN when p is nil.
func Val(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
