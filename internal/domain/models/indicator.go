package models

import "time"

// IndicatorSnapshot holds every derived indicator for one (symbol, date).
// A nil field means the value is undefined on that date.
type IndicatorSnapshot struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`

	SMA5   *float64 `json:"sma_5"`
	SMA20  *float64 `json:"sma_20"`
	SMA50  *float64 `json:"sma_50"`
	SMA150 *float64 `json:"sma_150"`
	SMA200 *float64 `json:"sma_200"`

	Slope50  *float64 `json:"slope_50"`
	Slope150 *float64 `json:"slope_150"`
	Slope200 *float64 `json:"slope_200"`

	Bollinger Bollinger `json:"bollinger"`

	RelativeStrength *float64 `json:"relative_strength"`
	ATR              *float64 `json:"atr_14"`
}

// Bollinger holds the band values for one date.
type Bollinger struct {
	Middle    *float64 `json:"middle"`
	Upper     *float64 `json:"upper"`
	Lower     *float64 `json:"lower"`
	Bandwidth *float64 `json:"bandwidth"`
	PercentB  *float64 `json:"percent_b"`
}

type VixRegime string

const (
	VixLow      VixRegime = "LOW"
	VixNormal   VixRegime = "NORMAL"
	VixElevated VixRegime = "ELEVATED"
	VixHigh     VixRegime = "HIGH"
	VixExtreme  VixRegime = "EXTREME"
)

func (r VixRegime) String() string { return string(r) }

// VixTrend is RISING or FALLING, empty while either SMA is undefined.
type VixTrend string

const (
	VixRising  VixTrend = "RISING"
	VixFalling VixTrend = "FALLING"
	VixUnknown VixTrend = ""
)

func (t VixTrend) String() string {
	if t == VixUnknown {
		return "UNKNOWN"
	}
	return string(t)
}

// VixSnapshot is the classified volatility index for one date.
type VixSnapshot struct {
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	Regime         VixRegime `json:"regime"`
	SMAFast        *float64  `json:"sma_fast"`
	SMASlow        *float64  `json:"sma_slow"`
	Trend          VixTrend  `json:"trend"`
	DailyChangePct *float64  `json:"daily_change_pct"`
	Spike          bool      `json:"spike"`
}

// VolumeSnapshot holds the breadth ratios for one date.
type VolumeSnapshot struct {
	Date         time.Time `json:"date"`
	PanicRatio   *float64  `json:"panic_ratio"`
	FomoRatio    *float64  `json:"fomo_ratio"`
	PanicRatioMA *float64  `json:"panic_ratio_ma"`
	FomoRatioMA  *float64  `json:"fomo_ratio_ma"`
}
