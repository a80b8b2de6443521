package util

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return Round(v, 2)
}

// Pct renders a ratio already in percent with two decimals, or "n/a".
func Pct(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(Round2(*p), 'f', 2, 64) + "%"
}

// Num renders an optional value with two decimals, or "n/a".
func Num(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}
