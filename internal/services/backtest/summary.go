package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"AssetRevest/internal/domain/models"
	"AssetRevest/internal/domain/service"
	"AssetRevest/pkg/util"
)

// ErrNoPrices is returned when the benchmark has no closes in the range.
var ErrNoPrices = errors.New("no prices in range")

type Summary struct {
	TotalTrades       int                       `json:"total_trades"`
	TradesPerYear     float64                   `json:"trades_per_year"`
	WinRate           float64                   `json:"win_rate"`
	AvgWin            float64                   `json:"avg_win"`
	AvgLoss           float64                   `json:"avg_loss"`
	BestTrade         float64                   `json:"best_trade"`
	WorstTrade        float64                   `json:"worst_trade"`
	TotalReturnPct    float64                   `json:"total_return_pct"`
	MaxDrawdownPct    float64                   `json:"max_drawdown_pct"`
	AvgHoldingDays    float64                   `json:"avg_holding_days"`
	MedianHoldingDays float64                   `json:"median_holding_days"`
	CashPct           float64                   `json:"cash_pct"`
	ExitReasons       map[models.ExitReason]int `json:"exit_reasons"`
	Years             float64                   `json:"years"`
	TotalDays         int                       `json:"total_days"`
}

// Summary computes the run statistics. A run without trades still reports
// return, drawdown and cash time.
func (r *Result) Summary() Summary {
	sum := Summary{ExitReasons: map[models.ExitReason]int{}, TotalDays: len(r.DailyLog)}

	years := r.End.Sub(r.Start).Hours() / 24 / 365.25
	if years < 0.5 {
		years = 0.5
	}
	sum.Years = util.Round(years, 1)

	if r.InitialCapital > 0 {
		sum.TotalReturnPct = util.Round2((r.FinalCapital - r.InitialCapital) / r.InitialCapital * 100)
	}
	curve := make([]float64, len(r.DailyLog))
	cash := 0
	for i, e := range r.DailyLog {
		curve[i] = e.Equity
		if e.Status == models.StatusCash {
			cash++
		}
	}
	if len(curve) > 0 {
		sum.MaxDrawdownPct = util.Round2(MaxDrawdown(curve[0], curve))
		sum.CashPct = util.Round(float64(cash)/float64(len(curve))*100, 1)
	}

	n := len(r.Trades)
	if n == 0 {
		return sum
	}
	sum.TotalTrades = n
	sum.TradesPerYear = util.Round(float64(n)/years, 1)

	var wins, losses []float64
	var holds []float64
	best, worst := r.Trades[0].PnLPct, r.Trades[0].PnLPct
	for _, t := range r.Trades {
		if t.PnLPct > 0 {
			wins = append(wins, t.PnLPct)
		} else {
			losses = append(losses, t.PnLPct)
		}
		if t.HoldingDays > 0 {
			holds = append(holds, float64(t.HoldingDays))
		}
		if t.PnLPct > best {
			best = t.PnLPct
		}
		if t.PnLPct < worst {
			worst = t.PnLPct
		}
		sum.ExitReasons[t.ExitReason]++
	}
	sum.WinRate = util.Round(float64(len(wins))/float64(n)*100, 1)
	sum.AvgWin = util.Round2(mean(wins))
	sum.AvgLoss = util.Round2(mean(losses))
	sum.BestTrade = util.Round2(best)
	sum.WorstTrade = util.Round2(worst)
	sum.AvgHoldingDays = util.Round(mean(holds), 1)
	sum.MedianHoldingDays = util.Round(median(holds), 1)
	return sum
}

// Benchmark is a buy-and-hold of one symbol over the backtest range.
type Benchmark struct {
	Symbol         string  `json:"symbol"`
	StartPrice     float64 `json:"start_price"`
	EndPrice       float64 `json:"end_price"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	FinalCapital   float64 `json:"final_capital"`
}

// BuyAndHold buys symbol at the first close on or after from and marks it at
// the last close on or before to.
func BuyAndHold(ctx context.Context, bars service.BarSource, symbol string, from, to time.Time, capital float64) (*Benchmark, error) {
	series, err := bars.GetBarsInRange(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", symbol, err)
	}
	closes := make([]float64, 0, len(series))
	for _, b := range series {
		if b.Close > 0 {
			closes = append(closes, b.Close)
		}
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("benchmark %s: %w", symbol, ErrNoPrices)
	}
	first, last := closes[0], closes[len(closes)-1]
	final := capital / first * last
	return &Benchmark{
		Symbol:         symbol,
		StartPrice:     util.Round2(first),
		EndPrice:       util.Round2(last),
		TotalReturnPct: util.Round2((final - capital) / capital * 100),
		MaxDrawdownPct: util.Round2(MaxDrawdown(first, closes)),
		FinalCapital:   util.Round2(final),
	}, nil
}

// MaxDrawdown is the largest peak-to-trough fall of values, in percent,
// with the running peak seeded at start.
func MaxDrawdown(start float64, values []float64) float64 {
	peak, worst := start, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vs {
		total += v
	}
	return total / float64(len(vs))
}

func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
