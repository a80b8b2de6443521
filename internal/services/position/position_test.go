package position

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	"AssetRevest/pkg/config"
)

func strategy() config.Strategy {
	return config.Default().Strategy
}

func f(v float64) *float64 { return &v }

// monday is a Monday.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func TestLevelsATRClamp(t *testing.T) {
	s := strategy()

	tests := []struct {
		name string
		atr  *float64
		want float64
	}{
		{"within bounds", f(2), 94.0},
		{"capped at max", f(20), 90.0},
		{"floored at min", f(0.5), 96.0},
		{"no atr uses fixed stop", nil, 95.0},
		{"zero atr uses fixed stop", f(0), 95.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := TradeParams(100, models.Long, models.Stage2, tt.atr, s)
			assert.InDelta(t, tt.want, p.Stop, 1e-9)
			assert.Equal(t, models.TradeStandard, p.Type)
		})
	}

	s.ATR.Enabled = false
	assert.InDelta(t, 95.0, TradeParams(100, models.Long, models.Stage2, f(2), s).Stop, 1e-9)
}

func TestSelectPlan(t *testing.T) {
	s := strategy()

	std := TradeParams(100, models.Long, models.Stage2, nil, s)
	assert.InDelta(t, 102.0, std.Target, 1e-9)
	assert.InDelta(t, 0.03, std.TrailingPct, 1e-12)
	assert.InDelta(t, 0.25, std.PartialExitPct, 1e-12)

	st3 := TradeParams(100, models.Long, models.Stage3, nil, s)
	assert.Equal(t, models.TradeStage3, st3.Type)
	assert.InDelta(t, 95.0, st3.Stop, 1e-9)
	assert.InDelta(t, 101.5, st3.Target, 1e-9)
	assert.InDelta(t, 0.50, st3.PartialExitPct, 1e-12)

	inv := TradeParams(100, models.LongInverse, models.Stage4, nil, s)
	assert.Equal(t, models.TradeInverse, inv.Type)
	assert.InDelta(t, 96.0, inv.Stop, 1e-9)
	assert.InDelta(t, 101.5, inv.Target, 1e-9)
	assert.InDelta(t, 0.02, inv.TrailingPct, 1e-12)

	// inverse ATR stops are capped at 1.5x the fixed inverse stop
	inv = TradeParams(100, models.LongInverse, models.Stage4, f(20), s)
	assert.InDelta(t, 94.0, inv.Stop, 1e-9)
}

func openPosition() models.Position {
	return models.Position{
		Symbol:         "SPY",
		Underlying:     "SPY",
		Direction:      models.Long,
		TradeType:      models.TradeStandard,
		EntryDate:      monday,
		EntryPrice:     100,
		Shares:         10,
		Stop:           95,
		Target:         102,
		TrailingPct:    0.03,
		PartialExitPct: 0.25,
	}
}

func TestEvaluatePriority(t *testing.T) {
	s := strategy()
	later := monday.AddDate(0, 0, 14)
	emergency := &models.VixSnapshot{Close: 45, Regime: models.VixExtreme, Trend: models.VixRising}

	tests := []struct {
		name   string
		pos    func(p *models.Position)
		day    Day
		action models.ExitAction
		reason models.ExitReason
	}{
		{"vix emergency beats target", nil, Day{Date: later, Close: 105, Vix: emergency, Stage: models.Stage2}, models.ActionFullExit, models.ExitVixEmergency},
		{"vix emergency beats stop", nil, Day{Date: later, Close: 90, Vix: emergency, Stage: models.Stage4}, models.ActionFullExit, models.ExitVixEmergency},
		{"high vix falling is no emergency", nil, Day{Date: later, Close: 100, Vix: &models.VixSnapshot{Close: 45, Trend: models.VixFalling}, Stage: models.Stage2}, models.ActionHold, ""},
		{"stop hit beats stage change", nil, Day{Date: later, Close: 94, Stage: models.Stage4}, models.ActionFullExit, models.ExitStopHit},
		{"close at stop", nil, Day{Date: later, Close: 95, Stage: models.Stage2}, models.ActionFullExit, models.ExitStopHit},
		{"long in distribution", nil, Day{Date: later, Close: 103, Stage: models.Stage3}, models.ActionFullExit, models.ExitStageChange},
		{"inverse in advance", func(p *models.Position) { p.Direction = models.LongInverse }, Day{Date: later, Close: 100, Stage: models.Stage2}, models.ActionFullExit, models.ExitStageChange},
		{"inverse in decline holds", func(p *models.Position) { p.Direction = models.LongInverse }, Day{Date: later, Close: 100, Stage: models.Stage4}, models.ActionHold, ""},
		{"transitional holds", nil, Day{Date: later, Close: 100, Stage: models.Transitional}, models.ActionHold, ""},
		{"target hit", nil, Day{Date: later, Close: 102, Stage: models.Stage2}, models.ActionPartialExit, models.ExitTargetHit},
		{"trailing raise", func(p *models.Position) { p.PartialExited = true; p.Stop = 100 }, Day{Date: later, Close: 110, Stage: models.Stage2}, models.ActionUpdateStop, models.ExitStopUpdate},
		{"trailing never lowers", func(p *models.Position) { p.PartialExited = true; p.Stop = 100 }, Day{Date: later, Close: 101, Stage: models.Stage2}, models.ActionHold, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := openPosition()
			if tt.pos != nil {
				tt.pos(&pos)
			}
			got := Evaluate(pos, tt.day, s)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestEvaluateSpeedCheck(t *testing.T) {
	s := strategy()
	pos := openPosition()

	fast := Evaluate(pos, Day{Date: monday.AddDate(0, 0, 2), Close: 102.5, Stage: models.Stage2}, s)
	assert.Equal(t, models.ActionPartialExit, fast.Action)
	assert.InDelta(t, 0.50, fast.ExitPct, 1e-12)
	assert.InDelta(t, 100.0, fast.NewStop, 1e-12)

	// Friday to the next Tuesday is two business days
	pos.EntryDate = time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	weekend := Evaluate(pos, Day{Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), Close: 102.5, Stage: models.Stage2}, s)
	assert.InDelta(t, 0.50, weekend.ExitPct, 1e-12)

	pos.EntryDate = monday
	slow := Evaluate(pos, Day{Date: monday.AddDate(0, 0, 3), Close: 102.5, Stage: models.Stage2}, s)
	assert.InDelta(t, 0.25, slow.ExitPct, 1e-12)

	pos.PartialExitPct = 0.5
	capped := Evaluate(pos, Day{Date: monday.AddDate(0, 0, 1), Close: 102.5, Stage: models.Stage2}, s)
	assert.InDelta(t, 0.75, capped.ExitPct, 1e-12)
}

func TestEvaluateTrailingValue(t *testing.T) {
	pos := openPosition()
	pos.PartialExited = true
	pos.Stop = 100
	got := Evaluate(pos, Day{Date: monday.AddDate(0, 0, 20), Close: 110, Stage: models.Stage2}, strategy())
	assert.InDelta(t, 106.7, got.NewStop, 1e-9)
}

func TestBookRoundTrip(t *testing.T) {
	b := NewBook(1000)
	require.NoError(t, b.Open(openPosition()))
	assert.Equal(t, models.StatusPositioned, b.State().Status)
	assert.InDelta(t, 0.0, b.Cash(), 1e-9)
	assert.Equal(t, monday, b.Position().StopOrderDate)

	exit := monday.AddDate(0, 0, 9)
	trade, err := b.Close(103.456, exit, models.ExitManual)
	require.NoError(t, err)

	assert.Equal(t, 3.46, trade.PnLPct)
	assert.Equal(t, 34.56, trade.PnLDollar)
	assert.Equal(t, 9, trade.HoldingDays)
	assert.Equal(t, models.ExitManual, trade.ExitReason)
	assert.NotEmpty(t, trade.ID)

	assert.True(t, b.Flat())
	assert.Nil(t, b.State().Position)
	assert.Equal(t, models.StatusCash, b.State().Status)
	assert.InDelta(t, 1034.56, b.Cash(), 1e-9)
	assert.False(t, b.VixCooldown())
	assert.Equal(t, exit, b.State().Date)
}

func TestBookLosingTrade(t *testing.T) {
	b := NewBook(1000)
	require.NoError(t, b.Open(openPosition()))
	trade, err := b.Close(94, monday.AddDate(0, 0, 1), models.ExitVixEmergency)
	require.NoError(t, err)
	assert.Equal(t, -6.0, trade.PnLPct)
	assert.Equal(t, -60.0, trade.PnLDollar)
	assert.True(t, b.VixCooldown())
}

func TestBookPartialExit(t *testing.T) {
	b := NewBook(1000)
	require.NoError(t, b.Open(openPosition()))

	proceeds, err := b.Reduce(0.25, 102, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.InDelta(t, 255.0, proceeds, 1e-9)

	pos := b.Position()
	require.NotNil(t, pos)
	assert.InDelta(t, 7.5, pos.Shares, 1e-12)
	assert.Equal(t, 100.0, pos.Stop)
	assert.True(t, pos.PartialExited)
	assert.Equal(t, models.StatusPartialExit, b.State().Status)
	assert.InDelta(t, 255+7.5*104, b.Equity(104), 1e-9)

	_, err = b.Reduce(1, 102, monday)
	assert.Error(t, err)
}

func TestBookInconsistentState(t *testing.T) {
	b := NewBook(1000)

	_, err := b.Close(100, monday, models.ExitManual)
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.ErrorIs(t, err, ErrInconsistentState)

	_, err = b.Reduce(0.25, 100, monday)
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.ErrorIs(t, b.SetStop(90, monday), ErrNoPosition)

	require.NoError(t, b.Open(openPosition()))
	err = b.Open(openPosition())
	assert.ErrorIs(t, err, ErrPositionOpen)
	assert.True(t, errors.Is(err, ErrInconsistentState))

	big := NewBook(10)
	err = big.Open(openPosition())
	assert.ErrorIs(t, err, ErrInsufficientCash)
}

func TestBookStateIsACopy(t *testing.T) {
	b := NewBook(1000)
	require.NoError(t, b.Open(openPosition()))
	st := b.State()
	st.Position.Stop = 1
	assert.Equal(t, 95.0, b.Position().Stop)

	restored := Restore(b.State())
	require.NoError(t, restored.SetStop(97, monday.AddDate(0, 0, 3)))
	assert.Equal(t, 95.0, b.Position().Stop)
	assert.Equal(t, 97.0, restored.Position().Stop)
	assert.Equal(t, monday.AddDate(0, 0, 3), restored.Position().StopOrderDate)
}
