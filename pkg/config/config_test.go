package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesStrategyTable(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	s := c.Strategy
	assert.Equal(t, []int{5, 20, 50, 150, 200}, s.Indicators.SMAPeriods)
	assert.Equal(t, 20, s.Indicators.BollingerPeriod)
	assert.Equal(t, 2.0, s.Indicators.BollingerK)
	assert.Equal(t, 40.0, s.Vix.EmergencyLevel)
	assert.Equal(t, 3, s.Stage.ConfirmationDays)
	assert.Equal(t, 0.5, s.Stage.SlopeThreshold)
	assert.True(t, s.ATR.Enabled)
	assert.Equal(t, 0.10, s.ATR.MaxStopPct)
	assert.Equal(t, ExitSet{StopPct: 0.05, TargetPct: 0.02, TrailingPct: 0.03, PartialExitPct: 0.25}, s.Exits.Standard)
	assert.Equal(t, 0.50, s.Exits.Stage3.PartialExitPct)
	assert.Equal(t, 0.04, s.Exits.Inverse.StopPct)
	assert.Equal(t, 100000.0, s.Backtest.InitialCapital)

	assert.Equal(t, "SH", c.Universe.InverseOf("SPY"))
	assert.Equal(t, []string{"SPY", "QQQ", "TLT", "UUP", "UDN"}, c.Universe.AnalysisSymbols())
	assert.Equal(t, []string{"SPY", "QQQ", "TLT", "UUP", "UDN", "XLU", "GLD", "RSP"}, c.Universe.ComputeSymbols())
	assert.Equal(t, "XLU", c.Universe.Utilities)
	assert.Equal(t, "GLD", c.Universe.Gold)
}

func TestComputeSymbolsIncludesWarningRoles(t *testing.T) {
	u := Default().Universe
	u.WarningSymbols = []string{"RSP"}
	u.Utilities, u.Gold = "VPU", "GLD"
	assert.Equal(t, []string{"SPY", "QQQ", "TLT", "UUP", "UDN", "RSP", "VPU", "GLD"}, u.ComputeSymbols())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
strategy:
  atr:
    enabled: false
  stage:
    confirmation_days: 5
  exits:
    standard:
      stop_pct: 0.06
      target_pct: 0.02
      trailing_pct: 0.03
      partial_exit_pct: 0.25
`))
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.False(t, c.Strategy.ATR.Enabled)
	assert.Equal(t, 5, c.Strategy.Stage.ConfirmationDays)
	assert.Equal(t, 0.06, c.Strategy.Exits.Standard.StopPct)
	assert.Equal(t, 0.015, c.Strategy.Exits.Inverse.TargetPct)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend":  "store:\n  backend: sqlite\n",
		"kafka no brokers": "kafka:\n  enabled: true\n",
		"vix out of order": "strategy:\n  vix:\n    normal: 10\n",
		"descending smas":  "strategy:\n  indicators:\n    sma_periods: [5, 20, 50, 200, 150]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
