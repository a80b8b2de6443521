package config

// Strategy carries every tunable parameter of the decision pipeline.
type Strategy struct {
	Indicators  IndicatorParams   `yaml:"indicators"`
	Vix         VixParams         `yaml:"vix"`
	Volume      VolumeParams      `yaml:"volume"`
	Stage       StageParams       `yaml:"stage"`
	Entry       EntryParams       `yaml:"entry"`
	ATR         ATRParams         `yaml:"atr"`
	Exits       ExitParams        `yaml:"exits"`
	SpeedCheck  SpeedCheckParams  `yaml:"speed_check"`
	Intermarket IntermarketParams `yaml:"intermarket"`
	Backtest    BacktestParams    `yaml:"backtest"`
}

type IndicatorParams struct {
	// SMAPeriods is fast to slow: 5, 20, 50, 150, 200.
	SMAPeriods       []int   `yaml:"sma_periods" default:"[5,20,50,150,200]" validate:"len=5,dive,gte=1"`
	BollingerPeriod  int     `yaml:"bollinger_period" default:"20" validate:"gte=2"`
	BollingerK       float64 `yaml:"bollinger_k" default:"2.0" validate:"gt=0"`
	SlopeLookback    int     `yaml:"slope_lookback" default:"20" validate:"gte=1"`
	RelativeStrength int     `yaml:"relative_strength_sma" default:"50" validate:"gte=1"`
}

type VixParams struct {
	Low            float64 `yaml:"low" default:"15" validate:"gt=0"`
	Normal         float64 `yaml:"normal" default:"20" validate:"gtfield=Low"`
	Elevated       float64 `yaml:"elevated" default:"30" validate:"gtfield=Normal"`
	High           float64 `yaml:"high" default:"40" validate:"gtfield=Elevated"`
	TrendFast      int     `yaml:"trend_fast" default:"5" validate:"gte=1"`
	TrendSlow      int     `yaml:"trend_slow" default:"20" validate:"gtfield=TrendFast"`
	SpikeThreshold float64 `yaml:"spike_threshold" default:"20" validate:"gt=0"`
	EmergencyLevel float64 `yaml:"emergency_level" default:"40" validate:"gt=0"`
}

type VolumeParams struct {
	PanicThreshold float64 `yaml:"panic_threshold" default:"3.0" validate:"gt=0"`
	PanicExtreme   float64 `yaml:"panic_extreme" default:"8.0" validate:"gtefield=PanicThreshold"`
	FomoThreshold  float64 `yaml:"fomo_threshold" default:"3.0" validate:"gt=0"`
	FomoExtreme    float64 `yaml:"fomo_extreme" default:"8.0" validate:"gtefield=FomoThreshold"`
	FomoCrowding   float64 `yaml:"fomo_crowding" default:"2.0" validate:"gt=0"`
	MAPeriod       int     `yaml:"ma_period" default:"20" validate:"gte=1"`
}

type StageParams struct {
	SlopeThreshold   float64 `yaml:"slope_threshold" default:"0.5" validate:"gt=0"`
	ConfirmationDays int     `yaml:"confirmation_days" default:"3" validate:"gte=1"`
	NearSMA150Pct    float64 `yaml:"near_sma150_pct" default:"3.0" validate:"gt=0"`
}

type EntryParams struct {
	StrongThreshold    int `yaml:"strong_threshold" default:"4" validate:"gte=1,lte=4"`
	ModerateThreshold  int `yaml:"moderate_threshold" default:"3" validate:"gte=1,ltefield=StrongThreshold"`
	TrendMinConditions int `yaml:"trend_min_conditions" default:"4" validate:"gte=1,lte=5"`
}

type ATRParams struct {
	Enabled    bool    `yaml:"enabled" default:"true"`
	Period     int     `yaml:"period" default:"14" validate:"gte=1"`
	Multiplier float64 `yaml:"multiplier" default:"3.0" validate:"gt=0"`
	MinStopPct float64 `yaml:"min_stop_pct" default:"0.04" validate:"gt=0,lt=1"`
	MaxStopPct float64 `yaml:"max_stop_pct" default:"0.10" validate:"gtfield=MinStopPct,lt=1"`
}

// ExitSet is the constant set of one trade type.
type ExitSet struct {
	StopPct        float64 `yaml:"stop_pct" validate:"gt=0,lt=1"`
	TargetPct      float64 `yaml:"target_pct" validate:"gt=0"`
	TrailingPct    float64 `yaml:"trailing_pct" validate:"gt=0,lt=1"`
	PartialExitPct float64 `yaml:"partial_exit_pct" validate:"gt=0,lte=1"`
}

type ExitParams struct {
	Standard ExitSet `yaml:"standard"`
	Stage3   ExitSet `yaml:"stage3"`
	Inverse  ExitSet `yaml:"inverse"`
}

// SetDefaults fills exit sets left empty in YAML.
func (p *ExitParams) SetDefaults() {
	if p.Standard == (ExitSet{}) {
		p.Standard = ExitSet{StopPct: 0.05, TargetPct: 0.02, TrailingPct: 0.03, PartialExitPct: 0.25}
	}
	if p.Stage3 == (ExitSet{}) {
		p.Stage3 = ExitSet{StopPct: 0.05, TargetPct: 0.015, TrailingPct: 0.03, PartialExitPct: 0.50}
	}
	if p.Inverse == (ExitSet{}) {
		p.Inverse = ExitSet{StopPct: 0.04, TargetPct: 0.015, TrailingPct: 0.02, PartialExitPct: 0.25}
	}
}

type SpeedCheckParams struct {
	Days     int     `yaml:"days" default:"2" validate:"gte=0"`
	ExtraPct float64 `yaml:"extra_pct" default:"0.25" validate:"gte=0,lte=1"`
	MaxPct   float64 `yaml:"max_pct" default:"0.75" validate:"gt=0,lte=1"`
}

type IntermarketParams struct {
	DefensiveRotationThreshold float64 `yaml:"defensive_rotation_threshold" default:"5.0" validate:"gt=0"`
}

type BacktestParams struct {
	InitialCapital float64 `yaml:"initial_capital" default:"100000" validate:"gt=0"`
	CooldownDays   int     `yaml:"cooldown_days" default:"1" validate:"gte=0"`
	Workers        int     `yaml:"workers" default:"4" validate:"gte=1"`
}
