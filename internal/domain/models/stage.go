package models

import "time"

type Stage string

const (
	Stage1       Stage = "STAGE_1"
	Stage2       Stage = "STAGE_2"
	Stage3       Stage = "STAGE_3"
	Stage4       Stage = "STAGE_4"
	Transitional Stage = "TRANSITIONAL"
)

func (s Stage) String() string { return string(s) }

// Label is the human-readable name of the stage.
func (s Stage) Label() string {
	switch s {
	case Stage1:
		return "Accumulation"
	case Stage2:
		return "Advancing"
	case Stage3:
		return "Distribution"
	case Stage4:
		return "Declining"
	default:
		return "Transitional"
	}
}

// StageRecord is one step of the per-symbol confirmation fold.
type StageRecord struct {
	Symbol          string    `json:"symbol"`
	Date            time.Time `json:"date"`
	RawStage        Stage     `json:"raw_stage"`
	ConfirmedStage  Stage     `json:"confirmed_stage"`
	Confirmed       bool      `json:"confirmed"`
	ConsecutiveDays int       `json:"consecutive_days"`
}
