package service

import (
	"math"
	"strconv"

	"schedcard/internal/core/domain"
)

// Charge power is stored in tenths of a percent, discharge power in whole
// percent. The asymmetry is inherited from the external device protocol and
// must be preserved: correctness depends on matching the device's expected
// units exactly.

// PercentFromStorage converts a power entity's raw value to percent of
// maximum output.
func PercentFromStorage(dir domain.Direction, raw float64) float64 {
	if dir == domain.DirectionCharge {
		return raw / 10
	}
	return raw
}

// StorageFromPercent converts a percent setpoint to the power entity's
// storage units.
func StorageFromPercent(dir domain.Direction, percent int) int {
	if dir == domain.DirectionCharge {
		return percent * 10
	}
	return percent
}

// SliderKw maps a percent setpoint to the kW shown on the slider, rounded
// to the nearest 0.5 kW step.
func SliderKw(percent, maxOutputKw float64) float64 {
	return math.Round(percent/100*maxOutputKw*2) / 2
}

// KwToPercent maps a user kW input back to a whole percent of maximum
// output. The kW<->percent pair is lossy on the first round trip (0.5 kW
// steps) but idempotent afterwards.
func KwToPercent(kw, maxOutputKw float64) int {
	return int(math.Round(kw / maxOutputKw * 100))
}

// StorageValueKw parses a power entity value and returns its slider kW.
func StorageValueKw(dir domain.Direction, value string, maxOutputKw float64) float64 {
	raw, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return SliderKw(PercentFromStorage(dir, raw), maxOutputKw)
}
