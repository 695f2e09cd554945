package service

import (
	"fmt"
	"strconv"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
)

const (
	// DefaultDurationMinutes applies when no duration preference is stored.
	DefaultDurationMinutes = 30

	// SwitchOnSettleDelay separates the four schedule writes from the
	// switch-on command so the device does not enable with stale values.
	SwitchOnSettleDelay = 500 * time.Millisecond
)

// DeferredCall is a service call issued after a fixed delay.
type DeferredCall struct {
	Delay time.Duration
	Call  domain.ServiceCall
}

// CommandPlan is the outbound translation of one user action. The widget
// never mutates external state optimistically; the next snapshot is the
// only source of truth.
type CommandPlan struct {
	Calls    []domain.ServiceCall
	Deferred *DeferredCall
	// Reverted marks an invalid edit rolled back without any write.
	Reverted bool
}

// PlanEnable translates an enable press. With the switch already on it is an
// extend action touching only the end time. Otherwise it schedules a new
// single-day window and defers the switch-on until the writes settle.
func PlanEnable(names config.EntityNames, snap domain.Snapshot, dir domain.Direction,
	durationMinutes int, sliderKw, maxOutputKw float64, now time.Time) (CommandPlan, error) {

	sw, ok := snap.Get(names.Switch(dir))
	if !ok {
		return CommandPlan{}, fmt.Errorf("enable %s: switch entity %s not in state", dir, names.Switch(dir))
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	start := CurrentTime(now)
	end := EndTime(start, durationMinutes, now)

	if sw.IsOn() {
		return CommandPlan{
			Calls: []domain.ServiceCall{domain.SetValue(names.End(dir), end)},
		}, nil
	}

	power := StorageFromPercent(dir, KwToPercent(sliderKw, maxOutputKw))
	return CommandPlan{
		Calls: []domain.ServiceCall{
			domain.SetValue(names.Start(dir), start),
			domain.SetValue(names.End(dir), end),
			domain.SetValue(names.Days(dir), strconv.Itoa(TodayMask(now))),
			domain.SetValue(names.Power(dir), strconv.Itoa(power)),
		},
		Deferred: &DeferredCall{
			Delay: SwitchOnSettleDelay,
			Call:  domain.TurnOn(names.Switch(dir)),
		},
	}, nil
}

// PlanDisable issues a switch-off and nothing else.
func PlanDisable(names config.EntityNames, dir domain.Direction) CommandPlan {
	return CommandPlan{
		Calls: []domain.ServiceCall{domain.TurnOff(names.Switch(dir))},
	}
}

// PlanPowerCommit writes the committed slider value in storage units.
func PlanPowerCommit(names config.EntityNames, dir domain.Direction, kw, maxOutputKw float64) CommandPlan {
	power := StorageFromPercent(dir, KwToPercent(kw, maxOutputKw))
	return CommandPlan{
		Calls: []domain.ServiceCall{domain.SetValue(names.Power(dir), strconv.Itoa(power))},
	}
}

// PlanEndTimeEdit validates a strict HH:MM edit. Invalid input reverts to
// the last known external value without a write.
func PlanEndTimeEdit(names config.EntityNames, dir domain.Direction, value string) CommandPlan {
	if !ValidClock(value) {
		return CommandPlan{Reverted: true}
	}
	return CommandPlan{
		Calls: []domain.ServiceCall{domain.SetValue(names.End(dir), value)},
	}
}

// PlanDaysEdit recomputes the full 7-bit mask and writes it as one value.
func PlanDaysEdit(names config.EntityNames, dir domain.Direction, days []int) CommandPlan {
	return CommandPlan{
		Calls: []domain.ServiceCall{domain.SetValue(names.Days(dir), strconv.Itoa(MaskFromDays(days)))},
	}
}
