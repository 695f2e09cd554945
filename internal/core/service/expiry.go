package service

import (
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
)

// ExpiredSwitchOffs scans the active directions and returns one switch-off
// call per direction whose schedule is on and whose end time has passed.
// Invoked at the expiry cadence, so an expired schedule produces exactly one
// command per check cycle.
func ExpiredSwitchOffs(mode config.Mode, names config.EntityNames, snap domain.Snapshot, now time.Time) []domain.ServiceCall {
	var calls []domain.ServiceCall
	nowMinutes := MinutesOfDay(CurrentTime(now))

	check := func(dir domain.Direction) {
		sw, ok := snap.Get(names.Switch(dir))
		if !ok || !sw.IsOn() {
			return
		}
		end, ok := snap.Get(names.End(dir))
		if !ok {
			return
		}
		if MinutesOfDay(end.Value) <= nowMinutes {
			calls = append(calls, domain.TurnOff(names.Switch(dir)))
		}
	}

	if mode.HasCharge() {
		check(domain.DirectionCharge)
	}
	if mode.HasDischarge() {
		check(domain.DirectionDischarge)
	}
	return calls
}
