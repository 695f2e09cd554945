package service

import (
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
)

func testCard() config.CardConfig {
	return config.CardConfig{
		Mode:        "both",
		MaxOutputKw: 5.0,
	}
}

func testNames() config.EntityNames {
	names, err := config.ResolveEntityNames(testCard())
	if err != nil {
		panic(err)
	}
	return names
}

// wednesday 10:00 local, a fixed reference instant for deterministic tests
func testNow() time.Time {
	return time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)
}

func entity(id, value string) domain.EntityState {
	return domain.EntityState{EntityID: id, Value: value}
}

func pendingEntity(id, value string) domain.EntityState {
	return domain.EntityState{
		EntityID:   id,
		Value:      value,
		Attributes: map[string]any{domain.AttrPendingWrite: true},
	}
}

// fullSnapshot builds a snapshot containing every required role for both
// directions, with both switches off.
func fullSnapshot(names config.EntityNames) domain.Snapshot {
	snap := domain.Snapshot{}
	for _, dir := range []domain.Direction{domain.DirectionCharge, domain.DirectionDischarge} {
		snap[names.Start(dir)] = entity(names.Start(dir), "08:00")
		snap[names.End(dir)] = entity(names.End(dir), "09:00")
		snap[names.Days(dir)] = entity(names.Days(dir), "0")
		snap[names.Switch(dir)] = entity(names.Switch(dir), domain.SwitchOff)
	}
	snap[names.ChargePower] = entity(names.ChargePower, "500")
	snap[names.DischargePower] = entity(names.DischargePower, "50")
	return snap
}
