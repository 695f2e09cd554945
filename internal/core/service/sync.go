package service

import (
	"schedcard/internal/config"
	"schedcard/internal/core/domain"
)

// RelevantEntities lists the entity identifiers whose changes warrant a
// refresh for the configured mode.
func RelevantEntities(mode config.Mode, names config.EntityNames) []string {
	var ids []string
	if mode.HasCharge() {
		ids = append(ids,
			names.ChargeStart,
			names.ChargeEnd,
			names.ChargeDays,
			names.ChargePower,
			names.ChargeSwitch,
			names.ChargePowerSensor,
			names.ChargePowerLimit,
		)
	}
	if mode.HasDischarge() {
		ids = append(ids,
			names.DischargeStart,
			names.DischargeEnd,
			names.DischargeDays,
			names.DischargePower,
			names.DischargeSwitch,
			names.DischargePowerSensor,
		)
	}
	return ids
}

// ShouldRefresh decides whether a new snapshot warrants a re-render. The
// first snapshot always refreshes. Afterwards only meaningful changes to
// relevant entities count: appearance or disappearance, a value change, a
// pending-write flip, or a change of the host's change/update stamps. Any
// other attribute difference is ignored to keep the refresh frequency
// bounded.
func ShouldRefresh(prev, next domain.Snapshot, relevant []string) bool {
	if prev == nil {
		return true
	}
	for _, id := range relevant {
		if id == "" {
			continue
		}
		p, pOK := prev.Get(id)
		n, nOK := next.Get(id)
		if pOK != nOK {
			return true
		}
		if !nOK {
			continue
		}
		if p.Value != n.Value ||
			p.PendingWrite() != n.PendingWrite() ||
			!p.LastChanged.Equal(n.LastChanged) ||
			!p.LastUpdated.Equal(n.LastUpdated) {
			return true
		}
	}
	return false
}
