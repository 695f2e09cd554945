package config

import (
	"fmt"

	"schedcard/internal/core/domain"
)

// EntityNames binds the 13 fixed logical roles of the card to external
// entity identifiers. It is produced once per configuration by deep-merging
// user overrides onto the built-in defaults.
type EntityNames struct {
	ChargeStart       string
	ChargeEnd         string
	ChargeDays        string
	ChargePower       string
	ChargeSwitch      string
	ChargePowerSensor string
	ChargePowerLimit  string

	DischargeStart       string
	DischargeEnd         string
	DischargeDays        string
	DischargePower       string
	DischargeSwitch      string
	DischargePowerSensor string
}

func defaultEntityNames() map[string]any {
	return map[string]any{
		"charge": map[string]any{
			"start_time":   "time.inverter_charge_start_time",
			"end_time":     "time.inverter_charge_end_time",
			"days":         "number.inverter_charge_days",
			"power":        "number.inverter_charge_power",
			"switch":       "switch.inverter_force_charge",
			"power_sensor": "sensor.inverter_battery_charge_power",
			"power_limit":  "number.inverter_battery_charge_limit",
		},
		"discharge": map[string]any{
			"start_time":   "time.inverter_discharge_start_time",
			"end_time":     "time.inverter_discharge_end_time",
			"days":         "number.inverter_discharge_days",
			"power":        "number.inverter_discharge_power",
			"switch":       "switch.inverter_force_discharge",
			"power_sensor": "sensor.inverter_battery_discharge_power",
		},
	}
}

// DeepMerge merges src over dst: maps merge key-wise recursively, slices are
// replaced wholesale, scalar leaves are overwritten. Keys present only in
// dst are preserved. Neither input is mutated.
func DeepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = DeepMerge(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}

// ResolveEntityNames merges the configured overrides onto the defaults and
// extracts the role bindings.
func ResolveEntityNames(cfg CardConfig) (EntityNames, error) {
	merged := DeepMerge(defaultEntityNames(), cfg.Entities)

	var names EntityNames
	var err error
	get := func(group, role string) string {
		if err != nil {
			return ""
		}
		g, ok := merged[group].(map[string]any)
		if !ok {
			err = fmt.Errorf("entities.%s: expected a mapping", group)
			return ""
		}
		s, ok := g[role].(string)
		if !ok || s == "" {
			err = fmt.Errorf("entities.%s.%s: expected a non-empty entity id", group, role)
			return ""
		}
		return s
	}

	names.ChargeStart = get("charge", "start_time")
	names.ChargeEnd = get("charge", "end_time")
	names.ChargeDays = get("charge", "days")
	names.ChargePower = get("charge", "power")
	names.ChargeSwitch = get("charge", "switch")
	names.ChargePowerSensor = get("charge", "power_sensor")
	names.ChargePowerLimit = get("charge", "power_limit")

	names.DischargeStart = get("discharge", "start_time")
	names.DischargeEnd = get("discharge", "end_time")
	names.DischargeDays = get("discharge", "days")
	names.DischargePower = get("discharge", "power")
	names.DischargeSwitch = get("discharge", "switch")
	names.DischargePowerSensor = get("discharge", "power_sensor")

	if err != nil {
		return EntityNames{}, err
	}
	return names, nil
}

func (n EntityNames) Start(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargeStart
	}
	return n.DischargeStart
}

func (n EntityNames) End(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargeEnd
	}
	return n.DischargeEnd
}

func (n EntityNames) Days(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargeDays
	}
	return n.DischargeDays
}

func (n EntityNames) Power(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargePower
	}
	return n.DischargePower
}

func (n EntityNames) Switch(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargeSwitch
	}
	return n.DischargeSwitch
}

func (n EntityNames) PowerSensor(dir domain.Direction) string {
	if dir == domain.DirectionCharge {
		return n.ChargePowerSensor
	}
	return n.DischargePowerSensor
}

// Required lists the five roles a section cannot render without.
func (n EntityNames) Required(dir domain.Direction) map[string]string {
	return map[string]string{
		"start_time": n.Start(dir),
		"end_time":   n.End(dir),
		"days":       n.Days(dir),
		"power":      n.Power(dir),
		"switch":     n.Switch(dir),
	}
}
