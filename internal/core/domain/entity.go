package domain

import (
	"strings"
	"time"
)

// AttrPendingWrite is the host-reported attribute marking an entity whose
// last write has not yet been confirmed by the device.
const AttrPendingWrite = "pending_write"

const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

// Direction is one of the two independent schedule halves of the card.
type Direction string

const (
	DirectionCharge    Direction = "charge"
	DirectionDischarge Direction = "discharge"
)

// EntityState is the host's view of a single entity at one point in time.
type EntityState struct {
	EntityID    string
	Value       string
	Attributes  map[string]any
	LastChanged time.Time
	LastUpdated time.Time
}

func (e EntityState) PendingWrite() bool {
	switch v := e.Attributes[AttrPendingWrite].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "on" || v == "1"
	default:
		return false
	}
}

func (e EntityState) IsOn() bool {
	return e.Value == SwitchOn
}

// Snapshot is the full set of entity states pushed by the host. It is never
// mutated after construction; consumers only read and diff it.
type Snapshot map[string]EntityState

func (s Snapshot) Get(entityID string) (EntityState, bool) {
	e, ok := s[entityID]
	return e, ok
}

func (s Snapshot) Has(entityID string) bool {
	_, ok := s[entityID]
	return ok
}

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// EntityDomain returns the platform domain of an entity identifier
// ("switch.inverter_force_charge" => "switch").
func EntityDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return ""
}
