package domain

const (
	ServiceTurnOn   = "turn_on"
	ServiceTurnOff  = "turn_off"
	ServiceSetValue = "set_value"
)

// ServiceCall is one outbound command against the host's command-execution
// interface. Switch entities use the toggle services without a value,
// everything else uses the generic set_value service.
type ServiceCall struct {
	Domain   string
	Service  string
	EntityID string
	Value    string
	HasValue bool
}

func TurnOn(entityID string) ServiceCall {
	return ServiceCall{
		Domain:   EntityDomain(entityID),
		Service:  ServiceTurnOn,
		EntityID: entityID,
	}
}

func TurnOff(entityID string) ServiceCall {
	return ServiceCall{
		Domain:   EntityDomain(entityID),
		Service:  ServiceTurnOff,
		EntityID: entityID,
	}
}

func SetValue(entityID, value string) ServiceCall {
	return ServiceCall{
		Domain:   EntityDomain(entityID),
		Service:  ServiceSetValue,
		EntityID: entityID,
		Value:    value,
		HasValue: true,
	}
}

// UserActionRequest

type UserActionRequest interface {
	ActorRequest
	UserAction() string
}

type UserActionRequestMixIn struct {
	ActorRequestMixIn
}

func (r UserActionRequestMixIn) UserAction() string {
	return "user_action"
}

type UserActionResponse struct {
	ActorResponseMixIn
	// Reverted is set when an invalid edit was rolled back to the last
	// known-good value instead of being written.
	Reverted bool
}

// User actions

type EnablePressedRequest struct {
	UserActionRequestMixIn
	Direction Direction
}

type DisablePressedRequest struct {
	UserActionRequestMixIn
	Direction Direction
}

// PowerDraggedRequest updates the displayed slider value only. No write is
// issued until the value is committed.
type PowerDraggedRequest struct {
	UserActionRequestMixIn
	Direction Direction
	Kw        float64
}

type PowerCommittedRequest struct {
	UserActionRequestMixIn
	Direction Direction
	Kw        float64
}

type DurationChangedRequest struct {
	UserActionRequestMixIn
	Direction Direction
	Minutes   int
}

type EndTimeEditedRequest struct {
	UserActionRequestMixIn
	Direction Direction
	Value     string
}

// DaysEditedRequest carries the full checked set; the mask is always
// recomputed and written as a single value.
type DaysEditedRequest struct {
	UserActionRequestMixIn
	Direction Direction
	// Days holds checked weekday bit indexes, 0=Monday .. 6=Sunday.
	Days []int
}

type FocusChangedRequest struct {
	UserActionRequestMixIn
	Focus FocusState
}

// ensure interface compliance
var _ UserActionRequest = (*EnablePressedRequest)(nil)
