package domain

import "time"

// CardRenderedEvent is published on the event stream after every view
// replacement.
type CardRenderedEvent struct {
	View   CardView
	Forced bool
}

// CommandFailedEvent is the bubbling notification for a failed outbound
// command. It is surfaced to the user and logged; commands are never
// retried. Writes rejected before execution (unknown target entity) are
// logged only.
type CommandFailedEvent struct {
	Message  string
	EntityID string
	Err      error
}

// Notification is the user-visible record kept from a CommandFailedEvent.
type Notification struct {
	Message  string    `json:"message"`
	EntityID string    `json:"entity_id"`
	At       time.Time `json:"at"`
}
