package domain

const (
	ACTOR_ID_MASTER      = "master"
	ACTOR_ID_CARD        = "card"
	ACTOR_ID_STATESTREAM = "statestream"
)

// StatePushRequest delivers a full immutable snapshot from the host.
type StatePushRequest struct {
	ActorRequestMixIn
	Snapshot Snapshot
}

type StatePushResponse struct {
	ActorResponseMixIn
	Refreshed bool
}

type GetCardViewRequest struct {
	ActorRequestMixIn
}

type GetCardViewResponse struct {
	ActorResponseMixIn
	View *CardView
}

// GetLayoutSizeRequest asks for the host layout grid size hint.
type GetLayoutSizeRequest struct {
	ActorRequestMixIn
}

type GetLayoutSizeResponse struct {
	ActorResponseMixIn
	Size int
}

type GetNotificationsRequest struct {
	ActorRequestMixIn
}

type GetNotificationsResponse struct {
	ActorResponseMixIn
	Notifications []Notification
}

// FailsafeRefreshTick forces a re-render at a fixed cadence so sensor-only
// drift is eventually reflected even when the diff deems it irrelevant.
type FailsafeRefreshTick struct{}

// ExpiryCheckTick triggers the periodic end-time expiry scan.
type ExpiryCheckTick struct{}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
