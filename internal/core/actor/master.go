package actor

import (
	"context"
	"fmt"
	"time"

	adactor "schedcard/internal/adapter/actor"
	"schedcard/internal/config"
	"schedcard/internal/core/domain"
	. "schedcard/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const notificationRingSize = 20

type CardActorProvider func(es *eventstream.EventStream) *CardActor

type StatestreamActorProvider func() *adactor.StatestreamActor

// SnapshotFetcher produces the initial snapshot before the statestream
// delivers its first delta. May be nil when no REST endpoint is configured.
type SnapshotFetcher func(ctx context.Context) (domain.Snapshot, error)

// MasterActor supervises the card and statestream actors, routes snapshot
// pushes and user actions to the card, and keeps the ring of user-visible
// command failure notifications.
type MasterActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	cardActor          *actor.PID
	statestreamActor   *actor.PID
	cardProvider       CardActorProvider
	statestreamProv    StatestreamActorProvider
	fetchSnapshot      SnapshotFetcher
	notifications      []domain.Notification
	logger             *zap.Logger
}

type healthCheckResult struct {
	cardHealthy        bool
	statestreamHealthy bool
	checksReceived     int
	checksExpected     int
	respondTo          *actor.PID
}

func (r *healthCheckResult) reset(expected int) {
	r.cardHealthy = false
	r.statestreamHealthy = false
	r.checksReceived = 0
	r.checksExpected = expected
	r.respondTo = nil
}

type notificationNote struct {
	notification domain.Notification
}

func NewMasterActor(config config.Config, cardProvider CardActorProvider,
	statestreamProv StatestreamActorProvider, fetchSnapshot SnapshotFetcher, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:          config,
		behavior:        actor.NewBehavior(),
		stash:           &Stash{},
		logger:          ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:     &eventstream.EventStream{},
		cardProvider:    cardProvider,
		statestreamProv: statestreamProv,
		fetchSnapshot:   fetchSnapshot,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		cardPID, err := state.startCardActor(ctx)
		if err != nil {
			panic(err)
		}
		state.cardActor = cardPID

		if state.statestreamProv != nil {
			ssPID, err := state.startStatestreamActor(ctx)
			if err != nil {
				panic(err)
			}
			state.statestreamActor = ssPID
		}

		// bubble command failures into the notification ring
		system := ctx.ActorSystem()
		self := ctx.Self()
		state.eventStream.Subscribe(func(evt any) {
			if failure, ok := evt.(domain.CommandFailedEvent); ok {
				system.Root.Send(self, notificationNote{notification: domain.Notification{
					Message:  failure.Message,
					EntityID: failure.EntityID,
					At:       time.Now(),
				}})
			}
		})

		state.requestInitialSnapshot(ctx)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		expected := 1
		if state.statestreamActor != nil {
			expected = 2
		}
		state.currentHealthCheck.reset(expected)
		state.currentHealthCheck.respondTo = ctx.Sender()

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.cardActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CARD,
				Healthy: false,
			}
		})
		if state.statestreamActor != nil {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.statestreamActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_STATESTREAM,
					Healthy: false,
				}
			})
		}
		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.StatePushRequest:
		// snapshot from the statestream (or initial fetch): route to card
		if ctx.Sender() != nil {
			ctx.RequestWithCustomSender(state.cardActor, msg, ctx.Sender())
		} else {
			ctx.Send(state.cardActor, msg)
		}
	case domain.FailsafeRefreshTick:
		ctx.Send(state.cardActor, msg)
	case domain.ExpiryCheckTick:
		ctx.Send(state.cardActor, msg)
	case domain.UserActionRequest:
		// card responds straight to the original requester
		ctx.RequestWithCustomSender(state.cardActor, msg, ctx.Sender())
	case domain.GetCardViewRequest:
		ctx.RequestWithCustomSender(state.cardActor, msg, ctx.Sender())
	case domain.GetLayoutSizeRequest:
		ctx.RequestWithCustomSender(state.cardActor, msg, ctx.Sender())
	case domain.GetNotificationsRequest:
		ctx.Respond(domain.GetNotificationsResponse{Notifications: state.notifications})
	case notificationNote:
		state.notifications = append(state.notifications, msg.notification)
		if len(state.notifications) > notificationRingSize {
			state.notifications = state.notifications[len(state.notifications)-notificationRingSize:]
		}
	default:
		state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	respond := func() {
		healthy := state.currentHealthCheck.cardHealthy &&
			(state.statestreamActor == nil || state.currentHealthCheck.statestreamHealthy)
		if state.currentHealthCheck.respondTo != nil {
			ctx.Send(state.currentHealthCheck.respondTo, domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MASTER,
				Healthy: healthy,
				State:   "running",
			})
		}
		ctx.SetReceiveTimeout(0)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	}
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		switch msg.Id {
		case domain.ACTOR_ID_CARD:
			state.currentHealthCheck.cardHealthy = msg.Healthy
		case domain.ACTOR_ID_STATESTREAM:
			state.currentHealthCheck.statestreamHealthy = msg.Healthy
		}
		state.currentHealthCheck.checksReceived++
		if state.currentHealthCheck.checksReceived >= state.currentHealthCheck.checksExpected {
			respond()
		}
	case *actor.ReceiveTimeout:
		state.logger.Debug("master@healthCheck timeout")
		respond()
	default:
		state.logger.Debug("master@healthCheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startCardActor(ctx actor.Context) (*actor.PID, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return state.cardProvider(state.eventStream)
	})
	return ctx.SpawnNamed(props, domain.ACTOR_ID_CARD)
}

func (state *MasterActor) startStatestreamActor(ctx actor.Context) (*actor.PID, error) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return state.statestreamProv()
	})
	return ctx.SpawnNamed(props, domain.ACTOR_ID_STATESTREAM)
}

// requestInitialSnapshot fetches the host's full state once so the card can
// paint before the first statestream delta arrives.
func (state *MasterActor) requestInitialSnapshot(ctx actor.Context) {
	if state.fetchSnapshot == nil {
		return
	}
	fetch := state.fetchSnapshot
	cardPID := state.cardActor
	logger := state.logger
	NewBackgroundTask(ctx, func() (*domain.StatePushRequest, error) {
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snapshot, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		return &domain.StatePushRequest{Snapshot: snapshot}, nil
	}).OnError(func(err error) {
		logger.Warn("master@starting: initial snapshot fetch failed", zap.Error(err))
	}).PipeTo(cardPID)
}
