package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
	"schedcard/internal/mqtt"
	"schedcard/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// StatestreamActor assembles full snapshots from the host's statestream
// topics and pushes them to its parent on every entity update. The parent
// decides whether a push warrants a refresh.
type StatestreamActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   *mqtt.StatestreamClient
	entities domain.Snapshot
	logger   *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type entityFieldUpdate struct {
	msg *mqtt.StatestreamMessage
}

func NewStatestreamActor(config *config.Config, logger *zap.Logger) *StatestreamActor {
	act := &StatestreamActor{
		config:   config,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		entities: domain.Snapshot{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_STATESTREAM, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *StatestreamActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *StatestreamActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("statestream@starting started")

		state.client = mqtt.CreateStatestreamClient(state.config, mqtt.OptsFromConfig(state.config),
			func(_ pahomqtt.Client, err error) {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			})

		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)
	case MQTTConnected:
		state.logger.Debug("statestream@starting connected")

		state.client.SubscribeToStatestream(func(c pahomqtt.Client, m pahomqtt.Message) {
			parsed, err := state.client.ParseStatestreamMessage(m)
			if err == nil && parsed != nil {
				ctx.Send(ctx.Self(), entityFieldUpdate{msg: parsed})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("statestream@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("statestream@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("statestream@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *StatestreamActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("statestream@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_STATESTREAM,
			Healthy: true,
			State:   "idle",
		})
	case entityFieldUpdate:
		if state.applyFieldUpdate(msg.msg) {
			ctx.Send(ctx.Parent(), domain.StatePushRequest{Snapshot: state.entities.Clone()})
		}
	case MQTTConnectionLost:
		state.logger.Error("statestream@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("statestream@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// applyFieldUpdate folds one statestream topic into the entity model.
// Unknown fields are treated as single attributes, matching how the host
// streams each attribute on its own subtopic.
func (state *StatestreamActor) applyFieldUpdate(msg *mqtt.StatestreamMessage) bool {
	ent := state.entities[msg.EntityID]
	ent.EntityID = msg.EntityID

	switch msg.Field {
	case mqtt.FieldState:
		ent.Value = msg.Payload
	case mqtt.FieldAttributes:
		var attrs map[string]any
		if err := json.Unmarshal([]byte(msg.Payload), &attrs); err != nil {
			state.logger.Debug("statestream@default: bad attributes payload",
				zap.String("entity_id", msg.EntityID), zap.Error(err))
			return false
		}
		ent.Attributes = attrs
	case mqtt.FieldLastChanged:
		t, err := time.Parse(time.RFC3339, msg.Payload)
		if err != nil {
			return false
		}
		ent.LastChanged = t
	case mqtt.FieldLastUpdated:
		t, err := time.Parse(time.RFC3339, msg.Payload)
		if err != nil {
			return false
		}
		ent.LastUpdated = t
	default:
		if ent.Attributes == nil {
			ent.Attributes = map[string]any{}
		} else {
			attrs := make(map[string]any, len(ent.Attributes)+1)
			for k, v := range ent.Attributes {
				attrs[k] = v
			}
			ent.Attributes = attrs
		}
		ent.Attributes[msg.Field] = msg.Payload
	}

	state.entities = state.entities.Clone()
	state.entities[msg.EntityID] = ent
	return true
}

func (state *StatestreamActor) stop() {
	if state.client != nil {
		state.client.Disconnect(500 * time.Millisecond)
	}
}
