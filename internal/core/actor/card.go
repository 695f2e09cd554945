package actor

import (
	"context"
	"fmt"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
	"schedcard/internal/core/port"
	"schedcard/internal/core/service"
	. "schedcard/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const commandTimeout = 5 * time.Second

// CardActor owns the schedule panel: it reacts to snapshot pushes, user
// actions and periodic ticks, renders the view tree and issues outbound
// commands. All UI-local state lives here and is touched only by message
// handlers.
type CardActor struct {
	ActorWithStates
	cfg         config.Config
	names       config.EntityNames
	executor    port.CommandExecutor
	durations   port.DurationStore
	clock       port.Clock
	eventStream *eventstream.EventStream
	scheduler   *scheduler.TimerScheduler
	logger      *zap.Logger

	// UI-local state, reset only by construction
	lastSnapshot domain.Snapshot
	focus        domain.FocusState
	draggedKw    map[domain.Direction]float64
	currentView  *domain.CardView
	lastDebugLog time.Time
}

type deferredServiceCall struct {
	call domain.ServiceCall
}

type commandResult struct {
	call domain.ServiceCall
	err  error
}

func NewCardActor(cfg config.Config, names config.EntityNames, executor port.CommandExecutor,
	durations port.DurationStore, clock port.Clock, eventStream *eventstream.EventStream,
	logger *zap.Logger) *CardActor {
	if clock == nil {
		clock = port.SystemClock{}
	}
	act := &CardActor{
		cfg:         cfg,
		names:       names,
		executor:    executor,
		durations:   durations,
		clock:       clock,
		eventStream: eventStream,
		draggedKw:   map[domain.Direction]float64{},
		logger:      ActorLogger(domain.ACTOR_ID_CARD, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CardStartingState{actor: act})
	return act
}

func (state *CardActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type CardStartingState struct {
	ActorState
	actor *CardActor
}

func (state CardStartingState) Name() string {
	return "starting"
}

func (state CardStartingState) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("card@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.Become(CardRunningState{actor: state.actor})
	case *actor.Restarting:
	default:
	}
}

// Running state

type CardRunningState struct {
	ActorState
	actor *CardActor
}

func (state CardRunningState) Name() string {
	return "running"
}

func (state CardRunningState) Receive(ctx actor.Context) {
	a := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		a.logger.Debug("card@running: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CARD,
			Healthy: true,
			State:   state.Name(),
		})
	case domain.StatePushRequest:
		refreshed := a.onStatePush(msg.Snapshot)
		if ctx.Sender() != nil {
			ctx.Respond(domain.StatePushResponse{Refreshed: refreshed})
		}
	case domain.FailsafeRefreshTick:
		// sensor-only drift must eventually reach the panel even when the
		// diff classified it as irrelevant
		if a.lastSnapshot != nil && !a.focus.BlocksRefresh() {
			a.logger.Debug("card@running: failsafe refresh")
			a.render(true)
		}
	case domain.ExpiryCheckTick:
		if a.lastSnapshot == nil {
			return
		}
		calls := service.ExpiredSwitchOffs(a.cfg.Card.ResolvedMode(), a.names, a.lastSnapshot, a.clock.Now())
		if len(calls) > 0 {
			a.logger.Info("card@running: schedule expired, turning off", zap.Int("count", len(calls)))
			a.executeCalls(ctx, calls)
		}
	case domain.EnablePressedRequest:
		a.onEnable(ctx, msg.Direction)
	case domain.DisablePressedRequest:
		a.logger.Debug("card@running: disable pressed", zap.String("direction", string(msg.Direction)))
		a.executeCalls(ctx, service.PlanDisable(a.names, msg.Direction).Calls)
		ctx.Respond(domain.UserActionResponse{})
	case domain.PowerDraggedRequest:
		// display-only: no outbound write until the value is committed
		a.draggedKw[msg.Direction] = msg.Kw
		a.render(false)
		ctx.Respond(domain.UserActionResponse{})
	case domain.PowerCommittedRequest:
		delete(a.draggedKw, msg.Direction)
		plan := service.PlanPowerCommit(a.names, msg.Direction, msg.Kw, a.cfg.Card.MaxOutputKw)
		a.executeCalls(ctx, plan.Calls)
		ctx.Respond(domain.UserActionResponse{})
	case domain.DurationChangedRequest:
		if err := a.durations.SetDuration(msg.Direction, msg.Minutes); err != nil {
			a.logger.Error("card@running: persist duration failed", zap.Error(err))
		}
		a.render(false)
		ctx.Respond(domain.UserActionResponse{})
	case domain.EndTimeEditedRequest:
		plan := service.PlanEndTimeEdit(a.names, msg.Direction, msg.Value)
		if plan.Reverted {
			a.logger.Info("card@running: invalid end time, reverting",
				zap.String("direction", string(msg.Direction)), zap.String("value", msg.Value))
			a.render(false)
		} else {
			a.executeCalls(ctx, plan.Calls)
		}
		ctx.Respond(domain.UserActionResponse{Reverted: plan.Reverted})
	case domain.DaysEditedRequest:
		plan := service.PlanDaysEdit(a.names, msg.Direction, msg.Days)
		a.executeCalls(ctx, plan.Calls)
		ctx.Respond(domain.UserActionResponse{})
	case domain.FocusChangedRequest:
		a.focus = msg.Focus
		ctx.Respond(domain.UserActionResponse{})
	case domain.GetCardViewRequest:
		if a.currentView == nil && a.lastSnapshot != nil {
			a.render(false)
		}
		ctx.Respond(domain.GetCardViewResponse{View: a.currentView})
	case domain.GetLayoutSizeRequest:
		ctx.Respond(domain.GetLayoutSizeResponse{Size: a.LayoutSize()})
	case deferredServiceCall:
		a.executeCalls(ctx, []domain.ServiceCall{msg.call})
	case commandResult:
		if msg.err != nil {
			a.notifyCommandFailure(msg.call, msg.err)
		}
	default:
		a.logger.Debug("card@running: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// onStatePush applies a new snapshot and re-renders when the diff warrants
// it and no protected interaction is in progress.
func (a *CardActor) onStatePush(snapshot domain.Snapshot) bool {
	relevant := service.RelevantEntities(a.cfg.Card.ResolvedMode(), a.names)
	refresh := service.ShouldRefresh(a.lastSnapshot, snapshot, relevant)
	a.lastSnapshot = snapshot

	if a.cfg.Card.Debug && a.clock.Now().Sub(a.lastDebugLog) >= service.DebugLogInterval {
		a.logger.Debug("card@running: state push",
			zap.Int("entities", len(snapshot)),
			zap.Bool("refresh", refresh),
			zap.Bool("guard", a.focus.BlocksRefresh()))
		a.lastDebugLog = a.clock.Now()
	}

	if !refresh || a.focus.BlocksRefresh() {
		return false
	}
	return a.render(false)
}

func (a *CardActor) onEnable(ctx actor.Context, dir domain.Direction) {
	duration := a.durations.Duration(dir)
	sliderKw := a.sliderKw(dir)
	plan, err := service.PlanEnable(a.names, a.lastSnapshot, dir, duration, sliderKw, a.cfg.Card.MaxOutputKw, a.clock.Now())
	if err != nil {
		a.logger.Error("card@running: enable rejected", zap.Error(err))
		ctx.Respond(domain.UserActionResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		})
		return
	}
	a.logger.Debug("card@running: enable pressed",
		zap.String("direction", string(dir)), zap.Int("writes", len(plan.Calls)))
	a.executeCalls(ctx, plan.Calls)
	if plan.Deferred != nil {
		// the schedule writes must land before the switch flips; enabling
		// with stale values is worse than a brief race
		call := plan.Deferred.Call
		a.scheduler.RequestOnce(plan.Deferred.Delay, ctx.Self(), deferredServiceCall{call: call})
	}
	ctx.Respond(domain.UserActionResponse{})
}

// sliderKw returns the value currently shown on the slider: an uncommitted
// drag position if present, otherwise the setpoint from the snapshot.
func (a *CardActor) sliderKw(dir domain.Direction) float64 {
	if kw, ok := a.draggedKw[dir]; ok {
		return kw
	}
	if a.lastSnapshot == nil {
		return 0
	}
	ent, ok := a.lastSnapshot.Get(a.names.Power(dir))
	if !ok {
		return 0
	}
	return service.StorageValueKw(dir, ent.Value, a.cfg.Card.MaxOutputKw)
}

// render replaces the view tree. Snapshot-driven callers check the
// interaction guard before calling; user-driven updates always render so
// an in-progress drag or edit is reflected immediately.
func (a *CardActor) render(forced bool) bool {
	if a.lastSnapshot == nil {
		return false
	}
	view := service.BuildCardView(service.RenderInput{
		Card:      a.cfg.Card,
		Names:     a.names,
		Snapshot:  a.lastSnapshot,
		Focus:     a.focus,
		Durations: a.durationPreferences(),
		DraggedKw: a.draggedKw,
		Now:       a.clock.Now(),
	})
	a.currentView = &view
	a.eventStream.Publish(domain.CardRenderedEvent{View: view, Forced: forced})
	return true
}

func (a *CardActor) durationPreferences() map[domain.Direction]int {
	return map[domain.Direction]int{
		domain.DirectionCharge:    a.durations.Duration(domain.DirectionCharge),
		domain.DirectionDischarge: a.durations.Duration(domain.DirectionDischarge),
	}
}

// executeCalls is the single write funnel: unknown targets are rejected with
// a logged error, everything else goes to the executor in the background and
// failures come back as commandResult messages. No retry.
func (a *CardActor) executeCalls(ctx actor.Context, calls []domain.ServiceCall) {
	for _, call := range calls {
		if a.lastSnapshot == nil || !a.lastSnapshot.Has(call.EntityID) {
			a.logger.Error("card@running: write rejected, entity unknown to host state",
				zap.String("entity_id", call.EntityID))
			continue
		}
		call := call
		NewBackgroundTask(ctx, func() (*commandResult, error) {
			cctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			err := a.executor.Call(cctx, call)
			return &commandResult{call: call, err: err}, nil
		}).WithTimeout(commandTimeout + time.Second).Recover(func(err error) commandResult {
			return commandResult{call: call, err: err}
		}).PipeTo(ctx.Self())
	}
}

func (a *CardActor) notifyCommandFailure(call domain.ServiceCall, err error) {
	message := fmt.Sprintf("command %s.%s on %s failed: %s", call.Domain, call.Service, call.EntityID, err)
	a.logger.Error("card@running: command failed",
		zap.String("entity_id", call.EntityID), zap.Error(err))
	a.eventStream.Publish(domain.CommandFailedEvent{
		Message:  message,
		EntityID: call.EntityID,
		Err:      err,
	})
}

// LayoutSize is the host layout grid hint: one row plus three per active
// direction, clamped to [1,15].
func (a *CardActor) LayoutSize() int {
	size := 1
	mode := a.cfg.Card.ResolvedMode()
	if mode.HasCharge() {
		size += 3
	}
	if mode.HasDischarge() {
		size += 3
	}
	if size < 1 {
		size = 1
	}
	if size > 15 {
		size = 15
	}
	return size
}
