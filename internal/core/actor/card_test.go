package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schedcard/internal/config"
	"schedcard/internal/core/domain"
	"schedcard/internal/core/port"
	"schedcard/internal/util"
	"schedcard/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []domain.ServiceCall
	fail  bool
}

func (f *fakeExecutor) Call(_ context.Context, call domain.ServiceCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("service unavailable")
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeExecutor) Calls() []domain.ServiceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ServiceCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeExecutor) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeDurations struct {
	mu     sync.Mutex
	values map[domain.Direction]int
}

func (f *fakeDurations) Duration(dir domain.Direction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[dir]; ok {
		return v
	}
	return 30
}

func (f *fakeDurations) SetDuration(dir domain.Direction, minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[domain.Direction]int{}
	}
	f.values[dir] = minutes
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var _ port.Clock = fixedClock{}

// wednesday 10:00
var testClock = fixedClock{now: time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)}

func cardTestSnapshot(names config.EntityNames) domain.Snapshot {
	snap := domain.Snapshot{}
	for _, dir := range []domain.Direction{domain.DirectionCharge, domain.DirectionDischarge} {
		snap[names.Start(dir)] = domain.EntityState{EntityID: names.Start(dir), Value: "08:00"}
		snap[names.End(dir)] = domain.EntityState{EntityID: names.End(dir), Value: "09:00"}
		snap[names.Days(dir)] = domain.EntityState{EntityID: names.Days(dir), Value: "0"}
		snap[names.Switch(dir)] = domain.EntityState{EntityID: names.Switch(dir), Value: domain.SwitchOff}
	}
	snap[names.ChargePower] = domain.EntityState{EntityID: names.ChargePower, Value: "500"}
	snap[names.DischargePower] = domain.EntityState{EntityID: names.DischargePower, Value: "50"}
	return snap
}

type cardFixture struct {
	context  *actor.RootContext
	pid      *actor.PID
	executor *fakeExecutor
	names    config.EntityNames
	stream   *eventstream.EventStream
}

func spawnCardActor(t *testing.T) cardFixture {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())
	cfg := util.LoadTestConfig()
	names, err := config.ResolveEntityNames(cfg.Card)
	require.NoError(t, err)

	executor := &fakeExecutor{}
	stream := &eventstream.EventStream{}

	as := actorutil.NewActorSystemWithZapLogger(logger)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCardActor(cfg, names, executor, &fakeDurations{}, testClock, stream, logger)
	})
	pid := as.Root.Spawn(props)
	time.Sleep(100 * time.Millisecond)

	return cardFixture{
		context:  as.Root,
		pid:      pid,
		executor: executor,
		names:    names,
		stream:   stream,
	}
}

func (f cardFixture) push(t *testing.T, snap domain.Snapshot) bool {
	t.Helper()
	resp, err := f.context.RequestFuture(f.pid, domain.StatePushRequest{Snapshot: snap}, 2*time.Second).Result()
	require.NoError(t, err)
	pushResp, ok := resp.(domain.StatePushResponse)
	require.True(t, ok)
	return pushResp.Refreshed
}

func (f cardFixture) userAction(t *testing.T, msg any) domain.UserActionResponse {
	t.Helper()
	resp, err := f.context.RequestFuture(f.pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	uaResp, ok := resp.(domain.UserActionResponse)
	require.True(t, ok)
	return uaResp
}

func (f cardFixture) view(t *testing.T) *domain.CardView {
	t.Helper()
	resp, err := f.context.RequestFuture(f.pid, domain.GetCardViewRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	viewResp, ok := resp.(domain.GetCardViewResponse)
	require.True(t, ok)
	return viewResp.View
}

func TestCardActorHealth(t *testing.T) {
	f := spawnCardActor(t)

	resp, err := f.context.RequestFuture(f.pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	hcr, ok := resp.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, hcr.Healthy)
	assert.Equal(t, "running", hcr.State)
}

func TestCardActorRefreshFlow(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)

	// first snapshot always renders
	assert.True(t, f.push(t, snap))

	view := f.view(t)
	require.NotNil(t, view)
	assert.Len(t, view.Sections, 2)

	// identical snapshot: no refresh
	assert.False(t, f.push(t, snap.Clone()))

	// value change on a relevant entity: refresh
	next := snap.Clone()
	next[f.names.ChargeSwitch] = domain.EntityState{EntityID: f.names.ChargeSwitch, Value: domain.SwitchOn}
	assert.True(t, f.push(t, next))

	view = f.view(t)
	charge, ok := view.Section(domain.DirectionCharge)
	require.True(t, ok)
	assert.Equal(t, domain.StatusActive, charge.Status)
}

func TestCardActorInteractionGuard(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)
	require.True(t, f.push(t, snap))

	// editing a time field suppresses snapshot refreshes
	f.userAction(t, domain.FocusChangedRequest{Focus: domain.FocusState{
		ControlID: "charge-end",
		Kind:      domain.ControlTime,
	}})

	next := snap.Clone()
	next[f.names.ChargeEnd] = domain.EntityState{EntityID: f.names.ChargeEnd, Value: "21:00"}
	assert.False(t, f.push(t, next))

	// blur releases the guard; the next push renders
	f.userAction(t, domain.FocusChangedRequest{})
	next2 := next.Clone()
	next2[f.names.ChargeEnd] = domain.EntityState{EntityID: f.names.ChargeEnd, Value: "22:00"}
	assert.True(t, f.push(t, next2))

	// button focus never blocks
	f.userAction(t, domain.FocusChangedRequest{Focus: domain.FocusState{
		ControlID: "charge-enable",
		Kind:      domain.ControlButton,
	}})
	next3 := next2.Clone()
	next3[f.names.ChargeEnd] = domain.EntityState{EntityID: f.names.ChargeEnd, Value: "23:00"}
	assert.True(t, f.push(t, next3))
}

func TestCardActorEnableIssuesWritesAndDeferredSwitchOn(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	resp := f.userAction(t, domain.EnablePressedRequest{Direction: domain.DirectionCharge})
	assert.False(t, resp.HasResponseError())

	// the four schedule writes land immediately
	calls := f.executor.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, domain.SetValue(f.names.ChargeStart, "10:00"), calls[0])
	assert.Equal(t, domain.SetValue(f.names.ChargeEnd, "10:30"), calls[1])
	assert.Equal(t, domain.SetValue(f.names.ChargeDays, "4"), calls[2])
	assert.Equal(t, domain.SetValue(f.names.ChargePower, "500"), calls[3])

	// the switch-on follows after the settle delay
	time.Sleep(900 * time.Millisecond)
	calls = f.executor.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, domain.TurnOn(f.names.ChargeSwitch), calls[4])
}

func TestCardActorEnableExtendsActiveWindow(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)
	snap[f.names.ChargeSwitch] = domain.EntityState{EntityID: f.names.ChargeSwitch, Value: domain.SwitchOn}
	require.True(t, f.push(t, snap))

	resp := f.userAction(t, domain.EnablePressedRequest{Direction: domain.DirectionCharge})
	assert.False(t, resp.HasResponseError())

	calls := f.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.SetValue(f.names.ChargeEnd, "10:30"), calls[0])

	// no deferred switch-on for an extend
	time.Sleep(900 * time.Millisecond)
	assert.Len(t, f.executor.Calls(), 1)
}

func TestCardActorDisable(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)
	snap[f.names.DischargeSwitch] = domain.EntityState{EntityID: f.names.DischargeSwitch, Value: domain.SwitchOn}
	require.True(t, f.push(t, snap))

	f.userAction(t, domain.DisablePressedRequest{Direction: domain.DirectionDischarge})

	calls := f.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.TurnOff(f.names.DischargeSwitch), calls[0])
}

func TestCardActorPowerDragAndCommit(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	// grabbing the slider raises the guard, but the drag itself must render
	f.userAction(t, domain.FocusChangedRequest{Focus: domain.FocusState{
		ControlID: "charge-power",
		Kind:      domain.ControlRange,
	}})
	f.userAction(t, domain.PowerDraggedRequest{Direction: domain.DirectionCharge, Kw: 4.0})
	assert.Empty(t, f.executor.Calls())

	view := f.view(t)
	charge, ok := view.Section(domain.DirectionCharge)
	require.True(t, ok)
	assert.Equal(t, 4.0, charge.Slider.Kw)

	// committing writes the storage value
	f.userAction(t, domain.PowerCommittedRequest{Direction: domain.DirectionCharge, Kw: 4.0})
	calls := f.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.SetValue(f.names.ChargePower, "800"), calls[0])
}

func TestCardActorEndTimeEdit(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	resp := f.userAction(t, domain.EndTimeEditedRequest{Direction: domain.DirectionCharge, Value: "21:15"})
	assert.False(t, resp.Reverted)
	require.Len(t, f.executor.Calls(), 1)
	assert.Equal(t, domain.SetValue(f.names.ChargeEnd, "21:15"), f.executor.Calls()[0])

	// invalid input reverts without a write
	f.executor.Reset()
	resp = f.userAction(t, domain.EndTimeEditedRequest{Direction: domain.DirectionCharge, Value: "25:99"})
	assert.True(t, resp.Reverted)
	assert.Empty(t, f.executor.Calls())
}

func TestCardActorDaysEdit(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	f.userAction(t, domain.DaysEditedRequest{Direction: domain.DirectionCharge, Days: []int{0, 5, 6}})
	calls := f.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.SetValue(f.names.ChargeDays, "97"), calls[0])
}

func TestCardActorDurationChange(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	f.userAction(t, domain.DurationChangedRequest{Direction: domain.DirectionCharge, Minutes: 90})
	assert.Empty(t, f.executor.Calls())

	view := f.view(t)
	charge, ok := view.Section(domain.DirectionCharge)
	require.True(t, ok)
	assert.Equal(t, 90, charge.DurationMinutes)
	assert.Equal(t, "11:30", charge.ProjectedEnd)
}

func TestCardActorFailsafeRefresh(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	renders := make(chan domain.CardRenderedEvent, 4)
	sub := f.stream.Subscribe(func(evt any) {
		if e, ok := evt.(domain.CardRenderedEvent); ok {
			renders <- e
		}
	})
	defer f.stream.Unsubscribe(sub)

	// guard held: the tick must not replace the tree
	f.userAction(t, domain.FocusChangedRequest{Focus: domain.FocusState{
		ControlID: "charge-end",
		Kind:      domain.ControlTime,
	}})
	f.context.Send(f.pid, domain.FailsafeRefreshTick{})
	select {
	case evt := <-renders:
		t.Fatalf("unexpected render during guarded interaction: %+v", evt)
	case <-time.After(300 * time.Millisecond):
	}

	// guard cleared: the tick forces a render even with no snapshot change
	f.userAction(t, domain.FocusChangedRequest{})
	f.context.Send(f.pid, domain.FailsafeRefreshTick{})
	select {
	case evt := <-renders:
		assert.True(t, evt.Forced)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a forced render")
	}
}

func TestCardActorExpiryTick(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)
	snap[f.names.ChargeSwitch] = domain.EntityState{EntityID: f.names.ChargeSwitch, Value: domain.SwitchOn}
	snap[f.names.ChargeEnd] = domain.EntityState{EntityID: f.names.ChargeEnd, Value: "09:30"}
	require.True(t, f.push(t, snap))

	f.context.Send(f.pid, domain.ExpiryCheckTick{})
	time.Sleep(200 * time.Millisecond)

	calls := f.executor.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.TurnOff(f.names.ChargeSwitch), calls[0])
}

func TestCardActorCommandFailurePublishesEvent(t *testing.T) {
	f := spawnCardActor(t)
	require.True(t, f.push(t, cardTestSnapshot(f.names)))

	failures := make(chan domain.CommandFailedEvent, 1)
	sub := f.stream.Subscribe(func(evt any) {
		if e, ok := evt.(domain.CommandFailedEvent); ok {
			failures <- e
		}
	})
	defer f.stream.Unsubscribe(sub)

	f.executor.fail = true
	f.userAction(t, domain.PowerCommittedRequest{Direction: domain.DirectionCharge, Kw: 2.0})

	select {
	case evt := <-failures:
		assert.Equal(t, f.names.ChargePower, evt.EntityID)
		assert.Contains(t, evt.Message, "failed")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a command failure event")
	}
}

func TestCardActorRejectsWriteToUnknownEntity(t *testing.T) {
	f := spawnCardActor(t)
	snap := cardTestSnapshot(f.names)
	delete(snap, f.names.ChargePower)
	require.True(t, f.push(t, snap))

	f.userAction(t, domain.PowerCommittedRequest{Direction: domain.DirectionCharge, Kw: 2.0})
	assert.Empty(t, f.executor.Calls())
}

func TestCardActorLayoutSize(t *testing.T) {
	f := spawnCardActor(t)

	resp, err := f.context.RequestFuture(f.pid, domain.GetLayoutSizeRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	sizeResp, ok := resp.(domain.GetLayoutSizeResponse)
	require.True(t, ok)
	assert.Equal(t, 7, sizeResp.Size)
}
