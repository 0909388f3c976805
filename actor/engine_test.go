package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoActor records received messages and lifecycle events.
type echoActor struct {
	mu       sync.Mutex
	received []interface{}
	started  bool
	stopping bool
}

func (a *echoActor) Receive(ctx Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch ctx.Message().(type) {
	case Started:
		a.started = true
	case Stopping:
		a.stopping = true
	case Stopped:
	default:
		a.received = append(a.received, ctx.Message())
	}
}

func (a *echoActor) snapshot() (bool, bool, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started, a.stopping, len(a.received)
}

func TestSpawnDeliversStartedThenMessages(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(time.Second)

	echo := &echoActor{}
	pid := engine.Spawn(NewProps(func() Actor { return echo }))
	require.NotNil(t, pid)

	engine.Send(pid, "hello", nil)
	engine.Send(pid, 42, nil)

	require.Eventually(t, func() bool {
		started, _, n := echo.snapshot()
		return started && n == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopDeliversStoppingAndRemoves(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(time.Second)

	echo := &echoActor{}
	pid := engine.Spawn(NewProps(func() Actor { return echo }))
	require.NotNil(t, pid)

	engine.Stop(pid)
	require.Eventually(t, func() bool {
		_, stopping, _ := echo.snapshot()
		return stopping
	}, 2*time.Second, 5*time.Millisecond)

	// Messages to a stopped actor are dropped, not delivered.
	require.Eventually(t, func() bool {
		engine.mu.RLock()
		defer engine.mu.RUnlock()
		_, alive := engine.actors[pid.ID]
		return !alive
	}, 2*time.Second, 5*time.Millisecond)

	engine.Send(pid, "late", nil)
	_, _, n := echo.snapshot()
	assert.Zero(t, n)
}

func TestPanicInReceiveDoesNotKillProcess(t *testing.T) {
	engine := NewEngine()
	defer engine.Shutdown(time.Second)

	echo := &echoActor{}
	panicky := func() Actor {
		return actorFunc(func(ctx Context) {
			if msg, ok := ctx.Message().(string); ok && msg == "boom" {
				panic("boom")
			}
			echo.Receive(ctx)
		})
	}
	pid := engine.Spawn(NewProps(panicky))
	require.NotNil(t, pid)

	engine.Send(pid, "boom", nil)
	engine.Send(pid, "after", nil)

	require.Eventually(t, func() bool {
		_, _, n := echo.snapshot()
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestShutdownStopsAllActors(t *testing.T) {
	engine := NewEngine()

	actors := make([]*echoActor, 5)
	for i := range actors {
		actors[i] = &echoActor{}
		a := actors[i]
		require.NotNil(t, engine.Spawn(NewProps(func() Actor { return a })))
	}

	engine.Shutdown(2 * time.Second)

	for _, a := range actors {
		_, stopping, _ := a.snapshot()
		assert.True(t, stopping)
	}
	assert.Nil(t, engine.Spawn(NewProps(func() Actor { return &echoActor{} })), "no spawns after shutdown")
}

// actorFunc adapts a function to the Actor interface.
type actorFunc func(ctx Context)

func (f actorFunc) Receive(ctx Context) { f(ctx) }
