// Package actor is a minimal mailbox-per-goroutine actor engine. Each
// actor owns its state and processes one message at a time, which is the
// serializability guarantee the simulation relies on: no two operations on
// the same match observe intermediate state.
package actor

// Actor is implemented by anything that can receive messages.
type Actor interface {
	Receive(ctx Context)
}

// Producer creates a fresh actor instance when a process starts.
type Producer func() Actor

// Props describes how to construct an actor.
type Props struct {
	producer Producer
}

// NewProps creates Props from a Producer.
func NewProps(producer Producer) *Props {
	return &Props{producer: producer}
}

// Produce instantiates the actor.
func (p *Props) Produce() Actor {
	return p.producer()
}

// Started is delivered once, before any user message.
type Started struct{}

// Stopping is delivered when a stop was requested; the actor should release
// timers and connections here.
type Stopping struct{}

// Stopped is delivered after the mailbox loop has exited.
type Stopped struct{}
