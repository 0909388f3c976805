package actor

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

const defaultMailboxSize = 1024

type messageEnvelope struct {
	Sender  *PID
	Message interface{}
}

// process is the running instance of an actor: its goroutine, mailbox and
// stop signalling.
type process struct {
	engine  *Engine
	pid     *PID
	actor   Actor
	mailbox chan *messageEnvelope
	props   *Props
	stopCh  chan struct{}
	stopped atomic.Bool
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: make(chan *messageEnvelope, defaultMailboxSize),
		stopCh:  make(chan struct{}),
	}
}

// sendMessage enqueues a message in the actor's mailbox. User messages to a
// stopped actor are dropped; lifecycle messages pass through. A full
// mailbox drops the message rather than blocking the sender — a slow match
// must never stall the gateway or the matchmaker.
func (p *process) sendMessage(message interface{}, sender *PID) {
	_, isStopping := message.(Stopping)
	_, isStopped := message.(Stopped)
	if p.stopped.Load() && !isStopping && !isStopped {
		return
	}

	envelope := &messageEnvelope{Sender: sender, Message: message}

	select {
	case p.mailbox <- envelope:
	default:
		fmt.Printf("Actor %s mailbox full, dropping message type %T\n", p.pid.ID, message)
	}
}

// run is the main loop for the actor process.
func (p *process) run() {
	defer func() {
		p.stopped.Store(true)
		if p.actor != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						fmt.Printf("Actor %s panicked during Stopped processing: %v\n", p.pid.ID, r)
					}
				}()
				p.invokeReceive(Stopped{}, nil)
			}()
		}
		// Remove from engine after the Stopped message is processed.
		p.engine.remove(p.pid)
	}()

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Actor %s panicked: %v\nStack trace:\n%s\n", p.pid.ID, r, string(debug.Stack()))
			p.stopped.Store(true)
			select {
			case <-p.stopCh:
			default:
				close(p.stopCh)
			}
		}
	}()

	p.actor = p.props.Produce()
	if p.actor == nil {
		panic(fmt.Sprintf("Actor %s producer returned nil actor", p.pid.ID))
	}

	for {
		select {
		case <-p.stopCh:
			if p.stopped.CompareAndSwap(false, true) {
				// Stop requested without a Stopping message reaching the
				// mailbox; invoke the handler now so cleanup still runs.
				p.invokeReceive(Stopping{}, nil)
			}
			return

		case envelope, ok := <-p.mailbox:
			if !ok {
				fmt.Printf("Actor %s mailbox closed unexpectedly.\n", p.pid.ID)
				p.stopped.Store(true)
				select {
				case <-p.stopCh:
				default:
					close(p.stopCh)
				}
				return
			}

			_, isStopping := envelope.Message.(Stopping)
			_, isStoppedMsg := envelope.Message.(Stopped)
			if p.stopped.Load() && !isStopping && !isStoppedMsg {
				continue
			}

			switch msg := envelope.Message.(type) {
			case Started:
				p.invokeReceive(msg, envelope.Sender)
			case Stopping:
				if p.stopped.CompareAndSwap(false, true) {
					p.invokeReceive(msg, envelope.Sender)
					select {
					case <-p.stopCh:
					default:
						close(p.stopCh)
					}
				}
			case Stopped:
				fmt.Printf("Actor %s received unexpected Stopped message via mailbox.\n", p.pid.ID)
			default:
				p.invokeReceive(envelope.Message, envelope.Sender)
			}
		}
	}
}

// invokeReceive calls the actor's Receive method within a protected context.
func (p *process) invokeReceive(msg interface{}, sender *PID) {
	ctx := &messageContext{
		engine:  p.engine,
		self:    p.pid,
		sender:  sender,
		message: msg,
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("Actor %s panicked during Receive(%T): %v\nStack trace:\n%s\n", p.pid.ID, msg, r, string(debug.Stack()))
			}
		}()
		p.actor.Receive(ctx)
	}()
}
