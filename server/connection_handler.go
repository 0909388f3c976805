// File: server/connection_handler.go
package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/game"
	"github.com/arenabit/rumble/utils"
)

// inboundEnvelope is a decoded client frame delivered by the read loop.
type inboundEnvelope struct {
	env game.Envelope
}

// readClosed signals the socket read loop ended, normally or with error.
type readClosed struct{}

const (
	sessionAwaitingJoin = iota
	sessionQueued
	sessionAssigned
)

// ConnectionHandlerActor owns one websocket session: it runs the read
// loop, gates everything behind the initial joinQueue, and forwards
// gameplay events to the match actor once placed.
type ConnectionHandlerActor struct {
	sessionID     string
	cfg           utils.Config
	ws            *websocket.Conn
	conn          game.PlayerConnection
	matchmakerPID *actor.PID

	state    int
	matchPID *actor.PID

	done     chan struct{}
	doneOnce *sync.Once
}

// NewConnectionHandlerProducer returns a Producer for one session. done is
// closed when the session is over, releasing the blocked HTTP handler.
func NewConnectionHandlerProducer(sessionID string, cfg utils.Config, ws *websocket.Conn, matchmakerPID *actor.PID, done chan struct{}) actor.Producer {
	once := &sync.Once{}
	return func() actor.Actor {
		return &ConnectionHandlerActor{
			sessionID:     sessionID,
			cfg:           cfg,
			ws:            ws,
			conn:          game.NewWSConnection(ws),
			matchmakerPID: matchmakerPID,
			done:          done,
			doneOnce:      once,
		}
	}
}

func (h *ConnectionHandlerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		go h.readLoop(ctx.Engine(), ctx.Self())

	case actor.Stopping:
		if h.state == sessionAssigned && h.matchPID != nil {
			ctx.Engine().Send(h.matchPID, game.PlayerSessionClosed{SessionID: h.sessionID}, ctx.Self())
		}
		h.conn.Close()
		h.signalDone()

	case actor.Stopped:
		h.signalDone()

	case inboundEnvelope:
		h.handleEnvelope(ctx, msg.env)

	case game.AssignedToMatch:
		h.state = sessionAssigned
		h.matchPID = msg.MatchPID
		fmt.Printf("ConnectionHandler %s: assigned to %s\n", h.sessionID, msg.MatchID)

	case game.SessionRejected:
		ctx.Engine().Stop(ctx.Self())

	case readClosed:
		fmt.Printf("ConnectionHandler %s: socket closed\n", h.sessionID)
		ctx.Engine().Stop(ctx.Self())
	}
}

// readLoop pumps frames from the socket into the actor mailbox. Runs on
// its own goroutine; the actor owns all session state.
func (h *ConnectionHandlerActor) readLoop(engine *actor.Engine, self *actor.PID) {
	for {
		var raw []byte
		if err := websocket.Message.Receive(h.ws, &raw); err != nil {
			engine.Send(self, readClosed{}, self)
			return
		}
		var env game.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			fmt.Printf("WARN: ConnectionHandler %s: bad frame: %v\n", h.sessionID, err)
			continue
		}
		engine.Send(self, inboundEnvelope{env: env}, self)
	}
}

func (h *ConnectionHandlerActor) handleEnvelope(ctx actor.Context, env game.Envelope) {
	// Latency probes are answered here; they must not wait on match
	// placement or the simulation.
	if env.Event == "m-ping" {
		h.handlePing(env.Data)
		return
	}

	switch h.state {
	case sessionAwaitingJoin:
		if env.Event != "joinQueue" {
			fmt.Printf("WARN: ConnectionHandler %s: %q before joinQueue, dropped\n", h.sessionID, env.Event)
			return
		}
		h.handleJoinQueue(ctx, env.Data)

	case sessionQueued:
		// Placement is in flight; gameplay events have nowhere to go yet.
		fmt.Printf("WARN: ConnectionHandler %s: %q while queued, dropped\n", h.sessionID, env.Event)

	case sessionAssigned:
		ctx.Engine().Send(h.matchPID, game.ClientEvent{
			SessionID: h.sessionID,
			Event:     env.Event,
			Data:      env.Data,
			Conn:      h.conn,
		}, ctx.Self())
	}
}

func (h *ConnectionHandlerActor) handleJoinQueue(ctx actor.Context, data json.RawMessage) {
	var payload game.JoinQueuePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.rejectAndClose(ctx, "malformed joinQueue payload")
		return
	}

	region := strings.ToUpper(strings.TrimSpace(payload.Region))
	if !h.cfg.IsValidRegion(region) {
		h.rejectAndClose(ctx, fmt.Sprintf("invalid region %q", payload.Region))
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = "Player"
	}

	h.state = sessionQueued
	ctx.Engine().Send(h.matchmakerPID, game.EnqueuePlayer{
		SessionID:     h.sessionID,
		Region:        region,
		Name:          name,
		PlayerMatchID: payload.PlayerMatchID,
		Conn:          h.conn,
		HandlerPID:    ctx.Self(),
	}, ctx.Self())
}

// handlePing echoes the opaque payload back with the server clock added.
func (h *ConnectionHandlerActor) handlePing(data json.RawMessage) {
	echo := map[string]interface{}{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &echo); err != nil {
			echo = map[string]interface{}{}
		}
	}
	echo["serverTime"] = utils.NowMS()
	if err := h.conn.Emit("m-pong", echo); err != nil {
		fmt.Printf("WARN: ConnectionHandler %s: m-pong failed: %v\n", h.sessionID, err)
	}
}

func (h *ConnectionHandlerActor) rejectAndClose(ctx actor.Context, reason string) {
	fmt.Printf("WARN: ConnectionHandler %s: %s\n", h.sessionID, reason)
	if err := h.conn.Emit("error", game.NoticeMessage{Message: reason}); err != nil {
		fmt.Printf("WARN: ConnectionHandler %s: error emit failed: %v\n", h.sessionID, err)
	}
	h.conn.Close()
	ctx.Engine().Stop(ctx.Self())
}

func (h *ConnectionHandlerActor) signalDone() {
	h.doneOnce.Do(func() {
		close(h.done)
	})
}
