// File: game/match_actor.go
package game

import (
	"fmt"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/utils"
)

// MatchActor owns one Match and serializes all access to it through its
// mailbox. Timers fire back into the same mailbox, so the Match never sees
// two goroutines.
type MatchActor struct {
	id      string
	region  string
	cfg     utils.Config
	hooks   MatchmakerHooks
	metrics MetricsRecorder

	match *Match
}

// NewMatchActorProducer returns a Producer for spawning a match actor.
func NewMatchActorProducer(id, region string, cfg utils.Config, hooks MatchmakerHooks, metrics MetricsRecorder) actor.Producer {
	return func() actor.Actor {
		return &MatchActor{
			id:      id,
			region:  region,
			cfg:     cfg,
			hooks:   hooks,
			metrics: metrics,
		}
	}
}

func (a *MatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		engine := ctx.Engine()
		self := ctx.Self()
		a.match = NewMatch(a.id, a.region, a.cfg, a.hooks, a.metrics, func(m interface{}) {
			engine.Send(self, m, self)
		})
		fmt.Printf("MatchActor %s: started (region %s)\n", a.id, a.region)

	case actor.Stopping:
		if a.match != nil {
			a.match.CleanUpSession()
		}
		fmt.Printf("MatchActor %s: stopping\n", a.id)

	case actor.Stopped:

	case AddPlayerMsg:
		playerID, err := a.match.AddPlayer(msg.SessionID, msg.Name, msg.Conn, utils.NowMS())
		if err != nil {
			a.rejectSession(ctx, msg.Conn, msg.HandlerPID, err.Error())
			return
		}
		fmt.Printf("MatchActor %s: session %s assigned as %s\n", a.id, msg.SessionID, playerID)
		ctx.Engine().Send(msg.HandlerPID, AssignedToMatch{MatchPID: ctx.Self(), MatchID: a.id}, ctx.Self())

	case RejoinPlayerMsg:
		if err := a.match.RejoinPlayer(msg.SessionID, msg.PlayerMatchID, msg.Conn, utils.NowMS()); err != nil {
			a.rejectSession(ctx, msg.Conn, msg.HandlerPID, "reconnect failed: "+err.Error())
			return
		}
		ctx.Engine().Send(msg.HandlerPID, AssignedToMatch{MatchPID: ctx.Self(), MatchID: a.id}, ctx.Self())

	case ClientEvent:
		a.match.HandleClientEvent(msg.SessionID, msg.Event, msg.Data, utils.NowMS())

	case PlayerSessionClosed:
		a.match.HandleSessionClosed(msg.SessionID, utils.NowMS())

	case AdvanceAndBroadcast:
		a.match.Advance(msg.NowMS)
		a.match.BroadcastGameState(msg.NowMS)

	case InformShowIsLive:
		a.match.InformShowIsLive()

	case RespawnTimerFired:
		a.match.HandleRespawnTimer(msg.PlayerMatchID)

	case ResetTimerFired:
		a.match.HandleResetTimer()

	case AFKRemoveTimerFired:
		a.match.HandleAFKRemoveTimer(msg.PlayerMatchID, utils.NowMS())

	case CleanUpSessionMsg:
		a.match.CleanUpSession()
	}
}

// rejectSession emits an error envelope, closes the transport and tells
// the connection handler the placement failed.
func (a *MatchActor) rejectSession(ctx actor.Context, conn PlayerConnection, handlerPID *actor.PID, reason string) {
	fmt.Printf("WARN: MatchActor %s: %s\n", a.id, reason)
	if a.metrics != nil {
		a.metrics.RecordError()
	}
	if conn != nil {
		if err := conn.Emit("error", NoticeMessage{Message: reason}); err != nil {
			fmt.Printf("WARN: MatchActor %s: error emit failed: %v\n", a.id, err)
		}
		conn.Close()
	}
	ctx.Engine().Send(handlerPID, SessionRejected{}, ctx.Self())
}
