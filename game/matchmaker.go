// File: game/matchmaker.go
package game

import (
	"fmt"
	"time"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/utils"
)

// MatchmakerMetrics is the aggregator surface the matchmaker needs: the
// per-match recorders it hands down, plus driver loop timing.
type MatchmakerMetrics interface {
	MetricsRecorder
	RecordLoopDuration(d time.Duration)
}

// matchEntry is the matchmaker's view of one live match. count tracks
// expected occupancy; the authoritative player map lives in the match
// actor and reports changes back by message.
type matchEntry struct {
	id     string
	region string
	pid    *actor.PID
	count  int
}

// MatchmakerActor owns the match registry and the disconnected-player
// index, routes joinQueue requests, and runs the global driver that ticks
// every match at the configured rate.
type MatchmakerActor struct {
	cfg     utils.Config
	metrics MatchmakerMetrics

	engine *actor.Engine
	self   *actor.PID

	entries []*matchEntry // insertion order, first-fit scans this
	byID    map[string]*matchEntry

	disconnected map[string]string // playerMatchID -> matchID

	showLivePending bool
	driverStop      chan struct{}
}

// NewMatchmakerProducer returns a Producer for the singleton matchmaker.
func NewMatchmakerProducer(cfg utils.Config, metrics MatchmakerMetrics) actor.Producer {
	return func() actor.Actor {
		return &MatchmakerActor{
			cfg:          cfg,
			metrics:      metrics,
			byID:         make(map[string]*matchEntry),
			disconnected: make(map[string]string),
		}
	}
}

func (mm *MatchmakerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		mm.engine = ctx.Engine()
		mm.self = ctx.Self()
		mm.driverStop = make(chan struct{})
		go mm.runDriver()
		fmt.Printf("Matchmaker: started, driving matches at %d Hz\n", mm.cfg.TickRate)

	case actor.Stopping:
		if mm.driverStop != nil {
			close(mm.driverStop)
		}
		for _, entry := range mm.entries {
			mm.engine.Send(entry.pid, CleanUpSessionMsg{}, mm.self)
			mm.engine.Stop(entry.pid)
		}
		mm.entries = nil
		mm.byID = make(map[string]*matchEntry)
		mm.disconnected = make(map[string]string)
		fmt.Printf("Matchmaker: stopped\n")

	case actor.Stopped:

	case EnqueuePlayer:
		mm.handleEnqueue(msg)

	case DriverTick:
		mm.handleDriverTick()

	case MatchEmptied:
		mm.reapMatch(msg.MatchID)

	case MatchPlayerLeft:
		if entry, ok := mm.byID[msg.MatchID]; ok && entry.count > 0 {
			entry.count--
		}

	case DisconnectRecorded:
		mm.disconnected[msg.PlayerMatchID] = msg.MatchID

	case ReconnectCleared:
		delete(mm.disconnected, msg.PlayerMatchID)

	case ShowLiveRequested:
		mm.showLivePending = true
	}
}

// handleEnqueue routes one session: reconnects go back to their retained
// match, everyone else lands in the first same-region match with space, or
// a fresh one.
func (mm *MatchmakerActor) handleEnqueue(msg EnqueuePlayer) {
	if msg.PlayerMatchID != "" {
		matchID, retained := mm.disconnected[msg.PlayerMatchID]
		entry, live := mm.byID[matchID]
		if !retained || !live {
			fmt.Printf("WARN: Matchmaker: reconnect for %s has no retained match\n", msg.PlayerMatchID)
			if mm.metrics != nil {
				mm.metrics.RecordError()
			}
			if msg.Conn != nil {
				msg.Conn.Emit("error", NoticeMessage{Message: "match no longer available"})
				msg.Conn.Close()
			}
			mm.engine.Send(msg.HandlerPID, SessionRejected{}, mm.self)
			return
		}
		mm.engine.Send(entry.pid, RejoinPlayerMsg{
			SessionID:     msg.SessionID,
			PlayerMatchID: msg.PlayerMatchID,
			Region:        entry.region,
			Conn:          msg.Conn,
			HandlerPID:    msg.HandlerPID,
		}, mm.self)
		return
	}

	for _, entry := range mm.entries {
		if entry.region == msg.Region && entry.count < mm.cfg.MaxPlayersPerMatch {
			entry.count++
			mm.routeJoin(entry, msg)
			return
		}
	}

	entry := mm.createMatch(msg.Region)
	if entry == nil {
		if msg.Conn != nil {
			msg.Conn.Emit("error", NoticeMessage{Message: "server is shutting down"})
			msg.Conn.Close()
		}
		mm.engine.Send(msg.HandlerPID, SessionRejected{}, mm.self)
		return
	}
	entry.count++
	mm.routeJoin(entry, msg)
}

func (mm *MatchmakerActor) routeJoin(entry *matchEntry, msg EnqueuePlayer) {
	mm.engine.Send(entry.pid, AddPlayerMsg{
		SessionID:  msg.SessionID,
		Name:       msg.Name,
		Region:     entry.region,
		Conn:       msg.Conn,
		HandlerPID: msg.HandlerPID,
	}, mm.self)
}

// createMatch spawns a new match actor and registers it.
func (mm *MatchmakerActor) createMatch(region string) *matchEntry {
	id := utils.NewMatchID()
	hooks := matchmakerHooks{engine: mm.engine, pid: mm.self}
	var rec MetricsRecorder
	if mm.metrics != nil {
		rec = mm.metrics
	}
	pid := mm.engine.Spawn(actor.NewProps(NewMatchActorProducer(id, region, mm.cfg, hooks, rec)))
	if pid == nil {
		return nil
	}
	entry := &matchEntry{id: id, region: region, pid: pid}
	mm.entries = append(mm.entries, entry)
	mm.byID[id] = entry
	fmt.Printf("Matchmaker: created %s (region %s), %d matches live\n", id, region, len(mm.entries))
	return entry
}

// reapMatch removes an emptied match. The registry entry goes first so a
// join racing the reap creates a fresh match instead of targeting a dying
// actor.
func (mm *MatchmakerActor) reapMatch(matchID string) {
	entry, ok := mm.byID[matchID]
	if !ok {
		return
	}
	delete(mm.byID, matchID)
	for i, e := range mm.entries {
		if e.id == matchID {
			mm.entries = append(mm.entries[:i], mm.entries[i+1:]...)
			break
		}
	}
	for playerID, mid := range mm.disconnected {
		if mid == matchID {
			delete(mm.disconnected, playerID)
		}
	}
	mm.engine.Send(entry.pid, CleanUpSessionMsg{}, mm.self)
	mm.engine.Stop(entry.pid)
	fmt.Printf("Matchmaker: reaped %s, %d matches live\n", matchID, len(mm.entries))
}

// handleDriverTick fans the per-tick advance out to every match and times
// the pass.
func (mm *MatchmakerActor) handleDriverTick() {
	start := time.Now()
	nowMS := utils.NowMS()

	showLive := mm.showLivePending
	mm.showLivePending = false

	for _, entry := range mm.entries {
		if showLive {
			mm.engine.Send(entry.pid, InformShowIsLive{}, mm.self)
		}
		mm.engine.Send(entry.pid, AdvanceAndBroadcast{NowMS: nowMS}, mm.self)
	}

	if mm.metrics != nil {
		mm.metrics.RecordLoopDuration(time.Since(start))
	}
}

// runDriver posts DriverTick into the matchmaker's own mailbox at the
// configured rate until stopped.
func (mm *MatchmakerActor) runDriver() {
	ticker := time.NewTicker(mm.cfg.DriverPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-mm.driverStop:
			return
		case <-ticker.C:
			mm.engine.Send(mm.self, DriverTick{}, nil)
		}
	}
}

// matchmakerHooks relays match callbacks to the matchmaker's mailbox so
// registry state is only ever touched on the matchmaker goroutine.
type matchmakerHooks struct {
	engine *actor.Engine
	pid    *actor.PID
}

func (h matchmakerHooks) OnDisconnect(playerMatchID, matchID string) {
	h.engine.Send(h.pid, DisconnectRecorded{PlayerMatchID: playerMatchID, MatchID: matchID}, nil)
}

func (h matchmakerHooks) OnReconnectCleared(playerMatchID string) {
	h.engine.Send(h.pid, ReconnectCleared{PlayerMatchID: playerMatchID}, nil)
}

func (h matchmakerHooks) OnMatchEmpty(matchID string) {
	h.engine.Send(h.pid, MatchEmptied{MatchID: matchID}, nil)
}

func (h matchmakerHooks) OnPlayerLeft(matchID string) {
	h.engine.Send(h.pid, MatchPlayerLeft{MatchID: matchID}, nil)
}
