// File: game/match.go
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/arenabit/rumble/utils"
)

var (
	ErrMatchFull       = errors.New("match is full")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrNotDisconnected = errors.New("player is not disconnected")
)

// MatchmakerHooks is the narrow callback surface a match uses to report
// back to the matchmaker. It is implemented with message sends, never with
// direct state access, so a match holds no pointer into matchmaker state.
// OnPlayerLeft releases one occupancy slot, whether a player departed or a
// routed join turned out not to add anyone.
type MatchmakerHooks interface {
	OnDisconnect(playerMatchID, matchID string)
	OnReconnectCleared(playerMatchID string)
	OnMatchEmpty(matchID string)
	OnPlayerLeft(matchID string)
}

// MetricsRecorder is the slice of the aggregator a match touches. Nil is
// allowed; every call site guards.
type MetricsRecorder interface {
	RecordConnect(playerID string)
	RecordDisconnect()
	RecordReconnect()
	RecordBroadcast(bytes int)
	RecordError()
	RecordRateLimited()
	RecordRound()
}

// rateWindow is the fixed-window input counter for one player.
type rateWindow struct {
	count       int
	windowStart int64
}

// Match holds the full authoritative state of one game room. It is plain
// single-goroutine state; MatchActor owns it and serializes access through
// its mailbox. Tests drive it directly with explicit clocks.
type Match struct {
	ID     string
	Region string

	cfg utils.Config

	players  map[string]*Player          // playerMatchID -> player
	conns    map[string]PlayerConnection // playerMatchID -> live transport
	sessions map[string]string           // sessionID -> playerMatchID

	platforms []*Platform

	serverTick  int64
	accumulator float64
	lastUpdate  int64 // ms, 0 until first Advance

	matchActive    bool // false while awaiting reset after gameOver
	resetScheduled bool
	shouldRemove   bool

	pendingFullState  bool
	projectileUpdates map[string]*ProjectileUpdate
	projectileOrder   []string
	projectileOwners  map[string]string // projectileID -> playerMatchID

	respawnQueue      map[string]bool
	afkWarned         map[string]bool
	disconnectCleanup map[string]int64 // playerMatchID -> deadline ms
	lastSweepMS       int64

	rate map[string]*rateWindow

	hooks   MatchmakerHooks
	metrics MetricsRecorder

	// timers are one-shot time.AfterFunc handles keyed by purpose, e.g.
	// "respawn:<id>". Each fires by posting a typed message through post,
	// so the handler runs on the owning actor's goroutine.
	timers map[string]*time.Timer
	post   func(msg interface{})
}

// NewMatch creates an active, empty match. post receives timer-fired
// messages and must deliver them to whatever goroutine owns this match.
func NewMatch(id, region string, cfg utils.Config, hooks MatchmakerHooks, metrics MetricsRecorder, post func(msg interface{})) *Match {
	return &Match{
		ID:                id,
		Region:            region,
		cfg:               cfg,
		players:           make(map[string]*Player),
		conns:             make(map[string]PlayerConnection),
		sessions:          make(map[string]string),
		platforms:         DefaultPlatforms(),
		matchActive:       true,
		projectileUpdates: make(map[string]*ProjectileUpdate),
		projectileOwners:  make(map[string]string),
		respawnQueue:      make(map[string]bool),
		afkWarned:         make(map[string]bool),
		disconnectCleanup: make(map[string]int64),
		rate:              make(map[string]*rateWindow),
		timers:            make(map[string]*time.Timer),
		hooks:             hooks,
		metrics:           metrics,
		post:              post,
	}
}

// PlayerCount is the number of retained players, disconnected included.
func (m *Match) PlayerCount() int { return len(m.players) }

// HasSpace reports whether another player fits.
func (m *Match) HasSpace() bool { return len(m.players) < m.cfg.MaxPlayersPerMatch }

// ShouldRemove reports whether the match has emptied out.
func (m *Match) ShouldRemove() bool { return m.shouldRemove }

// ServerTick is the current simulation tick.
func (m *Match) ServerTick() int64 { return m.serverTick }

// Player looks up a player by match id.
func (m *Match) Player(playerMatchID string) (*Player, bool) {
	p, ok := m.players[playerMatchID]
	return p, ok
}

// AddPlayer places a fresh session in the match and emits matchFound. The
// player id is derived from the session id and match id; if the derivation
// collides with a present player the existing identity is reused and the
// new transport takes over.
func (m *Match) AddPlayer(sessionID, name string, conn PlayerConnection, nowMS int64) (string, error) {
	playerMatchID := utils.DerivePlayerMatchID(sessionID, m.ID)

	if _, exists := m.players[playerMatchID]; !exists {
		if !m.HasSpace() {
			m.hooks.OnPlayerLeft(m.ID)
			return "", ErrMatchFull
		}
		p := NewPlayer(playerMatchID, name)
		p.LastInputTimestamp = nowMS
		m.players[playerMatchID] = p
		if m.metrics != nil {
			m.metrics.RecordConnect(playerMatchID)
		}
		fmt.Printf("Match %s: player %s (%s) joined, %d in room\n", m.ID, playerMatchID, name, len(m.players))
	} else {
		// No new occupant; give back the slot the matchmaker reserved
		// when it routed this join.
		m.hooks.OnPlayerLeft(m.ID)
	}

	m.conns[playerMatchID] = conn
	m.sessions[sessionID] = playerMatchID
	m.pendingFullState = true

	m.emitTo(playerMatchID, "matchFound", MatchFoundMessage{
		MatchID:  m.ID,
		Region:   m.Region,
		PlayerID: playerMatchID,
	})
	return playerMatchID, nil
}

// RejoinPlayer reattaches a new session to a player retained inside the
// disconnect grace period.
func (m *Match) RejoinPlayer(sessionID, playerMatchID string, conn PlayerConnection, nowMS int64) error {
	p, ok := m.players[playerMatchID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !p.IsDisconnected {
		return ErrNotDisconnected
	}

	p.IsDisconnected = false
	p.LastInputTimestamp = nowMS
	delete(m.disconnectCleanup, playerMatchID)
	delete(m.afkWarned, playerMatchID)
	m.cancelTimer("afkremove:" + playerMatchID)

	m.conns[playerMatchID] = conn
	m.sessions[sessionID] = playerMatchID
	m.pendingFullState = true

	m.hooks.OnReconnectCleared(playerMatchID)
	if m.metrics != nil {
		m.metrics.RecordReconnect()
	}

	m.emitTo(playerMatchID, "rejoinedMatch", RejoinedMessage{MatchID: m.ID, Region: m.Region})
	fmt.Printf("Match %s: player %s rejoined within grace period\n", m.ID, playerMatchID)
	return nil
}

// HandleSessionClosed marks the session's player disconnected and starts
// the grace period. Unknown sessions are ignored; the socket may have
// closed before joinQueue completed.
func (m *Match) HandleSessionClosed(sessionID string, nowMS int64) {
	playerMatchID, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	delete(m.sessions, sessionID)

	p, ok := m.players[playerMatchID]
	if !ok {
		return
	}

	p.IsDisconnected = true
	delete(m.conns, playerMatchID)
	delete(m.afkWarned, playerMatchID)
	m.cancelTimer("afkremove:" + playerMatchID)
	m.disconnectCleanup[playerMatchID] = nowMS + m.cfg.GracePeriod.Milliseconds()

	m.hooks.OnDisconnect(playerMatchID, m.ID)
	if m.metrics != nil {
		m.metrics.RecordDisconnect()
	}
	fmt.Printf("Match %s: player %s disconnected, grace period started\n", m.ID, playerMatchID)
}

// destroyPlayer removes a player permanently and reports occupancy changes
// to the matchmaker.
func (m *Match) destroyPlayer(playerMatchID, reason string) {
	if _, ok := m.players[playerMatchID]; !ok {
		return
	}
	delete(m.players, playerMatchID)
	delete(m.conns, playerMatchID)
	delete(m.disconnectCleanup, playerMatchID)
	delete(m.respawnQueue, playerMatchID)
	delete(m.afkWarned, playerMatchID)
	delete(m.rate, playerMatchID)
	m.cancelTimer("respawn:" + playerMatchID)
	m.cancelTimer("afkremove:" + playerMatchID)
	for sid, pid := range m.sessions {
		if pid == playerMatchID {
			delete(m.sessions, sid)
		}
	}
	m.hooks.OnReconnectCleared(playerMatchID)
	fmt.Printf("Match %s: player %s removed (%s), %d remain\n", m.ID, playerMatchID, reason, len(m.players))

	if len(m.players) == 0 {
		m.shouldRemove = true
		m.hooks.OnMatchEmpty(m.ID)
	} else {
		m.hooks.OnPlayerLeft(m.ID)
	}
}

// CleanUpSession tears the match down: every timer cancelled, every
// transport closed, all state dropped. Safe to call more than once.
func (m *Match) CleanUpSession() {
	for key, t := range m.timers {
		t.Stop()
		delete(m.timers, key)
	}
	for id, conn := range m.conns {
		if err := conn.Close(); err != nil {
			fmt.Printf("Match %s: close failed for %s: %v\n", m.ID, id, err)
		}
	}
	m.players = make(map[string]*Player)
	m.conns = make(map[string]PlayerConnection)
	m.sessions = make(map[string]string)
	m.projectileUpdates = make(map[string]*ProjectileUpdate)
	m.projectileOrder = nil
	m.projectileOwners = make(map[string]string)
	m.respawnQueue = make(map[string]bool)
	m.afkWarned = make(map[string]bool)
	m.disconnectCleanup = make(map[string]int64)
	m.shouldRemove = true
}

// scheduleTimer arms a one-shot timer under key, replacing any previous
// timer with the same key. The fired callback only posts msg; all state
// changes happen when the owning goroutine processes it.
func (m *Match) scheduleTimer(key string, d time.Duration, msg interface{}) {
	m.cancelTimer(key)
	post := m.post
	m.timers[key] = time.AfterFunc(d, func() {
		post(msg)
	})
}

// cancelTimer stops and forgets the timer under key, if any.
func (m *Match) cancelTimer(key string) {
	if t, ok := m.timers[key]; ok {
		t.Stop()
		delete(m.timers, key)
	}
}
