// File: game/messages.go
package game

import (
	"encoding/json"

	"github.com/arenabit/rumble/actor"
)

// Client -> server payloads.

// JoinQueuePayload is the first message every session must send.
type JoinQueuePayload struct {
	Region        string `json:"region"`
	Name          string `json:"name"`
	PlayerMatchID string `json:"playerMatchId,omitempty"`
}

// ProjectileHitPayload reports a client-detected hit.
type ProjectileHitPayload struct {
	EnemyID      string `json:"enemyId"`
	ProjectileID string `json:"projectileId"`
}

// Server -> client payloads.

// MatchFoundMessage confirms placement before the first state update.
type MatchFoundMessage struct {
	MatchID  string `json:"matchId"`
	Region   string `json:"region"`
	PlayerID string `json:"playerId"`
}

// RejoinedMessage confirms a reconnect inside the grace period.
type RejoinedMessage struct {
	MatchID string `json:"matchId"`
	Region  string `json:"region"`
}

// ProjectileUpdate is the broadcast form of a projectile event. A spawn
// carries position, velocity and owner; a confirmed hit carries dud=true.
type ProjectileUpdate struct {
	ID      string   `json:"id"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	VX      *float64 `json:"vx,omitempty"`
	VY      *float64 `json:"vy,omitempty"`
	OwnerID *string  `json:"ownerId,omitempty"`
	Dud     *bool    `json:"dud,omitempty"`
}

// StateUpdateMessage is the per-tick broadcast.
type StateUpdateMessage struct {
	STick       int64              `json:"sTick"`
	STime       int64              `json:"sTime"`
	Players     []PlayerSnapshot   `json:"players"`
	Projectiles []ProjectileUpdate `json:"projectiles"`
}

// ScoreEntry is one row of the gameOver scoreboard.
type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Name     string `json:"name"`
}

// NoticeMessage carries a human-readable message (afkWarning, afkRemoved,
// error).
type NoticeMessage struct {
	Message string `json:"message"`
}

// Actor messages. Matchmaker mailbox:

// EnqueuePlayer asks the matchmaker to place a session. Conn is the
// session transport, HandlerPID the connection handler to notify of the
// assigned match actor.
type EnqueuePlayer struct {
	SessionID     string
	Region        string
	Name          string
	PlayerMatchID string
	Conn          PlayerConnection
	HandlerPID    *actor.PID
}

// DriverTick is posted by the matchmaker's own ticker goroutine.
type DriverTick struct{}

// MatchEmptied is reported by a match actor whose last player left.
type MatchEmptied struct {
	MatchID string
}

// MatchPlayerLeft is reported by a match actor when a player is destroyed
// but the match stays alive.
type MatchPlayerLeft struct {
	MatchID string
}

// DisconnectRecorded indexes a disconnected player for reconnect routing.
type DisconnectRecorded struct {
	PlayerMatchID string
	MatchID       string
}

// ReconnectCleared drops a disconnected-player index entry, either because
// the player rejoined or because the grace period expired.
type ReconnectCleared struct {
	PlayerMatchID string
}

// ShowLiveRequested arms the one-shot showIsLive flag; the next driver
// pass tells every match to announce it.
type ShowLiveRequested struct{}

// Match mailbox:

// AddPlayerMsg places a fresh session in the match.
type AddPlayerMsg struct {
	SessionID  string
	Name       string
	Region     string
	Conn       PlayerConnection
	HandlerPID *actor.PID
}

// RejoinPlayerMsg reattaches a session to a retained disconnected player.
type RejoinPlayerMsg struct {
	SessionID     string
	PlayerMatchID string
	Region        string
	Conn          PlayerConnection
	HandlerPID    *actor.PID
}

// ClientEvent is a decoded envelope forwarded by a connection handler.
type ClientEvent struct {
	SessionID string
	Event     string
	Data      json.RawMessage
	Conn      PlayerConnection
}

// PlayerSessionClosed signals the socket read loop ended.
type PlayerSessionClosed struct {
	SessionID string
}

// AdvanceAndBroadcast is the driver's per-tick command: run the
// accumulator, then broadcast.
type AdvanceAndBroadcast struct {
	NowMS int64
}

// InformShowIsLive tells a match to emit showIsLive to its room.
type InformShowIsLive struct{}

// CleanUpSessionMsg tears the match down during shutdown.
type CleanUpSessionMsg struct{}

// Timer-fired messages, posted by time.AfterFunc back into the match
// actor's mailbox so all state stays on the actor goroutine.

// RespawnTimerFired revives a dead player after the respawn delay.
type RespawnTimerFired struct {
	PlayerMatchID string
}

// ResetTimerFired resets the match after the post-round delay.
type ResetTimerFired struct{}

// AFKRemoveTimerFired removes a warned player who stayed silent.
type AFKRemoveTimerFired struct {
	PlayerMatchID string
}

// Connection handler mailbox:

// AssignedToMatch tells a connection handler which match actor now owns
// its session's gameplay events.
type AssignedToMatch struct {
	MatchPID *actor.PID
	MatchID  string
}

// SessionRejected tells a connection handler placement failed; the error
// envelope has already been emitted.
type SessionRejected struct{}
