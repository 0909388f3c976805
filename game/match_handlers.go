// File: game/match_handlers.go
package game

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/arenabit/rumble/utils"
)

// HandleClientEvent dispatches a decoded envelope from a connection
// handler. Events for sessions or players the match does not know are
// dropped with a warning; a client racing its own disconnect is normal.
func (m *Match) HandleClientEvent(sessionID, event string, data json.RawMessage, nowMS int64) {
	playerMatchID, ok := m.sessions[sessionID]
	if !ok {
		fmt.Printf("WARN: Match %s: event %q from unknown session %s\n", m.ID, event, sessionID)
		return
	}
	p, ok := m.players[playerMatchID]
	if !ok {
		fmt.Printf("WARN: Match %s: event %q for absent player %s\n", m.ID, event, playerMatchID)
		return
	}

	switch event {
	case "playerInput":
		m.handlePlayerInput(p, data, nowMS)
	case "projectileHit":
		m.handleProjectileHit(p, data)
	case "toggleBystander":
		m.handleToggleBystander(p)
	default:
		fmt.Printf("WARN: Match %s: unhandled event %q from %s\n", m.ID, event, playerMatchID)
	}
}

// handlePlayerInput rate-limits, decodes and queues one input. Any input,
// valid or not, proves the player is present and cancels a pending AFK
// removal.
func (m *Match) handlePlayerInput(p *Player, data json.RawMessage, nowMS int64) {
	if !m.allowInput(p.ID, nowMS) {
		fmt.Printf("WARN: Match %s: rate limit exceeded for %s, input dropped\n", m.ID, p.ID)
		if m.metrics != nil {
			m.metrics.RecordRateLimited()
		}
		return
	}

	if m.afkWarned[p.ID] {
		delete(m.afkWarned, p.ID)
		m.cancelTimer("afkremove:" + p.ID)
	}

	// A dead player holds no pending inputs; the payload still proves
	// presence.
	if p.IsDead {
		p.LastInputTimestamp = nowMS
		return
	}

	var payload InputPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		fmt.Printf("WARN: Match %s: bad playerInput from %s: %v\n", m.ID, p.ID, err)
		p.LastInputTimestamp = nowMS
		return
	}
	payload.Vector.X = utils.ClampInt(payload.Vector.X, -1, 1)
	payload.Vector.Y = utils.ClampInt(payload.Vector.Y, -1, 1)

	p.QueueInput(payload, nowMS)
}

// allowInput enforces the fixed-window rate limit for one player.
func (m *Match) allowInput(playerMatchID string, nowMS int64) bool {
	w, ok := m.rate[playerMatchID]
	if !ok || nowMS-w.windowStart >= m.cfg.RateLimitWindow.Milliseconds() {
		m.rate[playerMatchID] = &rateWindow{count: 1, windowStart: nowMS}
		return true
	}
	w.count++
	return w.count <= m.cfg.RateLimitMax
}

// handleProjectileHit validates a client-reported hit and applies damage.
// The shooter must own the projectile, the projectile must not already be
// spent, and the target must be a living combatant. A confirmed hit marks
// the projectile dud so clients despawn it.
func (m *Match) handleProjectileHit(shooter *Player, data json.RawMessage) {
	var hit ProjectileHitPayload
	if err := json.Unmarshal(data, &hit); err != nil {
		fmt.Printf("WARN: Match %s: bad projectileHit from %s: %v\n", m.ID, shooter.ID, err)
		return
	}

	if shooter.IsBystander {
		return
	}
	owner, known := m.projectileOwners[hit.ProjectileID]
	if !known || owner != shooter.ID {
		fmt.Printf("WARN: Match %s: %s reported hit with projectile %q it does not own\n", m.ID, shooter.ID, hit.ProjectileID)
		return
	}
	target, ok := m.players[hit.EnemyID]
	if !ok {
		fmt.Printf("WARN: Match %s: hit reported on absent player %s\n", m.ID, hit.EnemyID)
		return
	}
	if target.IsBystander || target.IsDead {
		return
	}

	delete(m.projectileOwners, hit.ProjectileID)
	dud := true
	m.upsertProjectile(&ProjectileUpdate{ID: hit.ProjectileID, Dud: &dud})

	target.Damage(utils.HitDamage)
	if target.HP == 0 {
		m.handleDeath(target, shooter)
	}
}

// handleToggleBystander flips combat opt-in for a living player.
func (m *Match) handleToggleBystander(p *Player) {
	if p.IsDead {
		return
	}
	p.IsBystander = !p.IsBystander
	fmt.Printf("Match %s: player %s bystander=%v\n", m.ID, p.ID, p.IsBystander)
}

// handleDeath books the kill and the death, queues the respawn, and ends
// the round when the killer reaches the kill target.
func (m *Match) handleDeath(victim, killer *Player) {
	victim.AddDeath()
	killer.AddKill()
	fmt.Printf("Match %s: %s killed %s (%d kills)\n", m.ID, killer.ID, victim.ID, killer.Kills)

	m.respawnQueue[victim.ID] = true
	m.scheduleTimer("respawn:"+victim.ID, m.cfg.RespawnDelay, RespawnTimerFired{PlayerMatchID: victim.ID})

	if killer.Kills >= m.cfg.MaxKillAmount && m.matchActive {
		m.endRound()
	}
}

// endRound freezes scoring, announces the scoreboard and schedules the
// reset. Players still waiting on a respawn are revived in place so nobody
// sits out the intermission dead.
func (m *Match) endRound() {
	m.matchActive = false

	scores := make([]ScoreEntry, 0, len(m.players))
	for _, p := range m.players {
		scores = append(scores, ScoreEntry{PlayerID: p.ID, Kills: p.Kills, Deaths: p.Deaths, Name: p.Name})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Kills > scores[j].Kills })
	m.emitAll("gameOver", scores)

	for id := range m.respawnQueue {
		m.cancelTimer("respawn:" + id)
		if p, ok := m.players[id]; ok {
			p.Revive()
		}
		delete(m.respawnQueue, id)
	}

	if m.metrics != nil {
		m.metrics.RecordRound()
	}

	if !m.resetScheduled {
		m.resetScheduled = true
		m.scheduleTimer("reset", m.cfg.MatchResetDelay, ResetTimerFired{})
	}
	fmt.Printf("Match %s: round over, reset in %s\n", m.ID, m.cfg.MatchResetDelay)
}

// HandleRespawnTimer revives a queued dead player at the spawn point.
func (m *Match) HandleRespawnTimer(playerMatchID string) {
	if !m.respawnQueue[playerMatchID] {
		return
	}
	delete(m.respawnQueue, playerMatchID)
	m.cancelTimer("respawn:" + playerMatchID)
	if p, ok := m.players[playerMatchID]; ok {
		p.Respawn(utils.StartingX, utils.StartingY)
	}
}

// HandleResetTimer starts the next round: scores and HP reset, positions
// and bystander flags kept, projectile state dropped.
func (m *Match) HandleResetTimer() {
	m.resetScheduled = false
	m.cancelTimer("reset")

	m.projectileUpdates = make(map[string]*ProjectileUpdate)
	m.projectileOrder = nil
	m.projectileOwners = make(map[string]string)

	for _, p := range m.players {
		p.HP = utils.MaxHP
		p.Kills = 0
		p.Deaths = 0
		p.IsDead = false
		p.ClearQueue()
		p.ClearDebt()
	}

	m.pendingFullState = true
	m.matchActive = true
	m.emitAll("matchReset", struct{}{})
	fmt.Printf("Match %s: reset complete, round active\n", m.ID)
}

// HandleAFKRemoveTimer removes a warned player who never came back. The
// silence is re-checked; an input that raced the timer wins.
func (m *Match) HandleAFKRemoveTimer(playerMatchID string, nowMS int64) {
	if !m.afkWarned[playerMatchID] {
		return
	}
	p, ok := m.players[playerMatchID]
	if !ok {
		return
	}
	if nowMS-p.LastInputTimestamp < m.cfg.AFKTimeout.Milliseconds() {
		delete(m.afkWarned, playerMatchID)
		return
	}

	m.emitTo(playerMatchID, "afkRemoved", NoticeMessage{Message: "Removed for inactivity"})
	if conn, ok := m.conns[playerMatchID]; ok {
		if err := conn.Close(); err != nil {
			fmt.Printf("Match %s: close failed for AFK player %s: %v\n", m.ID, playerMatchID, err)
		}
	}
	m.destroyPlayer(playerMatchID, "AFK")
}
