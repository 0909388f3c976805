// File: game/match_loop.go
package game

import (
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/arenabit/rumble/utils"
)

// Advance catches the simulation up to nowMS with fixed steps. Wallclock
// deltas are clamped to MaxFrameMS so a stall burns the backlog instead of
// spiraling. The first call only anchors the clock.
func (m *Match) Advance(nowMS int64) {
	if m.lastUpdate == 0 {
		m.lastUpdate = nowMS
		m.lastSweepMS = nowMS
		return
	}

	delta := float64(nowMS - m.lastUpdate)
	m.lastUpdate = nowMS
	if delta < 0 {
		delta = 0
	}
	if delta > m.cfg.MaxFrameMS {
		delta = m.cfg.MaxFrameMS
	}

	m.accumulator += delta
	step := m.cfg.FixedStepMS()
	for m.accumulator >= step {
		m.fixedStep(nowMS)
		m.accumulator -= step
	}

	if nowMS-m.lastSweepMS >= m.cfg.CleanupSweep.Milliseconds() {
		m.lastSweepMS = nowMS
		m.sweepDisconnected(nowMS)
	}
}

// fixedStep advances every player by exactly one tick. A panic inside the
// step is captured so one bad state cannot kill the match; the tick still
// counts.
func (m *Match) fixedStep(nowMS int64) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("ERROR: Match %s: panic in fixed step %d: %v\n%s\n", m.ID, m.serverTick, r, debug.Stack())
			if m.metrics != nil {
				m.metrics.RecordError()
			}
		}
	}()

	m.serverTick++
	dt := m.cfg.FixedStepSeconds()

	for _, id := range m.sortedPlayerIDs() {
		p := m.players[id]
		m.integratePlayerInputs(p, dt)
		if p.IsShooting && p.PendingShot != nil {
			m.spawnProjectile(p)
		}
	}

	m.processAFK(nowMS)
}

// integratePlayerInputs runs the input-debt protocol for one player over
// one fixed step. At most one queued input is consumed. The player's tick
// always tracks the client's input counter: predictions extend it by one,
// applied inputs carry their own tick.
//
// Three paths:
//   - empty queue: synthesize a prediction from the last processed vector
//     with the jump and the shot stripped, push it onto the debt stack
//     (unless the player is idle on a surface), and apply it at
//     lastProcessedInput.tick + 1.
//   - queued input matching the debt top and carrying no shot: the
//     movement already happened as a prediction, so pop the stack and
//     apply nothing. lastProcessedInput stays untouched.
//   - queued input diverging from the debt top, or carrying a shot, or
//     arriving on an empty stack: clear the stack if needed and apply the
//     real input.
func (m *Match) integratePlayerInputs(p *Player, dt float64) {
	if p.IsDead {
		return
	}

	payload, ok := p.DequeueInput()
	if !ok {
		predicted := p.LastProcessedInput.Vector
		predicted.Y = 0
		predicted.Mouse = nil
		if !p.IsAFK(predicted) {
			p.PushDebt(predicted)
		}
		next := InputPayload{Tick: p.LastProcessedInput.Tick + 1, Vector: predicted}
		p.Update(predicted, dt, next.Tick, m.platforms, "A")
		p.LastProcessedInput = next
		return
	}

	real := payload.Vector
	if top, has := p.PeekDebt(); has {
		if top.Matches(real) && real.Mouse == nil {
			p.PopDebt()
			return
		}
		p.ClearDebt()
		p.Update(real, dt, payload.Tick, m.platforms, "C")
		p.LastProcessedInput = payload
		return
	}

	p.Update(real, dt, payload.Tick, m.platforms, "B")
	p.LastProcessedInput = payload
}

// spawnProjectile turns a consumed shot into a broadcast spawn. The
// projectile leaves from the player's head toward the click point; the
// owner is remembered for hit validation.
func (m *Match) spawnProjectile(p *Player) {
	shot := p.PendingShot
	p.IsShooting = false
	p.PendingShot = nil
	if shot == nil || shot.ID == "" {
		return
	}

	spawnX := p.X
	spawnY := p.Y - utils.PlayerHeight
	vx, vy := LaunchVelocity(spawnX, spawnY, shot.X, shot.Y, utils.ProjectileSpeed)
	ownerID := p.ID

	m.upsertProjectile(&ProjectileUpdate{
		ID:      shot.ID,
		X:       &spawnX,
		Y:       &spawnY,
		VX:      &vx,
		VY:      &vy,
		OwnerID: &ownerID,
	})
	m.projectileOwners[shot.ID] = p.ID
}

// upsertProjectile merges an update into the pending broadcast batch,
// keeping first-seen order.
func (m *Match) upsertProjectile(update *ProjectileUpdate) {
	if existing, ok := m.projectileUpdates[update.ID]; ok {
		if update.X != nil {
			existing.X = update.X
		}
		if update.Y != nil {
			existing.Y = update.Y
		}
		if update.VX != nil {
			existing.VX = update.VX
		}
		if update.VY != nil {
			existing.VY = update.VY
		}
		if update.OwnerID != nil {
			existing.OwnerID = update.OwnerID
		}
		if update.Dud != nil {
			existing.Dud = update.Dud
		}
		return
	}
	m.projectileUpdates[update.ID] = update
	m.projectileOrder = append(m.projectileOrder, update.ID)
}

// processAFK warns players who have been silent past the timeout and arms
// their removal timer. Disconnected players are already on the grace-period
// path and are skipped.
func (m *Match) processAFK(nowMS int64) {
	timeout := m.cfg.AFKTimeout.Milliseconds()
	for id, p := range m.players {
		if p.IsDisconnected || m.afkWarned[id] {
			continue
		}
		if nowMS-p.LastInputTimestamp < timeout {
			continue
		}
		m.afkWarned[id] = true
		m.emitTo(id, "afkWarning", NoticeMessage{Message: "You will be removed for inactivity soon"})
		m.scheduleTimer("afkremove:"+id, m.cfg.AFKGrace, AFKRemoveTimerFired{PlayerMatchID: id})
		fmt.Printf("Match %s: player %s AFK warning issued\n", m.ID, id)
	}
}

// sweepDisconnected removes players whose grace period expired.
func (m *Match) sweepDisconnected(nowMS int64) {
	var expired []string
	for id, deadline := range m.disconnectCleanup {
		if nowMS >= deadline {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.destroyPlayer(id, "grace period expired")
	}
}

func (m *Match) sortedPlayerIDs() []string {
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
