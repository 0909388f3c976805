// File: game/match_broadcast.go
package game

import (
	"encoding/json"
	"fmt"
)

// BroadcastGameState serializes one stateUpdate and fans the same bytes
// out to every connected session. The pending projectile batch is drained
// whether or not any send succeeds; clients recover from a lost frame via
// the regular delta stream. Returns the total bytes written.
func (m *Match) BroadcastGameState(nowMS int64) int {
	if len(m.players) == 0 {
		return 0
	}

	full := m.pendingFullState
	players := make([]PlayerSnapshot, 0, len(m.players))
	for _, id := range m.sortedPlayerIDs() {
		p := m.players[id]
		if full {
			players = append(players, p.FullBroadcastState())
		} else {
			players = append(players, p.LatestStateDelta())
		}
	}
	m.pendingFullState = false

	projectiles := make([]ProjectileUpdate, 0, len(m.projectileOrder))
	for _, id := range m.projectileOrder {
		if u, ok := m.projectileUpdates[id]; ok {
			projectiles = append(projectiles, *u)
		}
	}
	m.projectileUpdates = make(map[string]*ProjectileUpdate)
	m.projectileOrder = nil

	env, err := NewEnvelope("stateUpdate", StateUpdateMessage{
		STick:       m.serverTick,
		STime:       nowMS,
		Players:     players,
		Projectiles: projectiles,
	})
	if err == nil {
		var raw []byte
		raw, err = json.Marshal(env)
		if err == nil {
			return m.fanOut(raw)
		}
	}

	fmt.Printf("ERROR: Match %s: stateUpdate serialization failed: %v\n", m.ID, err)
	if m.metrics != nil {
		m.metrics.RecordError()
	}
	return 0
}

// fanOut writes raw to every live transport and reports the bytes sent.
func (m *Match) fanOut(raw []byte) int {
	total := 0
	for id, conn := range m.conns {
		if p, ok := m.players[id]; ok && p.IsDisconnected {
			continue
		}
		if err := conn.SendRaw(raw); err != nil {
			fmt.Printf("WARN: Match %s: send to %s failed: %v\n", m.ID, id, err)
			continue
		}
		total += len(raw)
	}
	if m.metrics != nil && total > 0 {
		m.metrics.RecordBroadcast(total)
	}
	return total
}

// InformShowIsLive announces the one-shot live event to the whole room.
func (m *Match) InformShowIsLive() {
	m.emitAll("showIsLive", struct{}{})
}

// emitTo sends one envelope to one player, if connected.
func (m *Match) emitTo(playerMatchID, event string, data interface{}) {
	conn, ok := m.conns[playerMatchID]
	if !ok {
		return
	}
	if err := conn.Emit(event, data); err != nil {
		fmt.Printf("WARN: Match %s: emit %q to %s failed: %v\n", m.ID, event, playerMatchID, err)
	}
}

// emitAll sends one envelope to every connected player.
func (m *Match) emitAll(event string, data interface{}) {
	for id := range m.conns {
		m.emitTo(id, event, data)
	}
}
