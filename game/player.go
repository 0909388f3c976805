// File: game/player.go
package game

import (
	"github.com/arenabit/rumble/utils"
)

// MouseInput is the click target attached to an input vector when the
// player fires. ID is the client-chosen projectile id.
type MouseInput struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	ID string  `json:"id"`
}

// InputVector is one tick of client intent. X and Y are -1, 0 or 1.
type InputVector struct {
	X     int         `json:"x"`
	Y     int         `json:"y"`
	Mouse *MouseInput `json:"mouse,omitempty"`
}

// Matches reports whether two vectors describe the same movement. Mouse is
// deliberately excluded; the debt protocol compares movement only.
func (v InputVector) Matches(other InputVector) bool {
	return v.X == other.X && v.Y == other.Y
}

// InputPayload is a client input message: the client's tick counter plus
// the vector for that tick.
type InputPayload struct {
	Tick   int64       `json:"tick"`
	Vector InputVector `json:"vector"`
}

// PlayerSnapshot is the broadcast form of a player. Position, velocity and
// tick are always present; the remaining fields ride along only when they
// changed since the last broadcast (or always, in a full-state broadcast).
type PlayerSnapshot struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Tick   int64   `json:"tick"`
	HP     *int    `json:"hp,omitempty"`
	By     *bool   `json:"by,omitempty"`
	Name   *string `json:"name,omitempty"`
	IsDead *bool   `json:"isDead,omitempty"`
	Kills  *int    `json:"kills,omitempty"`
	Deaths *int    `json:"deaths,omitempty"`
}

// broadcastState remembers the occasional fields as last sent, for delta
// encoding.
type broadcastState struct {
	hp     int
	by     bool
	name   string
	isDead bool
	kills  int
	deaths int
	valid  bool
}

// Player is the authoritative per-player entity: physics state, gameplay
// state, and the networking bookkeeping for input reconciliation.
type Player struct {
	// Identity
	ID   string
	Name string

	// Physics. (X, Y) is the bottom-center pivot of the hitbox.
	X             float64
	Y             float64
	VX            float64
	VY            float64
	IsOnSurface   bool
	CanDoubleJump bool
	IsJumping     bool

	// Gameplay
	HP          int
	IsBystander bool
	IsDead      bool
	Kills       int
	Deaths      int

	// Networking
	Tick               int64
	LastProcessedInput InputPayload
	LastInputTimestamp int64 // ms
	IsDisconnected     bool

	// Set by Update when an applied input carried a shot; the match reads
	// and clears these.
	IsShooting  bool
	PendingShot *MouseInput

	inputQueue []InputPayload
	inputDebt  []InputVector
	lastSent   broadcastState
}

// NewPlayer creates a player at the starting position with full HP.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:            id,
		Name:          name,
		X:             utils.StartingX,
		Y:             utils.StartingY,
		HP:            utils.MaxHP,
		CanDoubleJump: true,
		LastProcessedInput: InputPayload{
			Tick:   0,
			Vector: InputVector{},
		},
	}
}

// QueueInput appends a payload to the input FIFO and refreshes the AFK
// clock. Nothing is discarded here; the rate limit lives in the match.
func (p *Player) QueueInput(payload InputPayload, nowMS int64) {
	p.inputQueue = append(p.inputQueue, payload)
	p.LastInputTimestamp = nowMS
}

// DequeueInput pops the oldest queued input.
func (p *Player) DequeueInput() (InputPayload, bool) {
	if len(p.inputQueue) == 0 {
		return InputPayload{}, false
	}
	payload := p.inputQueue[0]
	p.inputQueue = p.inputQueue[1:]
	return payload, true
}

// QueueLen is the number of pending inputs.
func (p *Player) QueueLen() int { return len(p.inputQueue) }

// ClearQueue drops all pending inputs.
func (p *Player) ClearQueue() { p.inputQueue = p.inputQueue[:0] }

// Input-debt stack: vectors the server applied as predictions while the
// client's real inputs were in flight.

// PushDebt records a predicted vector.
func (p *Player) PushDebt(v InputVector) { p.inputDebt = append(p.inputDebt, v) }

// PeekDebt returns the most recent prediction without removing it.
func (p *Player) PeekDebt() (InputVector, bool) {
	if len(p.inputDebt) == 0 {
		return InputVector{}, false
	}
	return p.inputDebt[len(p.inputDebt)-1], true
}

// PopDebt removes the most recent prediction.
func (p *Player) PopDebt() (InputVector, bool) {
	if len(p.inputDebt) == 0 {
		return InputVector{}, false
	}
	top := p.inputDebt[len(p.inputDebt)-1]
	p.inputDebt = p.inputDebt[:len(p.inputDebt)-1]
	return top, true
}

// ClearDebt empties the stack; called when a real input diverges from the
// prediction chain.
func (p *Player) ClearDebt() { p.inputDebt = p.inputDebt[:0] }

// DebtLen is the number of unpaid predictions.
func (p *Player) DebtLen() int { return len(p.inputDebt) }

// IsAFK reports whether the vector represents a player doing nothing while
// standing on a surface.
func (p *Player) IsAFK(v InputVector) bool {
	return v.X == 0 && v.Y == 0 && p.IsOnSurface
}

// Update advances the player by one physics sub-step of dt seconds. The
// tag identifies the integration path (prediction, clean apply, or
// divergence recovery) for diagnostics.
func (p *Player) Update(v InputVector, dt float64, tick int64, platforms []*Platform, tag string) {
	// Horizontal intent maps directly to velocity; there is no
	// acceleration ramp.
	if v.X != 0 {
		p.VX = float64(v.X) * utils.WalkSpeed
	} else {
		p.VX = 0
	}

	// Jump request. A second jump mid-air consumes the double jump.
	if v.Y < 0 {
		if p.IsOnSurface {
			p.VY = float64(v.Y) * utils.JumpStrength
			p.CanDoubleJump = true
			p.IsOnSurface = false
			p.IsJumping = true
		} else if p.CanDoubleJump {
			p.VY = float64(v.Y) * utils.JumpStrength
			p.CanDoubleJump = false
		}
	}

	// Gravity, capped at terminal velocity.
	p.VY += utils.Gravity * dt
	if p.VY > utils.MaxFallSpeed {
		p.VY = utils.MaxFallSpeed
	}

	p.X += p.VX * dt
	p.Y += p.VY * dt

	p.X = utils.Clamp(p.X, utils.BoundsLeft+utils.PlayerHalfWidth, utils.BoundsRight-utils.PlayerHalfWidth)
	p.Y = utils.Clamp(p.Y, utils.BoundsTop, utils.BoundsBottom)

	if p.Y == utils.BoundsBottom {
		p.IsOnSurface = true
		p.VY = 0
		p.IsJumping = false
		p.CanDoubleJump = true
	}

	p.checkPlatforms(platforms)

	if v.Mouse != nil && !p.IsBystander {
		p.IsShooting = true
		p.PendingShot = v.Mouse
	}

	p.Tick = tick
}

// checkPlatforms lands the player on the first platform (insertion order)
// it is falling through or onto. Landing snaps to the platform top, zeroes
// vertical velocity and re-arms the double jump.
func (p *Player) checkPlatforms(platforms []*Platform) {
	if p.VY <= 0 {
		return
	}
	left := p.X - utils.PlayerHalfWidth
	right := p.X + utils.PlayerHalfWidth
	bottom := p.Y

	for _, plat := range platforms {
		f := plat.Bounds()
		if right <= f.Left || left >= f.Right {
			continue
		}
		if bottom == f.Top || (bottom > f.Top && bottom < f.Bottom) {
			p.Y = f.Top
			p.VY = 0
			p.IsOnSurface = true
			p.CanDoubleJump = true
			p.IsJumping = false
			return
		}
	}
}

// Bounds returns the player's hitbox.
func (p *Player) Bounds() Rect {
	return Rect{
		X:      p.X - utils.PlayerHalfWidth,
		Y:      p.Y - utils.PlayerHeight,
		Width:  utils.PlayerWidth,
		Height: utils.PlayerHeight,
	}
}

// Damage reduces HP, clamped at zero.
func (p *Player) Damage(n int) {
	p.HP -= n
	if p.HP < 0 {
		p.HP = 0
	}
}

// Heal raises HP, clamped at the maximum.
func (p *Player) Heal(n int) {
	p.HP += n
	if p.HP > utils.MaxHP {
		p.HP = utils.MaxHP
	}
}

// AddKill credits a kill.
func (p *Player) AddKill() { p.Kills++ }

// AddDeath marks the player dead and drops all pending input state; a dead
// player neither moves nor owes predictions.
func (p *Player) AddDeath() {
	p.Deaths++
	p.IsDead = true
	p.ClearQueue()
	p.ClearDebt()
}

// Respawn places the player at (x, y) with full HP and zero velocity.
func (p *Player) Respawn(x, y float64) {
	p.X = x
	p.Y = y
	p.VX = 0
	p.VY = 0
	p.HP = utils.MaxHP
	p.IsDead = false
	p.IsOnSurface = false
	p.IsJumping = false
	p.CanDoubleJump = true
}

// Revive clears the dead flag in place with full HP, without moving the
// player. Used when a round ends while respawns are still pending.
func (p *Player) Revive() {
	p.HP = utils.MaxHP
	p.IsDead = false
}

// FullBroadcastState returns every field and resets the delta baseline.
func (p *Player) FullBroadcastState() PlayerSnapshot {
	hp := p.HP
	by := p.IsBystander
	name := p.Name
	isDead := p.IsDead
	kills := p.Kills
	deaths := p.Deaths
	p.rememberSent()
	return PlayerSnapshot{
		ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY, Tick: p.Tick,
		HP: &hp, By: &by, Name: &name, IsDead: &isDead, Kills: &kills, Deaths: &deaths,
	}
}

// LatestStateDelta returns position/velocity/tick plus whichever occasional
// fields changed since the previous broadcast, then advances the baseline.
func (p *Player) LatestStateDelta() PlayerSnapshot {
	snap := PlayerSnapshot{ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY, Tick: p.Tick}

	if !p.lastSent.valid || p.lastSent.hp != p.HP {
		hp := p.HP
		snap.HP = &hp
	}
	if !p.lastSent.valid || p.lastSent.by != p.IsBystander {
		by := p.IsBystander
		snap.By = &by
	}
	if !p.lastSent.valid || p.lastSent.name != p.Name {
		name := p.Name
		snap.Name = &name
	}
	if !p.lastSent.valid || p.lastSent.isDead != p.IsDead {
		isDead := p.IsDead
		snap.IsDead = &isDead
	}
	if !p.lastSent.valid || p.lastSent.kills != p.Kills {
		kills := p.Kills
		snap.Kills = &kills
	}
	if !p.lastSent.valid || p.lastSent.deaths != p.Deaths {
		deaths := p.Deaths
		snap.Deaths = &deaths
	}

	p.rememberSent()
	return snap
}

func (p *Player) rememberSent() {
	p.lastSent = broadcastState{
		hp:     p.HP,
		by:     p.IsBystander,
		name:   p.Name,
		isDead: p.IsDead,
		kills:  p.Kills,
		deaths: p.Deaths,
		valid:  true,
	}
}
