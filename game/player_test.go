// File: game/player_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabit/rumble/utils"
)

const testDT = 1.0 / 30.0

func groundedPlayer() *Player {
	p := NewPlayer("p1", "Tester")
	p.IsOnSurface = true
	return p
}

func TestJumpArcFirstStep(t *testing.T) {
	p := groundedPlayer()
	require.Equal(t, 100.0, p.Y)

	p.Update(InputVector{Y: -1}, testDT, 1, nil, "B")

	// Impulse -750 plus one step of gravity: -750 + 1500/30 = -700.
	assert.InDelta(t, -700.0, p.VY, 1e-9)
	assert.InDelta(t, 100.0-700.0/30.0, p.Y, 1e-6)
	assert.False(t, p.IsOnSurface)
	assert.True(t, p.IsJumping)
	assert.True(t, p.CanDoubleJump)
}

func TestJumpSettlesOnGround(t *testing.T) {
	p := groundedPlayer()
	p.Update(InputVector{Y: -1}, testDT, 1, nil, "B")

	// Two seconds of free fall is more than enough to return to the floor.
	for i := 0; i < 60; i++ {
		p.Update(InputVector{}, testDT, int64(i+2), nil, "A")
	}

	assert.Equal(t, utils.BoundsBottom, p.Y)
	assert.True(t, p.IsOnSurface)
	assert.True(t, p.CanDoubleJump)
	assert.False(t, p.IsJumping)
	assert.Zero(t, p.VY)
}

func TestDoubleJumpConsumedOnce(t *testing.T) {
	p := groundedPlayer()
	p.Update(InputVector{Y: -1}, testDT, 1, nil, "B")
	require.True(t, p.CanDoubleJump)

	// Mid-air jump resets vertical velocity and consumes the double jump.
	p.Update(InputVector{Y: -1}, testDT, 2, nil, "B")
	assert.InDelta(t, -700.0, p.VY, 1e-9)
	assert.False(t, p.CanDoubleJump)

	// A third jump request mid-air does nothing but gravity.
	before := p.VY
	p.Update(InputVector{Y: -1}, testDT, 3, nil, "B")
	assert.InDelta(t, before+utils.Gravity*testDT, p.VY, 1e-9)
}

func TestPlatformLandingWhenTunneling(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.X = 400
	p.Y = 829
	p.VY = 50
	p.CanDoubleJump = false
	platform := NewPlatform(115, 830)

	p.Update(InputVector{}, testDT, 1, []*Platform{platform}, "A")

	assert.Equal(t, 830.0, p.Y)
	assert.Zero(t, p.VY)
	assert.True(t, p.IsOnSurface)
	assert.True(t, p.CanDoubleJump)
}

func TestPlatformLandingExactTouch(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.X = 400
	p.Y = 830
	p.VY = 10
	p.checkPlatforms([]*Platform{NewPlatform(115, 830)})

	assert.Equal(t, 830.0, p.Y)
	assert.Zero(t, p.VY)
	assert.True(t, p.IsOnSurface)
}

func TestPlatformMissedWithoutHorizontalOverlap(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.X = 700 // platform spans [115, 615]
	p.Y = 829
	p.VY = 50

	p.Update(InputVector{}, testDT, 1, []*Platform{NewPlatform(115, 830)}, "A")

	assert.Greater(t, p.Y, 830.0)
	assert.False(t, p.IsOnSurface)
}

func TestPlatformNotCaughtWhileRising(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.X = 400
	p.Y = 845 // inside the slab
	p.VY = -200

	p.checkPlatforms([]*Platform{NewPlatform(115, 830)})

	assert.Equal(t, 845.0, p.Y)
	assert.False(t, p.IsOnSurface)
}

func TestFirstPlatformInOrderWins(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.X = 400
	p.Y = 835
	p.VY = 50
	first := NewPlatform(115, 830)
	second := NewPlatform(115, 832)

	p.checkPlatforms([]*Platform{first, second})
	assert.Equal(t, 830.0, p.Y)
}

func TestHorizontalBoundsClamp(t *testing.T) {
	p := groundedPlayer()
	p.X = 30
	p.Update(InputVector{X: -1}, testDT, 1, nil, "B")
	assert.Equal(t, utils.BoundsLeft+utils.PlayerHalfWidth, p.X)

	p.X = utils.BoundsRight - 26
	p.Update(InputVector{X: 1}, testDT, 2, nil, "B")
	assert.Equal(t, utils.BoundsRight-utils.PlayerHalfWidth, p.X)
}

func TestFallSpeedCapped(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.Y = 100
	p.VY = utils.MaxFallSpeed - 10
	p.Update(InputVector{}, testDT, 1, nil, "A")
	assert.Equal(t, utils.MaxFallSpeed, p.VY)
}

func TestBystanderCannotShoot(t *testing.T) {
	p := groundedPlayer()
	p.IsBystander = true
	p.Update(InputVector{Mouse: &MouseInput{X: 500, Y: 500, ID: "proj-1"}}, testDT, 1, nil, "B")
	assert.False(t, p.IsShooting)
	assert.Nil(t, p.PendingShot)
}

func TestShootingFlagSetFromMouse(t *testing.T) {
	p := groundedPlayer()
	p.Update(InputVector{Mouse: &MouseInput{X: 500, Y: 500, ID: "proj-1"}}, testDT, 1, nil, "B")
	assert.True(t, p.IsShooting)
	require.NotNil(t, p.PendingShot)
	assert.Equal(t, "proj-1", p.PendingShot.ID)
}

func TestDebtStackOps(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.PushDebt(InputVector{X: 1})
	p.PushDebt(InputVector{X: -1})

	top, ok := p.PeekDebt()
	require.True(t, ok)
	assert.Equal(t, -1, top.X)
	assert.Equal(t, 2, p.DebtLen())

	popped, ok := p.PopDebt()
	require.True(t, ok)
	assert.Equal(t, -1, popped.X)
	assert.Equal(t, 1, p.DebtLen())

	p.ClearDebt()
	assert.Zero(t, p.DebtLen())
	_, ok = p.PopDebt()
	assert.False(t, ok)
}

func TestDamageAndHealClamp(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.Damage(150)
	assert.Equal(t, 0, p.HP)
	p.Heal(250)
	assert.Equal(t, utils.MaxHP, p.HP)
}

func TestAddDeathClearsInputState(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.QueueInput(InputPayload{Tick: 1, Vector: InputVector{X: 1}}, 1000)
	p.PushDebt(InputVector{X: 1})

	p.AddDeath()

	assert.True(t, p.IsDead)
	assert.Equal(t, 1, p.Deaths)
	assert.Zero(t, p.QueueLen())
	assert.Zero(t, p.DebtLen())
}

func TestRespawnRestoresCombatState(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.Damage(100)
	p.AddDeath()
	p.VX, p.VY = 300, 400

	p.Respawn(utils.StartingX, utils.StartingY)

	assert.Equal(t, utils.StartingX, p.X)
	assert.Equal(t, utils.StartingY, p.Y)
	assert.Equal(t, utils.MaxHP, p.HP)
	assert.False(t, p.IsDead)
	assert.Zero(t, p.VX)
	assert.Zero(t, p.VY)
	assert.True(t, p.CanDoubleJump)
}

func TestDeltaStateOnlyCarriesChanges(t *testing.T) {
	p := NewPlayer("p1", "Tester")

	// First delta has no baseline, so everything rides along.
	first := p.LatestStateDelta()
	require.NotNil(t, first.HP)
	require.NotNil(t, first.Name)
	assert.Equal(t, "Tester", *first.Name)

	// Nothing changed: only the always-on fields.
	second := p.LatestStateDelta()
	assert.Nil(t, second.HP)
	assert.Nil(t, second.Name)
	assert.Nil(t, second.Kills)
	assert.Equal(t, "p1", second.ID)

	// A damage shows up exactly once.
	p.Damage(10)
	third := p.LatestStateDelta()
	require.NotNil(t, third.HP)
	assert.Equal(t, 90, *third.HP)
	assert.Nil(t, third.Name)

	fourth := p.LatestStateDelta()
	assert.Nil(t, fourth.HP)
}

func TestFullBroadcastStateResetsBaseline(t *testing.T) {
	p := NewPlayer("p1", "Tester")
	p.Damage(30)

	full := p.FullBroadcastState()
	require.NotNil(t, full.HP)
	assert.Equal(t, 70, *full.HP)
	require.NotNil(t, full.IsDead)
	assert.False(t, *full.IsDead)

	delta := p.LatestStateDelta()
	assert.Nil(t, delta.HP)
}

func TestIsAFKOnlyWhenIdleOnSurface(t *testing.T) {
	p := groundedPlayer()
	assert.True(t, p.IsAFK(InputVector{}))
	assert.False(t, p.IsAFK(InputVector{X: 1}))

	p.IsOnSurface = false
	assert.False(t, p.IsAFK(InputVector{}))
}
