// File: game/vector_test.go
package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arenabit/rumble/utils"
)

func TestLaunchVelocityIsNormalized(t *testing.T) {
	vx, vy := LaunchVelocity(0, 0, 3, 4, 30)
	assert.InDelta(t, 18.0, vx, 1e-9) // 3/5 * 30
	assert.InDelta(t, 24.0, vy, 1e-9) // 4/5 * 30
	assert.InDelta(t, 30.0, math.Hypot(vx, vy), 1e-9)
}

func TestLaunchVelocityDegenerateShot(t *testing.T) {
	vx, vy := LaunchVelocity(100, 100, 100, 100, 30)
	assert.Zero(t, vx)
	assert.Zero(t, vy)
}

func TestLaunchVelocityPointsAtTarget(t *testing.T) {
	vx, vy := LaunchVelocity(500, 800, 200, 800, 30)
	assert.InDelta(t, -30.0, vx, 1e-9)
	assert.InDelta(t, 0.0, vy, 1e-9)
}

func TestAABBOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlapping", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"contained", Rect{X: 2, Y: 2, Width: 3, Height: 3}, true},
		{"touching right edge", Rect{X: 10, Y: 0, Width: 10, Height: 10}, false},
		{"touching bottom edge", Rect{X: 0, Y: 10, Width: 10, Height: 10}, false},
		{"disjoint", Rect{X: 50, Y: 50, Width: 5, Height: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AABBOverlap(a, tt.b))
			assert.Equal(t, tt.want, AABBOverlap(tt.b, a))
		})
	}
}

func TestDefaultPlatformLayout(t *testing.T) {
	platforms := DefaultPlatforms()
	assert.Len(t, platforms, 4)

	expected := []struct{ left, top float64 }{
		{115, utils.ArenaHeight - 250},
		{utils.ArenaWidth - 610, utils.ArenaHeight - 250},
		{115, utils.ArenaHeight - 500},
		{utils.ArenaWidth - 610, utils.ArenaHeight - 500},
	}
	for i, p := range platforms {
		b := p.Bounds()
		assert.Equal(t, expected[i].left, b.Left, "platform %d left", i)
		assert.Equal(t, expected[i].top, b.Top, "platform %d top", i)
		assert.Equal(t, utils.PlatformWidth, b.Width)
		assert.Equal(t, utils.PlatformHeight, b.Height)
		assert.Equal(t, b.Left+utils.PlatformWidth, b.Right)
		assert.Equal(t, b.Top+utils.PlatformHeight, b.Bottom)
	}
}
