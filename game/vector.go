// File: game/vector.go
package game

import (
	"math"

	"github.com/arenabit/rumble/utils"
)

// Rect is an axis-aligned box with its origin at the top-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Bounds exposes a rectangle by its edges, the shape collision code wants.
type Bounds struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AABBOverlap reports whether two rectangles overlap, half-open on both
// axes: touching edges do not count as overlap.
func AABBOverlap(a, b Rect) bool {
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

// LaunchVelocity returns the velocity of a projectile fired from the spawn
// point toward the target point: the unit direction scaled by speed. A
// degenerate shot (target within 1e-8 of the spawn) yields zero velocity.
func LaunchVelocity(spawnX, spawnY, targetX, targetY, speed float64) (float64, float64) {
	dx := targetX - spawnX
	dy := targetY - spawnY
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist < 1e-8 {
		return 0, 0
	}
	return dx / dist * speed, dy / dist * speed
}

// ProjectileRect builds the hitbox of a projectile centered on (x, y).
func ProjectileRect(x, y float64) Rect {
	return Rect{
		X:      x - utils.ProjectileWidth/2,
		Y:      y - utils.ProjectileHeight/2,
		Width:  utils.ProjectileWidth,
		Height: utils.ProjectileHeight,
	}
}
