// File: game/platform.go
package game

import "github.com/arenabit/rumble/utils"

// Platform is an immutable rectangular surface players can land on.
// Construct with NewPlatform; nothing mutates it afterwards.
type Platform struct {
	x      float64
	y      float64
	width  float64
	height float64
}

// NewPlatform creates a platform at (x, y) with the default dimensions.
func NewPlatform(x, y float64) *Platform {
	return &Platform{x: x, y: y, width: utils.PlatformWidth, height: utils.PlatformHeight}
}

// Bounds returns the platform's edges.
func (p *Platform) Bounds() Bounds {
	return Bounds{
		Left:   p.x,
		Right:  p.x + p.width,
		Top:    p.y,
		Bottom: p.y + p.height,
		Width:  p.width,
		Height: p.height,
	}
}

// DefaultPlatforms is the initial arena layout: two rows of two platforms
// mirrored around the vertical center line.
func DefaultPlatforms() []*Platform {
	return []*Platform{
		NewPlatform(115, utils.ArenaHeight-250),
		NewPlatform(utils.ArenaWidth-610, utils.ArenaHeight-250),
		NewPlatform(115, utils.ArenaHeight-500),
		NewPlatform(utils.ArenaWidth-610, utils.ArenaHeight-500),
	}
}
