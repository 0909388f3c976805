package utils

// Arena geometry. The coordinate origin is the top-left corner; y grows
// downward, so the floor is at ArenaHeight. Player positions are the
// bottom-center pivot of the hitbox.
const (
	ArenaWidth  = 1920.0
	ArenaHeight = 1080.0

	BoundsLeft   = 0.0
	BoundsRight  = ArenaWidth
	BoundsTop    = 0.0
	BoundsBottom = ArenaHeight
)

// Player physics.
const (
	Gravity         = 1500.0 // u/s²
	MaxFallSpeed    = 1500.0 // u/s
	WalkSpeed       = 750.0  // u/s
	JumpStrength    = 750.0  // u/s impulse
	PlayerHalfWidth = 25.0
	PlayerWidth     = 50.0
	PlayerHeight    = 50.0
)

// Platforms.
const (
	PlatformWidth  = 500.0
	PlatformHeight = 30.0
)

// Combat.
const (
	ProjectileWidth  = 20.0
	ProjectileHeight = 20.0
	ProjectileSpeed  = 30.0
	HitDamage        = 10
	MaxHP            = 100
	StartingX        = 100.0
	StartingY        = 100.0
)

// Regions a client may ask to be matched in. GLOBAL exists as a region
// value but is not in the default valid set.
const (
	RegionNA     = "NA"
	RegionEU     = "EU"
	RegionASIA   = "ASIA"
	RegionGLOBAL = "GLOBAL"
)
