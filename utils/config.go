// File: utils/config.go
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configurable server parameters. Gameplay timing values
// live here rather than as constants so tests can shrink them.
type Config struct {
	// Process
	Port      int    `json:"port"`
	ClientURL string `json:"clientUrl"`
	MongoURI  string `json:"mongoUri"`
	AppEnv    string `json:"appEnv"`

	// Matchmaking
	ValidRegions       []string `json:"validRegions"`
	MaxPlayersPerMatch int      `json:"maxPlayersPerMatch"`

	// Simulation timing. TickRate drives both the fixed step and the
	// broadcast rate (30 Hz).
	TickRate   int     `json:"tickRate"`
	MaxFrameMS float64 `json:"maxFrameMs"` // Clamp on wallclock deltas (spiral-of-death guard)

	// Gameplay rules
	MaxKillAmount int `json:"maxKillAmount"` // Kills needed to win a round

	// One-shot timer delays
	RespawnDelay    time.Duration `json:"respawnDelay"`
	MatchResetDelay time.Duration `json:"matchResetDelay"`
	GracePeriod     time.Duration `json:"gracePeriod"` // Disconnected state retained this long
	AFKTimeout      time.Duration `json:"afkTimeout"`  // Silence before afkWarning
	AFKGrace        time.Duration `json:"afkGrace"`    // Warning to forced removal
	CleanupSweep    time.Duration `json:"cleanupSweep"`

	// Input rate limit (fixed window)
	RateLimitWindow time.Duration `json:"rateLimitWindow"`
	RateLimitMax    int           `json:"rateLimitMax"`

	// Engine
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		Port:      3001,
		ClientURL: "",
		MongoURI:  "",
		AppEnv:    "development",

		ValidRegions:       []string{RegionNA, RegionEU, RegionASIA},
		MaxPlayersPerMatch: 10,

		TickRate:   30,
		MaxFrameMS: 100,

		MaxKillAmount: 4,

		RespawnDelay:    3 * time.Second,
		MatchResetDelay: 10 * time.Second,
		GracePeriod:     20 * time.Second,
		AFKTimeout:      60 * time.Second,
		AFKGrace:        10 * time.Second,
		CleanupSweep:    3 * time.Second,

		RateLimitWindow: time.Second,
		RateLimitMax:    100,

		ShutdownTimeout: 8 * time.Second,
	}
}

// FixedStepMS is the fixed simulation step in milliseconds (~33.33 at 30 Hz).
func (c Config) FixedStepMS() float64 {
	return 1000.0 / float64(c.TickRate)
}

// FixedStepSeconds is the fixed simulation step in seconds.
func (c Config) FixedStepSeconds() float64 {
	return 1.0 / float64(c.TickRate)
}

// DriverPeriod is the interval of the global driver ticker.
func (c Config) DriverPeriod() time.Duration {
	return time.Duration(float64(time.Second) / float64(c.TickRate))
}

// LoadFromEnv overlays environment variables on top of the defaults.
// Unset variables keep their default; malformed values return an error so
// a bad deployment fails fast instead of running half-configured.
func LoadFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("CLIENT_URL"); v != "" {
		cfg.ClientURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.AppEnv = v
	}
	if v := os.Getenv("MAX_PLAYERS_PER_MATCH"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil || max <= 0 {
			return cfg, fmt.Errorf("invalid MAX_PLAYERS_PER_MATCH %q", v)
		}
		cfg.MaxPlayersPerMatch = max
	}
	if v := os.Getenv("VALID_REGIONS"); v != "" {
		regions := []string{}
		for _, r := range strings.Split(v, ",") {
			r = strings.ToUpper(strings.TrimSpace(r))
			if r != "" {
				regions = append(regions, r)
			}
		}
		if len(regions) == 0 {
			return cfg, fmt.Errorf("VALID_REGIONS %q contains no regions", v)
		}
		cfg.ValidRegions = regions
	}

	return cfg, nil
}

// IsValidRegion reports whether region is in the configured set.
func (c Config) IsValidRegion(region string) bool {
	for _, r := range c.ValidRegions {
		if r == region {
			return true
		}
	}
	return false
}
