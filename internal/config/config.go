// Package config loads the coordination core's static, hot-reloadable
// configuration: a //go:embed-ed JSON blob parsed once and held read-only
// behind a package-level accessor, with an explicit reload path for
// operators.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed coredata/core.json
var coredata []byte

// ModeConfig is the per-mode matchmaking configuration.
type ModeConfig struct {
	TeamSize              int     `json:"team_size"`
	TeamCount             int     `json:"team_count"`
	InitialRatingWindow   int32   `json:"initial_rating_window"`
	MaxRatingWindow       int32   `json:"max_rating_window"`
	WindowGrowthPerSecond float64 `json:"window_growth_per_second"`
	MaxQueueTimeSeconds   int64   `json:"max_queue_time_seconds"`
	AllowPremade          bool    `json:"allow_premade"`
	MaxPremadeSize        int     `json:"max_premade_size"`
	CrossRegion           bool    `json:"cross_region"`
	MaxLatencyMs          int32   `json:"max_latency_ms"`
	KFactor               int32   `json:"k_factor"`
	ScoreLimit            int32   `json:"score_limit"`
	TimeLimitSeconds      int64   `json:"time_limit_seconds"`
	CountdownSeconds      int64   `json:"countdown_seconds"`
	RespawnSeconds         int64  `json:"respawn_seconds"`
	SuddenDeathEnabled      bool  `json:"sudden_death_enabled"`
	SuddenDeathAfterSeconds int64 `json:"sudden_death_after_seconds"`
	AbandonToleranceSeconds int64 `json:"abandon_tolerance_seconds"`
}

// TierConfig is one entry of the tier table.
type TierConfig struct {
	Name             string `json:"name"`
	MinRating        int32  `json:"min_rating"`
	InactiveDays     int    `json:"inactive_days"`
	DailyRatingLoss  int32  `json:"daily_rating_loss"`
	MinRatingFloor   int32  `json:"min_rating_floor"`
}

// Vec3 is a minimal 3D point, enough to describe an AABB corner without
// depending on the collaborator spatial index's own vector type.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ZoneConfig seeds the open-world PvP zone registry.
type ZoneConfig struct {
	ID                             string  `json:"id"`
	Name                           string  `json:"name"`
	Min                            Vec3    `json:"min"`
	Max                            Vec3    `json:"max"`
	PvPEnabled                     bool    `json:"pvp_enabled"`
	FactionBased                   bool    `json:"faction_based"`
	FreeForAll                     bool    `json:"free_for_all"`
	CaptureRatePerSecondPerPlayer  float64 `json:"capture_rate_per_second_per_player"`
	CaptureThreshold               float64 `json:"capture_threshold"`
	FlagExpirySeconds              int64   `json:"flag_expiry_seconds"`
}

// WarConfig is the configuration-driven phase timing for guild wars.
type WarConfig struct {
	DeclarationWindowSeconds int64 `json:"declaration_window_seconds"`
	PreparationWindowSeconds int64 `json:"preparation_window_seconds"`
	ActiveDurationSeconds    int64 `json:"active_duration_seconds"`
	ResolutionWindowSeconds  int64 `json:"resolution_window_seconds"`
	PointsPerKill            int32 `json:"points_per_kill"`
	PointsPerTerritoryMinute int32 `json:"points_per_territory_minute"`
	ScoreCap                 int32 `json:"score_cap"`
	MaxConcurrentWars        int   `json:"max_concurrent_wars"`
	InstanceEntry            Vec3  `json:"instance_entry"`
}

// TerritoryConfig seeds the seamless-war territory registry.
type TerritoryConfig struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Center               Vec3    `json:"center"`
	Radius               float64 `json:"radius"`
	Owner                string  `json:"owner"`
	ResourceYieldPerHour int64   `json:"resource_yield_per_hour"`
}

// TournamentDefaults configures new tournaments when a caller omits a field.
type TournamentDefaults struct {
	MinParticipants     int   `json:"min_participants"`
	CheckInWindowSeconds int64 `json:"check_in_window_seconds"`
	RegistrationWindowSeconds int64 `json:"registration_window_seconds"`
}

// Core is the root of the embedded configuration document.
type Core struct {
	Modes       map[string]ModeConfig `json:"modes"`
	Tiers       []TierConfig          `json:"tiers"`
	Zones       []ZoneConfig          `json:"zones"`
	War         WarConfig             `json:"war"`
	Territories []TerritoryConfig     `json:"territories"`
	Tournament  TournamentDefaults    `json:"tournament"`

	HonorBaseValue          int32   `json:"honor_base_value"`
	HonorDRWindowSeconds    int64   `json:"honor_dr_window_seconds"`
	HonorDRKicksInAfterKill int     `json:"honor_dr_kicks_in_after_kill"`
	EnemyTerritoryMultiplier float64 `json:"enemy_territory_multiplier"`

	ZoneMembershipRefreshSeconds int64 `json:"zone_membership_refresh_seconds"`
	CaptureTickSeconds           int64 `json:"capture_tick_seconds"`

	LeaderboardCacheTTLSeconds int64 `json:"leaderboard_cache_ttl_seconds"`
	SeasonBaselineRating       int32 `json:"season_baseline_rating"`

	TickRateHz int `json:"tick_rate_hz"`
}

var (
	data     *Core
	dataOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
)

// Load parses the embedded configuration exactly once per process. Safe to
// call from multiple InitModule-style entry points.
func Load() error {
	dataOnce.Do(func() {
		var c Core
		if err := json.Unmarshal(coredata, &c); err != nil {
			loadErr = fmt.Errorf("config: parse embedded core.json: %w", err)
			return
		}
		mu.Lock()
		data = &c
		mu.Unlock()
	})
	return loadErr
}

// Reload re-parses a caller-supplied JSON document (e.g. fetched from
// storage) and swaps it in atomically.
func Reload(raw []byte) error {
	var c Core
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("config: parse reload payload: %w", err)
	}
	mu.Lock()
	data = &c
	mu.Unlock()
	return nil
}

// Get returns the current configuration snapshot. Load or Reload must have
// run first; callers must not mutate the returned value.
func Get() *Core {
	mu.RLock()
	defer mu.RUnlock()
	return data
}

// Mode returns the named mode's configuration and whether it was found.
func Mode(name string) (ModeConfig, bool) {
	c := Get()
	if c == nil {
		return ModeConfig{}, false
	}
	m, ok := c.Modes[name]
	return m, ok
}
