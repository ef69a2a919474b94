package constants

import "time"

const (
	// Latency-sensitive calls against the regional backend.
	MatchStateTimeout = 5 * time.Second
	// Loopback authority calls.
	LocalAuthTimeout = 5 * time.Second
	// Static catalog downloads.
	CatalogTimeout = 10 * time.Second
	// Bulk stats/history calls.
	StatsTimeout = 30 * time.Second
	AssetTimeout = 10 * time.Second
)

const (
	DefaultPollInterval = 10 * time.Second
	StatsCacheTTL       = 5 * time.Minute
	AssetCacheTTL       = 30 * time.Minute
)

const (
	// Competitive history page size for stats aggregation.
	MatchHistorySize = 100
	// Concurrent image downloads per loadout view.
	AssetWorkers = 4
	// Sessions returned by the history endpoint.
	RecentSessionLimit = 25
)

const (
	// Socket holding the equipped skin inside a core-game loadout item.
	SkinSocketID = "3ad1b2b2-acdb-4524-852f-954a76ddae0a"
	// Category UUID shared by every melee weapon.
	MeleeCategoryID = "2f59173c-4bed-b6c3-2191-dea9b58be9c7"
)

const (
	DefaultRegion = "eu"
	DefaultShard  = "eu"
)

// Fixed client identification headers expected by the regional backend.
const (
	ClientPlatform = "ew0KCSJwbGF0Zm9ybVR5cGUiOiAiUEMiLA0KCSJwbGF0Zm9ybU9TIjogIldpbmRvd3MiLA0KCSJwbGF0Zm9ybU9TVmVyc2lvbiI6ICIxMC4wLjE5MDQzLjEiLA0KCSJjbGllbnRWZXJzaW9uIjogIjEuMC4wLjAiDQp9"
	ClientVersion  = "release-10.09-shipping-15-1129237"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
)
