package configs

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Security  SecurityConfig
	Storage   StorageConfig
	Discovery DiscoveryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// BridgeConfig holds the manager bridge sidecar configuration
type BridgeConfig struct {
	URL     string
	Timeout time.Duration
}

// SecurityConfig holds API key authentication configuration
type SecurityConfig struct {
	RequireAPIKey  bool
	APIKeyHeader   string
	APIKeys        []string
	AllowedOrigins []string
}

// StorageConfig holds the group cache file locations
type StorageConfig struct {
	GroupFile    string
	BaselineFile string
}

// DiscoveryConfig holds the seed group catalogues for this deployment.
// Group names may contain commas, so list overrides use ';' separators.
type DiscoveryConfig struct {
	RealGroups      []string
	DemoGroups      []string
	VIPGroups       []string
	ManagerGroups   []string
	CandidateGroups []string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: getEnv("PORT", "8080"),
		},
		Bridge: BridgeConfig{
			URL:     getEnv("MANAGER_BRIDGE_URL", "http://localhost:8228"),
			Timeout: getDuration("MANAGER_BRIDGE_TIMEOUT", 30*time.Second),
		},
		Security: SecurityConfig{
			RequireAPIKey:  getBool("REQUIRE_API_KEY", false),
			APIKeyHeader:   getEnv("API_KEY_HEADER", "X-API-Key"),
			APIKeys:        getList("API_KEYS", ",", nil),
			AllowedOrigins: getList("ALLOWED_ORIGINS", ",", []string{"*"}),
		},
		Storage: StorageConfig{
			GroupFile:    getEnv("GROUP_STORAGE_FILE", "created_groups.json"),
			BaselineFile: getEnv("GROUP_BASELINE_FILE", "complete_groups.json"),
		},
		Discovery: DiscoveryConfig{
			RealGroups:      getList("SEED_REAL_GROUPS", ";", defaultRealGroups),
			DemoGroups:      getList("SEED_DEMO_GROUPS", ";", defaultDemoGroups),
			VIPGroups:       getList("SEED_VIP_GROUPS", ";", defaultVIPGroups),
			ManagerGroups:   getList("SEED_MANAGER_GROUPS", ";", defaultManagerGroups),
			CandidateGroups: getList("CANDIDATE_GROUPS", ";", defaultCandidateGroups),
		},
	}
}

// Deployment catalogue of groups known to exist on this server. The
// backend has no enumeration call, so discovery starts from these.
var defaultRealGroups = []string{
	`real`, `real\Executive`, `real\NORMAL`, `real\Vipin Zero 1000`,
	`real\ALLWIN PREMIUM`, `real\ALLWIN PREMIUM 1`, `real\VIP A`, `real\VIP B`,
	`real\PRO A`, `real\PRO B`, `real\Standard`, `real\Executive 25`,
	`real\Vipin Zero`, `real\Vipin Zero 2500`, `real\GOLD 1`, `real\GOLD 2`,
}

var defaultDemoGroups = []string{
	`demo\2`, `demo\AllWin Capitals Limited-Demo`, `demo\CFD`, `demo\Executive`,
	`demo\PRO`, `demo\PS GOLD`, `demo\VIP`, `demo\forex.hedged`, `demo\gold`,
	`demo\stock`, `demo\SPREAD 19`,
}

var defaultVIPGroups = []string{
	`demo\VIP`, `real\VIP A`, `real\VIP B`, `real\ALLWIN VIP 1`,
	`real\Saiful VIP`, `real\Executive`, `real\Executive 25`, `real\Executive Swap`,
}

var defaultManagerGroups = []string{
	`managers\administrators`, `managers\board`, `managers\dealers`, `managers\master`,
}

var defaultCandidateGroups = func() []string {
	candidates := make([]string, 0, 40)
	candidates = append(candidates, defaultRealGroups...)
	candidates = append(candidates, defaultDemoGroups...)
	candidates = append(candidates, `demo\Ruble`, `demo\goldnolev`)
	candidates = append(candidates, defaultManagerGroups...)
	candidates = append(candidates, "abc", "coverage", "preliminary")
	return candidates
}()

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getList(key, sep string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
