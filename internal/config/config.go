// Package config loads and persists the blunderlab configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Engine configuration
	Engine EngineConfig `toml:"engine"`

	// Lichess API configuration
	Lichess LichessConfig `toml:"lichess"`

	// Analysis thresholds and limits
	Analysis AnalysisConfig `toml:"analysis"`

	// Output configuration
	Output OutputConfig `toml:"output"`
}

// EngineConfig contains UCI engine settings.
type EngineConfig struct {
	Path    string `toml:"path"`    // Engine executable ($STOCKFISH_PATH or "stockfish" if empty)
	Depth   int    `toml:"depth"`   // Fixed search depth per query
	Threads int    `toml:"threads"` // UCI Threads option
	HashMB  int    `toml:"hash_mb"` // UCI Hash option in MB
}

// LichessConfig contains game retrieval settings.
type LichessConfig struct {
	MaxGames int    `toml:"max_games"` // Maximum games per run
	Perf     string `toml:"perf"`      // Comma-separated speed filter (e.g., "blitz,rapid")
	Side     string `toml:"side"`      // Side filter: white, black or both
}

// AnalysisConfig contains severity thresholds in centipawns of loss.
type AnalysisConfig struct {
	Inaccuracy int `toml:"inaccuracy"` // Lower bound for an inaccuracy
	Mistake    int `toml:"mistake"`    // Lower bound for a mistake
	Blunder    int `toml:"blunder"`    // Lower bound for a blunder
	MinCPShow  int `toml:"min_cp"`     // Minimum cp loss for a record to be emitted
}

// OutputConfig contains report output settings.
type OutputConfig struct {
	Dir string `toml:"dir"` // Gallery output directory
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Path:    "",
			Depth:   12,
			Threads: 2,
			HashMB:  256,
		},
		Lichess: LichessConfig{
			MaxGames: 10,
			Perf:     "",
			Side:     "both",
		},
		Analysis: AnalysisConfig{
			Inaccuracy: 50,
			Mistake:    150,
			Blunder:    300,
			MinCPShow:  50,
		},
		Output: OutputConfig{
			Dir: "out",
		},
	}
}

// Dir returns the blunderlab data directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".blunderlab")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	return dir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Missing keys keep their defaults
	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Engine.Depth <= 0 {
		return fmt.Errorf("engine depth must be positive: %d", c.Engine.Depth)
	}
	if c.Engine.Threads <= 0 {
		return fmt.Errorf("engine threads must be positive: %d", c.Engine.Threads)
	}
	if c.Engine.HashMB <= 0 {
		return fmt.Errorf("engine hash must be positive: %d", c.Engine.HashMB)
	}
	if c.Lichess.MaxGames <= 0 {
		return fmt.Errorf("max games must be positive: %d", c.Lichess.MaxGames)
	}

	switch c.Lichess.Side {
	case "white", "black", "both":
	default:
		return fmt.Errorf("invalid side %q: must be white, black or both", c.Lichess.Side)
	}

	// An inverted ordering would silently mis-tier every flagged move.
	if c.Analysis.Inaccuracy < 0 {
		return fmt.Errorf("inaccuracy threshold cannot be negative: %d", c.Analysis.Inaccuracy)
	}
	if c.Analysis.Inaccuracy > c.Analysis.Mistake || c.Analysis.Mistake > c.Analysis.Blunder {
		return fmt.Errorf("thresholds must satisfy inaccuracy <= mistake <= blunder, got %d/%d/%d",
			c.Analysis.Inaccuracy, c.Analysis.Mistake, c.Analysis.Blunder)
	}
	if c.Analysis.MinCPShow < 0 {
		return fmt.Errorf("min cp floor cannot be negative: %d", c.Analysis.MinCPShow)
	}

	return nil
}

// EnginePath resolves the engine executable: explicit config value,
// then $STOCKFISH_PATH, then the bare name on $PATH.
func (c *Config) EnginePath() string {
	if c.Engine.Path != "" {
		return c.Engine.Path
	}
	if p := os.Getenv("STOCKFISH_PATH"); p != "" {
		return p
	}
	return "stockfish"
}
