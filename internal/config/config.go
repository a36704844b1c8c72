package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Intervals     IntervalConfig `toml:"intervals"`
	AI            AIConfig       `toml:"ai"`
	Paths         PathConfig     `toml:"paths"`
	Screenshot    ScreenshotCfg  `toml:"screenshot"`
	Notifications NotifyConfig   `toml:"notifications"`
	History       HistoryConfig  `toml:"history"`
	Calendar      CalendarConfig `toml:"calendar"`
	Verbose       bool           `toml:"verbose"`
}

type IntervalConfig struct {
	CaptureSeconds  int `toml:"capture_seconds"`  // seconds between screenshots / usage polls
	AnalysisSeconds int `toml:"analysis_seconds"` // seconds between classifier calls
}

type AIConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

type PathConfig struct {
	RulesFile string `toml:"rules_file"` // markdown focus rules, hot-reloaded
	DataDir   string `toml:"data_dir"`   // activity log, summaries, usage totals
}

type ScreenshotCfg struct {
	Dir          string `toml:"dir"`
	Displays     int    `toml:"displays"`
	MaxBuffered  int    `toml:"max_buffered"`
	MaxDimension int    `toml:"max_dimension"`
}

type NotifyConfig struct {
	Enabled         bool `toml:"enabled"`
	CooldownSeconds int  `toml:"cooldown_seconds"`
	EscalationDelay int  `toml:"escalation_delay_seconds"`
}

type HistoryConfig struct {
	WindowSeconds int `toml:"window_seconds"`
	MaxEntries    int `toml:"max_entries"`
}

type CalendarConfig struct {
	Enabled bool   `toml:"enabled"`
	Source  string `toml:"source"` // ICS URL or file path
}

func DefaultConfig() Config {
	return Config{
		Intervals: IntervalConfig{
			CaptureSeconds:  10,
			AnalysisSeconds: 30,
		},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
		},
		Paths: PathConfig{
			RulesFile: "rules.md",
			DataDir:   "~/.focus",
		},
		Screenshot: ScreenshotCfg{
			Dir:          "/tmp/focusd_screenshots",
			Displays:     1,
			MaxBuffered:  10,
			MaxDimension: 1092,
		},
		Notifications: NotifyConfig{
			Enabled:         true,
			CooldownSeconds: 120,
			EscalationDelay: 120,
		},
		History: HistoryConfig{
			WindowSeconds: 1800,
			MaxEntries:    60,
		},
		Calendar: CalendarConfig{
			Enabled: false,
			Source:  "",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "focusd"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("FOCUSD_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("FOCUSD_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DataDir expands the configured data directory (handling a leading ~).
func (c *Config) DataDir() (string, error) {
	dir := c.Paths.DataDir
	if len(dir) > 0 && dir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		dir = filepath.Join(home, dir[1:])
	}
	return dir, nil
}

// LogPath is the location of the append-only activity log.
func (c *Config) LogPath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "activity_log.jsonl"), nil
}
