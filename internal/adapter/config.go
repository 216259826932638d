package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmcdole/driveshelf/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Drive    DriveConfig    `mapstructure:"drive"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Player   PlayerConfig   `mapstructure:"player"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DriveConfig holds remote storage access
type DriveConfig struct {
	APIKey   string `mapstructure:"api_key"`
	RootID   string `mapstructure:"root_id"`   // Skips the lookup by name when set
	RootName string `mapstructure:"root_name"` // Folder looked up when no root ID is set
	BaseURL  string `mapstructure:"base_url"`
}

// ScanConfig controls traversal pacing
type ScanConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
}

// ServerConfig holds the HTTP API listener
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	PublicURL string `mapstructure:"public_url"` // Base URL clients reach the API at
}

// StoreConfig holds device-local persistence
type StoreConfig struct {
	Path string `mapstructure:"path"` // Empty keeps state in memory only
}

// PlayerConfig holds media player configuration
type PlayerConfig struct {
	MPV       string   `mapstructure:"mpv"` // mpv binary for the terminal player
	Command   string   `mapstructure:"command"`
	Args      []string `mapstructure:"args"`
	StartFlag string   `mapstructure:"start_flag"` // e.g., "--start=" or "--start-time="
}

// PlaybackConfig holds player behavior, in seconds unless noted
type PlaybackConfig struct {
	IntroStart         float64 `mapstructure:"intro_start"`
	IntroEnd           float64 `mapstructure:"intro_end"`
	OutroLength        float64 `mapstructure:"outro_length"`
	ChapterInterval    float64 `mapstructure:"chapter_interval"`
	SeekStep           float64 `mapstructure:"seek_step"`
	VolumeStep         float64 `mapstructure:"volume_step"` // Fraction of full volume
	CheckpointInterval float64 `mapstructure:"checkpoint_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // "-" logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			RootName: "Streaming",
			BaseURL:  "https://www.googleapis.com/drive/v3",
		},
		Scan: ScanConfig{
			BatchSize:  10,
			BatchDelay: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultDataPath(), "driveshelf.db"),
		},
		Player: PlayerConfig{
			MPV:  "mpv",
			Args: []string{},
		},
		Playback: PlaybackConfig{
			IntroStart:         10,
			IntroEnd:           90,
			OutroLength:        300,
			ChapterInterval:    600,
			SeekStep:           10,
			VolumeStep:         0.1,
			CheckpointInterval: 10,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "driveshelf.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the directory for logs and local state
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "driveshelf")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "driveshelf")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "driveshelf")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "driveshelf")
	}
}

// LoadConfig loads configuration from file and environment. .env.local and
// .env in the working directory are loaded first without overriding variables
// that are already set. configFile overrides the config search path.
func LoadConfig(configFile string) (*Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	setDefaults(v, cfg)

	// Environment variable overrides, e.g. DRIVESHELF_SERVER_ADDR
	v.SetEnvPrefix("DRIVESHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("drive.api_key", "DRIVESHELF_DRIVE_API_KEY", "GOOGLE_DRIVE_API_KEY")
	_ = v.BindEnv("drive.root_id", "DRIVESHELF_DRIVE_ROOT_ID", "GOOGLE_DRIVE_ROOT_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// absent from the config file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("drive.api_key", cfg.Drive.APIKey)
	v.SetDefault("drive.root_id", cfg.Drive.RootID)
	v.SetDefault("drive.root_name", cfg.Drive.RootName)
	v.SetDefault("drive.base_url", cfg.Drive.BaseURL)

	v.SetDefault("scan.batch_size", cfg.Scan.BatchSize)
	v.SetDefault("scan.batch_delay", cfg.Scan.BatchDelay)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.public_url", cfg.Server.PublicURL)

	v.SetDefault("store.path", cfg.Store.Path)

	v.SetDefault("player.mpv", cfg.Player.MPV)
	v.SetDefault("player.command", cfg.Player.Command)
	v.SetDefault("player.args", cfg.Player.Args)
	v.SetDefault("player.start_flag", cfg.Player.StartFlag)

	v.SetDefault("playback.intro_start", cfg.Playback.IntroStart)
	v.SetDefault("playback.intro_end", cfg.Playback.IntroEnd)
	v.SetDefault("playback.outro_length", cfg.Playback.OutroLength)
	v.SetDefault("playback.chapter_interval", cfg.Playback.ChapterInterval)
	v.SetDefault("playback.seek_step", cfg.Playback.SeekStep)
	v.SetDefault("playback.volume_step", cfg.Playback.VolumeStep)
	v.SetDefault("playback.checkpoint_interval", cfg.Playback.CheckpointInterval)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// loadDotEnv loads the env files that exist, earlier files taking precedence
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports missing settings the app cannot run without
func (c *Config) Validate() error {
	if c.Drive.APIKey == "" {
		return fmt.Errorf("%w: GOOGLE_DRIVE_API_KEY is not set", domain.ErrConfiguration)
	}
	if c.Drive.RootID == "" && c.Drive.RootName == "" {
		return fmt.Errorf("%w: set GOOGLE_DRIVE_ROOT_ID or drive.root_name", domain.ErrConfiguration)
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("%w: scan.batch_size must be positive", domain.ErrConfiguration)
	}
	return nil
}

// BaseURL returns the URL clients reach the API at. Without an explicit
// public URL it is derived from the listen address.
func (c ServerConfig) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	addr := c.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}
