package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/handiism/listenmoe-client/internal/audio"
	"github.com/handiism/listenmoe-client/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// API settings
	APIBase         string   `json:"api_base"`
	Library         string   `json:"library"` // jpop, kpop
	Timeout         Duration `json:"timeout"`
	UserAgent       string   `json:"user_agent"`
	MaxConcurrent   int      `json:"max_concurrent_calls"`
	PreferencesURL  string   `json:"preferences_url"`
	GatewayFallback Duration `json:"gateway_heartbeat_fallback"`

	// GatewayURL and StreamURL replace the library's endpoints when set.
	GatewayURL string `json:"gateway_url,omitempty"`
	StreamURL  string `json:"stream_url,omitempty"`

	// Display settings
	PreferRomaji bool `json:"prefer_romaji"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	// Playlist settings
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// Recording settings
	RecordDir        string `json:"record_dir"`
	FileNameFormat   string `json:"file_name_format"`
	SaveCoverInTags  bool   `json:"save_cover_in_tags"`
	CoverMaxSize     int    `json:"cover_max_size"`
	RecordMaxRetries int    `json:"record_max_retries"`
}

// envOverrides mirrors the settings that can be set from the environment.
// It is prefilled from the current settings; unset variables leave a field
// untouched.
type envOverrides struct {
	APIBase        string        `env:"MOE_API_BASE"`
	Library        string        `env:"MOE_LIBRARY"`
	Timeout        time.Duration `env:"MOE_TIMEOUT"`
	UserAgent      string        `env:"MOE_USER_AGENT"`
	PreferencesURL string        `env:"MOE_PREFS_URL"`
	GatewayURL     string        `env:"MOE_GATEWAY_URL"`
	StreamURL      string        `env:"MOE_STREAM_URL"`
	PreferRomaji   bool          `env:"MOE_PREFER_ROMAJI"`
	LogLevel       string        `env:"MOE_LOG_LEVEL"`
	LogFormat      string        `env:"MOE_LOG_FORMAT"`
	RecordDir      string        `env:"MOE_RECORD_DIR"`
	PlaylistFormat string        `env:"MOE_PLAYLIST_FORMAT"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(homeDir, ".config")
	}

	return &Settings{
		APIBase:         "https://listen.moe/api/",
		Library:         model.Jpop.Name,
		Timeout:         Duration(30 * time.Second),
		UserAgent:       "listenmoe-client",
		MaxConcurrent:   4,
		PreferencesURL:  "file://" + filepath.ToSlash(filepath.Join(configDir, "listenmoe", "prefs.json")),
		GatewayFallback: Duration(35 * time.Second),

		PreferRomaji: false,

		LogLevel:  "warn",
		LogFormat: "text",

		PlaylistFormat: "m3u",
		M3UExtended:    true,

		RecordDir:        filepath.Join(homeDir, "Music", "LISTEN.moe"),
		FileNameFormat:   "{artist} - {title}.mp3",
		SaveCoverInTags:  true,
		CoverMaxSize:     500,
		RecordMaxRetries: 5,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(configDir, "listenmoe", "config.json")
}

// Load reads settings from a JSON file and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := settings.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// ApplyEnv loads a .env file if present and applies MOE_* variables.
func (s *Settings) ApplyEnv() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	o := envOverrides{
		APIBase:        s.APIBase,
		Library:        s.Library,
		Timeout:        s.Timeout.Std(),
		UserAgent:      s.UserAgent,
		PreferencesURL: s.PreferencesURL,
		GatewayURL:     s.GatewayURL,
		StreamURL:      s.StreamURL,
		PreferRomaji:   s.PreferRomaji,
		LogLevel:       s.LogLevel,
		LogFormat:      s.LogFormat,
		RecordDir:      s.RecordDir,
		PlaylistFormat: s.PlaylistFormat,
	}
	if err := env.Load(&o, nil); err != nil {
		return fmt.Errorf("config: load environment: %w", err)
	}

	s.APIBase = o.APIBase
	s.Library = o.Library
	s.Timeout = Duration(o.Timeout)
	s.UserAgent = o.UserAgent
	s.PreferencesURL = o.PreferencesURL
	s.GatewayURL = o.GatewayURL
	s.StreamURL = o.StreamURL
	s.PreferRomaji = o.PreferRomaji
	s.LogLevel = o.LogLevel
	s.LogFormat = o.LogFormat
	s.RecordDir = o.RecordDir
	s.PlaylistFormat = o.PlaylistFormat
	return nil
}

// Validate checks settings that would otherwise fail deep inside a command.
func (s *Settings) Validate() error {
	if s.APIBase == "" {
		return fmt.Errorf("config: api_base is required")
	}
	if _, ok := model.LibraryByName(s.Library); !ok {
		return fmt.Errorf("config: unknown library %q (want jpop or kpop)", s.Library)
	}
	if s.MaxConcurrent < 1 {
		s.MaxConcurrent = 1
	}
	return nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// RadioLibrary returns the configured library, J-pop when unknown, with the
// endpoint overrides applied.
func (s *Settings) RadioLibrary() model.Library {
	lib, ok := model.LibraryByName(s.Library)
	if !ok {
		lib = model.Jpop
	}
	if s.GatewayURL != "" {
		lib.GatewayURL = s.GatewayURL
	}
	if s.StreamURL != "" {
		lib.StreamURL = s.StreamURL
	}
	return lib
}

// ToPlaylistFormat converts the playlist_format setting.
func (s *Settings) ToPlaylistFormat() audio.PlaylistFormat {
	switch s.PlaylistFormat {
	case "pls":
		return audio.FormatPLS
	case "wpl":
		return audio.FormatWPL
	case "zpl":
		return audio.FormatZPL
	default:
		return audio.FormatM3U
	}
}
