// Package config provides configuration management for listenmoe-client.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Overriding settings from the environment (and a .env file)
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// API at https://listen.moe/api/, J-pop library,
//	// preferences in ~/.config/listenmoe/prefs.json
//
// # Loading
//
// Load reads the JSON file (defaults when it does not exist) and then applies
// MOE_* environment variables, so the environment always wins:
//
//	settings, err := config.Load("/path/to/config.json")
//
// # Environment
//
//	MOE_API_BASE, MOE_LIBRARY, MOE_PREFS_URL, MOE_TIMEOUT, MOE_USER_AGENT,
//	MOE_PREFER_ROMAJI, MOE_LOG_LEVEL, MOE_LOG_FORMAT, MOE_RECORD_DIR,
//	MOE_PLAYLIST_FORMAT
package config
