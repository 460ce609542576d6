package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/listenmoe-client/internal/audio"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	def := DefaultSettings()
	assert.Equal(t, def.APIBase, settings.APIBase)
	assert.Equal(t, "jpop", settings.Library)
	assert.Equal(t, 30*time.Second, settings.Timeout.Std())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	settings := DefaultSettings()
	settings.Library = "kpop"
	settings.Timeout = Duration(5 * time.Second)
	settings.PreferRomaji = true
	require.NoError(t, settings.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kpop", loaded.Library)
	assert.Equal(t, 5*time.Second, loaded.Timeout.Std())
	assert.True(t, loaded.PreferRomaji)
	assert.Equal(t, "kpop", loaded.RadioLibrary().Name)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"library":"jpop","timeout":"10s"}`), 0644))

	t.Setenv("MOE_LIBRARY", "kpop")
	t.Setenv("MOE_TIMEOUT", "2s")
	t.Setenv("MOE_PREFS_URL", "memory:")

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kpop", settings.Library)
	assert.Equal(t, 2*time.Second, settings.Timeout.Std())
	assert.Equal(t, "memory:", settings.PreferencesURL)
}

func TestLoad_InvalidLibrary(t *testing.T) {
	t.Setenv("MOE_LIBRARY", "cpop")

	_, err := Load("")
	assert.ErrorContains(t, err, "unknown library")
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDuration_UnmarshalSeconds(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`45`)))
	assert.Equal(t, 45*time.Second, d.Std())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestToPlaylistFormat(t *testing.T) {
	tests := []struct {
		in   string
		want audio.PlaylistFormat
	}{
		{"m3u", audio.FormatM3U},
		{"pls", audio.FormatPLS},
		{"wpl", audio.FormatWPL},
		{"zpl", audio.FormatZPL},
		{"bogus", audio.FormatM3U},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := DefaultSettings()
			s.PlaylistFormat = tt.in
			assert.Equal(t, tt.want, s.ToPlaylistFormat())
		})
	}
}

func TestRadioLibrary_EndpointOverrides(t *testing.T) {
	s := DefaultSettings()
	s.Library = "kpop"
	assert.Equal(t, "wss://listen.moe/kpop/gateway_v2", s.RadioLibrary().GatewayURL)

	t.Setenv("MOE_GATEWAY_URL", "ws://127.0.0.1:9000/gateway")
	t.Setenv("MOE_STREAM_URL", "http://127.0.0.1:9000/fallback")
	require.NoError(t, s.ApplyEnv())

	lib := s.RadioLibrary()
	assert.Equal(t, "kpop", lib.Name)
	assert.Equal(t, "ws://127.0.0.1:9000/gateway", lib.GatewayURL)
	assert.Equal(t, "http://127.0.0.1:9000/fallback", lib.StreamURL)
	assert.Equal(t, "https://listen.moe/kpop/stream", lib.OpusURL)
}
