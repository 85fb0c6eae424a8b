package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/schedule"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	t.Setenv(EnvListen, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "nested", "shiftcal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, cfg.Listen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Timezone, again.Timezone)
	assert.Equal(t, 60*time.Minute, again.DefaultDuration)
	assert.Equal(t, "@every 10m", again.Janitor)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	t.Setenv(EnvListen, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "c.yaml")
	yml := "listen: \":9000\"\n" +
		"default_duration: 8h\n" +
		"transformer: surname\n" +
		"aliases:\n" +
		"  subject: [Turno]\n" +
		"basic_auth:\n" +
		"  username: admin\n" +
		"  password: secret\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 8*time.Hour, cfg.DefaultDuration)
	assert.Equal(t, "surname", cfg.Transformer)
	assert.Equal(t, "Europe/Rome", cfg.Timezone)
	assert.Equal(t, "Event", cfg.PlaceholderName)
	assert.NotEmpty(t, cfg.Truthy)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)

	aliases := cfg.AliasTable()
	assert.Equal(t, "Turno", aliases[schedule.FieldSubject][0])
	assert.Contains(t, aliases[schedule.FieldSubject], "Oggetto")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvListen, "0.0.0.0:7000")
	t.Setenv(EnvLogLevel, "debug")
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"bad yaml", "listen: [\n"},
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"bad transformer", "transformer: python\n"},
		{"bad alias field", "aliases:\n  colour: [Colore]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestNormalize_DropsEmptyBasicAuth(t *testing.T) {
	cfg := &Config{BasicAuth: &BasicAuthConfig{}}
	cfg.Normalize()
	assert.Nil(t, cfg.BasicAuth)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	assert.Equal(t, "x.yaml", ResolvePath("x.yaml"))

	t.Setenv(EnvConfigPath, "/etc/shiftcal.yaml")
	assert.Equal(t, "/etc/shiftcal.yaml", ResolvePath(""))
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(EnvListen, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "c.yaml")
	cfg := DefaultConfig()
	cfg.WorkspaceTTL = 90 * time.Minute
	cfg.Aliases = map[string][]string{"location": {"Reparto"}}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
