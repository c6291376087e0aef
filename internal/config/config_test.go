package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	Configure(v, "")
	require.NoError(t, Read(v))

	cfg, err := Load(v)
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".local/share/ledger/ledger.db"), cfg.DatabasePath)
	assert.Equal(t, model.DateLayout, cfg.DateLayout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.ImportDryRun)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
database:
  path: /tmp/guild.db
coerce:
  date_layout: 02/01/2006
logging:
  level: DEBUG
  format: json
`), 0600))
	t.Setenv("LEDGER_IMPORT_DRY_RUN", "true")
	t.Setenv("LEDGER_TEMPLATES_DIR", "$HOME/templates")
	t.Setenv("HOME", dir)

	v := viper.New()
	Configure(v, file)
	require.NoError(t, Read(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/guild.db", cfg.DatabasePath)
	assert.Equal(t, "02/01/2006", cfg.DateLayout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.ImportDryRun)
	assert.Equal(t, filepath.Join(dir, "templates"), cfg.TemplatesDir)
}

func TestRead_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	Configure(v, filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, Read(v))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		val  any
		want error
		name string
		key  string
	}{
		{name: "empty database path", key: "database.path", val: "", want: common.ErrMissingConfig},
		{name: "unknown log format", key: "logging.format", val: "xml", want: common.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/guild")
	t.Setenv("LEDGER_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", "/home/guild"},
		{"~/ledger.db", "/home/guild/ledger.db"},
		{"$LEDGER_TEST_DIR/ledger.db", "/data/ledger.db"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}
