package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/guild-ledger/internal/common"
	"github.com/Veraticus/guild-ledger/internal/model"
)

// EnvPrefix prefixes every environment variable the ledger reads.
const EnvPrefix = "LEDGER"

// Config is the typed view of the ledger's settings.
type Config struct {
	DatabasePath string
	TemplatesDir string
	DateLayout   string
	LogLevel     string
	LogFormat    string
	ImportDryRun bool
}

// DefaultDir returns the directory the config file is searched in.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ledger")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/ledger/ledger.db")
	v.SetDefault("templates.dir", "")
	v.SetDefault("coerce.date_layout", model.DateLayout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("import.dry_run", false)
}

// Configure points v at the config file and the LEDGER_ environment.
// An explicit file overrides the default search path.
func Configure(v *viper.Viper, file string) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Read loads the config file into v. A missing default file is not an
// error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load builds a Config from v, expanding paths.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		TemplatesDir: ExpandPath(v.GetString("templates.dir")),
		DateLayout:   v.GetString("coerce.date_layout"),
		LogLevel:     strings.ToLower(v.GetString("logging.level")),
		LogFormat:    strings.ToLower(v.GetString("logging.format")),
		ImportDryRun: v.GetBool("import.dry_run"),
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database.path must not be empty: %w", common.ErrMissingConfig)
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = model.DateLayout
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("unknown logging.format %q: want console or json: %w", cfg.LogFormat, common.ErrInvalidConfig)
	}
	return cfg, nil
}
