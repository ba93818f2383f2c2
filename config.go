package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "JOBTAIL"
	defaultFPS    = 60
	configDirName = "jobtail"
)

// Config is the effective runtime configuration.
//
// Sources in priority order:
//  1. Command line flags
//  2. Environment variables (JOBTAIL_*)
//  3. Config file (~/.config/jobtail/config.toml)
//  4. Built-in defaults
type Config struct {
	SlurmRefresh time.Duration
	FileRefresh  time.Duration
	SqueueArgs   []string
	FPS          int
	MaxFileBytes int64
	Log          logSettings
	Theme        string
	Surfaces     string
	Palette      string

	v *viper.Viper
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"slurm-refresh":  "slurm_refresh",
	"file-refresh":   "file_refresh",
	"fps":            "fps",
	"max-file-bytes": "max_file_bytes",
	"log-file":       "log.file",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"theme":          "theme",
	"surfaces":       "surfaces",
	"palette":        "palette",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("slurm_refresh", defaultSlurmRefresh.Seconds())
	v.SetDefault("file_refresh", defaultFileRefresh.Seconds())
	v.SetDefault("squeue_args", []string{})
	v.SetDefault("fps", defaultFPS)
	v.SetDefault("max_file_bytes", defaultMaxFileBytes)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("theme", string(ThemeAuto))
	v.SetDefault("surfaces", string(SurfaceTransparent))
	v.SetDefault("palette", string(PaletteDraculaSoft))
}

// registerConfigFlags adds the flags that override configuration keys.
func registerConfigFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file (default ~/.config/jobtail/config.toml)")
	flags.Float64("slurm-refresh", defaultSlurmRefresh.Seconds(), "Seconds between squeue polls")
	flags.Float64("file-refresh", defaultFileRefresh.Seconds(), "Seconds between output file reads")
	flags.Int("fps", defaultFPS, "Maximum redraw rate")
	flags.Int64("max-file-bytes", defaultMaxFileBytes, "Only the last N bytes of large output files are read")
	flags.String("log-file", "", "Write structured logs to this file")
	flags.String("log-level", "info", "Log level: error, warn, info, debug")
	flags.String("log-format", "text", "Log format: text, json")
	flags.String("theme", string(ThemeAuto), "Theme: auto, dark, light")
	flags.String("surfaces", string(SurfaceTransparent), "Panel surfaces: transparent, solid")
	flags.String("palette", string(PaletteDraculaSoft), "Palette: dracula-soft, classic")
}

// loadConfig reads configuration from all sources. flags may be nil.
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var explicit string
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		explicit, _ = flags.GetString("config")
	}

	if explicit != "" {
		v.SetConfigFile(expandHomePath(explicit))
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configDirName))
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		SlurmRefresh: secondsDuration(v.GetFloat64("slurm_refresh")),
		FileRefresh:  secondsDuration(v.GetFloat64("file_refresh")),
		SqueueArgs:   v.GetStringSlice("squeue_args"),
		FPS:          v.GetInt("fps"),
		MaxFileBytes: v.GetInt64("max_file_bytes"),
		Log: logSettings{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Theme:    v.GetString("theme"),
		Surfaces: v.GetString("surfaces"),
		Palette:  v.GetString("palette"),
		v:        v,
	}

	if cfg.SlurmRefresh <= 0 {
		return nil, fmt.Errorf("slurm_refresh must be positive, got %v", v.Get("slurm_refresh"))
	}
	if cfg.FileRefresh <= 0 {
		return nil, fmt.Errorf("file_refresh must be positive, got %v", v.Get("file_refresh"))
	}
	if cfg.FPS < 1 || cfg.FPS > 120 {
		return nil, fmt.Errorf("fps must be between 1 and 120, got %d", cfg.FPS)
	}
	if cfg.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("max_file_bytes must be positive, got %d", cfg.MaxFileBytes)
	}
	return cfg, nil
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// QueryArgs returns the squeue selection used for the all jobs view. Args
// given on the command line win over configured ones, which win over the
// current user.
func (c *Config) QueryArgs(cliArgs []string) []string {
	switch {
	case len(cliArgs) > 0:
		return cliArgs
	case len(c.SqueueArgs) > 0:
		return c.SqueueArgs
	default:
		return DefaultSqueueArgs()
	}
}

// ConfigFile is the config file that was read, if any.
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

// TOML renders the effective configuration.
func (c *Config) TOML() (string, error) {
	out, err := toml.Marshal(c.v.AllSettings())
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(out), nil
}
