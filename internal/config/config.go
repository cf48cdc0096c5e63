// Package config loads sift settings from flags, environment and an optional
// YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	PreviewRows int    `mapstructure:"preview_rows" validate:"min=1,max=100"`
	OutputDir   string `mapstructure:"output_dir"`

	Chart   Chart   `mapstructure:"chart"`
	Log     Log     `mapstructure:"log"`
	Server  Server  `mapstructure:"server"`
	Session Session `mapstructure:"session"`
}

type Chart struct {
	MaxRows int `mapstructure:"max_rows" validate:"min=1,max=500"`
}

type Log struct {
	Debug bool   `mapstructure:"debug"`
	Quiet bool   `mapstructure:"quiet"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

type Server struct {
	Address     string `mapstructure:"address" validate:"required"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb" validate:"min=1,max=1024"`
}

type Session struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions" validate:"min=1"`
}

// MaxUploadBytes is the request body limit for uploads.
func (s Server) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// SetDefaults registers every key with its default so env vars and Unmarshal
// see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("preview_rows", 5)
	v.SetDefault("output_dir", "")
	v.SetDefault("chart.max_rows", 20)
	v.SetDefault("log.debug", false)
	v.SetDefault("log.quiet", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.max_sessions", 256)
}

// Init points v at the config file and environment. A missing config file
// is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".sift")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
