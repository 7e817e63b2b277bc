package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	AllowedOrigin string        `mapstructure:"allowed_origin"`
	Secret        string        `mapstructure:"secret"`
	StaticPath    string        `mapstructure:"static_path"`
	PublicURL     string        `mapstructure:"public_url"`
	LogLevel      string        `mapstructure:"log_level"`
	MaxPlayers    int           `mapstructure:"max_players"`
	PhaseTimeout  time.Duration `mapstructure:"phase_timeout"`
	IdleRoomTTL   time.Duration `mapstructure:"idle_room_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	SendBuffer    int           `mapstructure:"send_buffer"`
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. HEIST_*
// environment variables override both.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("HEIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("allowed_origin", "*")
	v.SetDefault("secret", "change-me")
	v.SetDefault("static_path", "./public")
	v.SetDefault("public_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_players", 8)
	v.SetDefault("phase_timeout", "0s")
	v.SetDefault("idle_room_ttl", "10m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxPlayers < 4 || c.MaxPlayers > 8 {
		return errors.New("max_players must be between 4 and 8")
	}
	if c.PhaseTimeout < 0 {
		return errors.New("phase_timeout must not be negative")
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 54 * time.Second
	}
	return nil
}
