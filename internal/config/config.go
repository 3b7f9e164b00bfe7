package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string           `mapstructure:"mode"`
	Port       int              `mapstructure:"port"`
	ARI        ARIConfig        `mapstructure:"ari"`
	Conference ConferenceConfig `mapstructure:"conference"`
	Trigger    TriggerConfig    `mapstructure:"trigger"`
	Media      MediaConfig      `mapstructure:"media"`
	Listener   ListenerConfig   `mapstructure:"listener"`
	Observer   ObserverConfig   `mapstructure:"observer"`
	Log        LogConfig        `mapstructure:"log"`
}

type ARIConfig struct {
	URL          string `mapstructure:"url"`
	WebsocketURL string `mapstructure:"websocket_url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Application  string `mapstructure:"application"`
}

type ConferenceConfig struct {
	Name       string `mapstructure:"name"`
	BridgeType string `mapstructure:"bridge_type"`
}

type TriggerConfig struct {
	Digit string `mapstructure:"digit"`
	// ExcludeSelf keeps the presser out of the draw when others are present.
	ExcludeSelf bool `mapstructure:"exclude_self"`
}

type MediaConfig struct {
	Beep  string `mapstructure:"beep"`
	Prank string `mapstructure:"prank"`
}

type ListenerConfig struct {
	PlaybackTimeout time.Duration `mapstructure:"playback_timeout"`
}

// ObserverConfig tunes the websocket event feed.
type ObserverConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

const envPrefix = "CONFDEMO"

var (
	ErrNoARIURL       = errors.New("ari.url is required")
	ErrNoApplication  = errors.New("ari.application is required")
	ErrBadTriggerChar = errors.New("trigger.digit must be one of 0-9, A-D, * or #")
	ErrBadLogLevel    = errors.New("log.level is not a known level")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("ari.url", "http://localhost:8088/ari")
	v.SetDefault("ari.websocket_url", "")
	v.SetDefault("ari.username", "asterisk")
	v.SetDefault("ari.password", "asterisk")
	v.SetDefault("ari.application", "conf-demo")
	v.SetDefault("conference.name", "conf-demo")
	v.SetDefault("conference.bridge_type", "mixing,dtmf_events")
	v.SetDefault("trigger.digit", "#")
	v.SetDefault("trigger.exclude_self", false)
	v.SetDefault("media.beep", "sound:beep")
	v.SetDefault("media.prank", "sound:tt-monkeys")
	v.SetDefault("listener.playback_timeout", "30s")
	v.SetDefault("observer.ping_interval", "30s")
	v.SetDefault("observer.read_limit", 4096)
	v.SetDefault("observer.rate_limit", 20)
	v.SetDefault("observer.rate_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 1)
}

// Load reads config/config.<CONFIG_ENV>.yaml, or the file named by the
// "config" flag, then applies CONFDEMO_* environment variables and flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	fileName := v.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("ari", cfg.ARI.URL).
		Str("app", cfg.ARI.Application).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ARI.URL == "" {
		return ErrNoARIURL
	}
	if c.ARI.Application == "" {
		return ErrNoApplication
	}
	if len(c.Trigger.Digit) != 1 || !strings.Contains("0123456789ABCD*#", c.Trigger.Digit) {
		return fmt.Errorf("%w: %q", ErrBadTriggerChar, c.Trigger.Digit)
	}
	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: %q", ErrBadLogLevel, c.Log.Level)
		}
	}
	return nil
}
