package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Games       GamesConfig       `mapstructure:"games"`
	Auth        AuthConfig        `mapstructure:"auth"`
	WebSocket   WebSocketConfig   `mapstructure:"websocket"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GamesConfig bounds the in-memory game store.
type GamesConfig struct {
	MaxGames      int           `mapstructure:"max_games"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AuthConfig configures seat tokens. An empty secret makes the server
// generate a random one at startup, so tokens do not survive a restart.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PongWait is how long a websocket client may stay silent before it is
// dropped. It must exceed the ping period.
func (w WebSocketConfig) PongWait() time.Duration {
	return w.PingPeriod * 10 / 9
}

// Load reads config.yaml from the working directory or ./config, overlaid
// with CHESSRULES_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(".", "./config")
}

// LoadFrom is Load with explicit search paths.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Enable environment variables
	v.SetEnvPrefix("CHESSRULES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and environment
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("games.max_games", d.Games.MaxGames)
	v.SetDefault("games.idle_ttl", d.Games.IdleTTL)
	v.SetDefault("games.sweep_interval", d.Games.SweepInterval)
	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("websocket.read_buffer_size", d.WebSocket.ReadBufferSize)
	v.SetDefault("websocket.write_buffer_size", d.WebSocket.WriteBufferSize)
	v.SetDefault("websocket.ping_period", d.WebSocket.PingPeriod)
	v.SetDefault("development.debug", d.Development.Debug)
	v.SetDefault("development.log_level", d.Development.LogLevel)
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Games: GamesConfig{
			MaxGames:      1000,
			IdleTTL:       2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      54 * time.Second,
		},
		Development: DevelopmentConfig{
			Debug:    false,
			LogLevel: "info",
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	case c.Games.MaxGames <= 0:
		return fmt.Errorf("invalid config: games.max_games must be positive, got %d", c.Games.MaxGames)
	case c.Games.SweepInterval <= 0:
		return fmt.Errorf("invalid config: games.sweep_interval must be positive, got %s", c.Games.SweepInterval)
	case c.WebSocket.PingPeriod <= 0:
		return fmt.Errorf("invalid config: websocket.ping_period must be positive, got %s", c.WebSocket.PingPeriod)
	}
	return nil
}
