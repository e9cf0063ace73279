package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	CloudinaryName   string
	CloudinaryKey    string
	CloudinarySecret string
	CloudinaryFolder string

	// Room lifecycle engine settings.
	SweepInterval      time.Duration
	SweepErrorBackoff  time.Duration
	IdleAwayThreshold  time.Duration
	IdleEvictThreshold time.Duration
	EmptyRoomThreshold time.Duration
	MinWaitingRooms    int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MATCHFYN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "MatchFyn API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.issuer", "matchfyn")
	v.SetDefault("jwt.audience", "matchfyn-clients")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("cloudinary.folder", "matchfyn/profiles")
	v.SetDefault("lifecycle.sweep_interval", "1m")
	v.SetDefault("lifecycle.error_backoff", "5m")
	v.SetDefault("lifecycle.idle_away", "5m")
	v.SetDefault("lifecycle.idle_evict", "10m")
	v.SetDefault("lifecycle.empty_room", "30m")
	v.SetDefault("lifecycle.min_waiting_rooms", 2)

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTIssuer:        v.GetString("jwt.issuer"),
		JWTAudience:      v.GetString("jwt.audience"),
		CloudinaryName:   v.GetString("cloudinary.cloud_name"),
		CloudinaryKey:    v.GetString("cloudinary.api_key"),
		CloudinarySecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder: v.GetString("cloudinary.folder"),
		MinWaitingRooms:  v.GetInt("lifecycle.min_waiting_rooms"),
	}

	durations := map[string]*time.Duration{
		"jwt.access_ttl":           &cfg.AccessTokenTTL,
		"jwt.refresh_ttl":          &cfg.RefreshTokenTTL,
		"lifecycle.sweep_interval": &cfg.SweepInterval,
		"lifecycle.error_backoff":  &cfg.SweepErrorBackoff,
		"lifecycle.idle_away":      &cfg.IdleAwayThreshold,
		"lifecycle.idle_evict":     &cfg.IdleEvictThreshold,
		"lifecycle.empty_room":     &cfg.EmptyRoomThreshold,
	}

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		*target = parsed
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MinWaitingRooms <= 0 {
		cfg.MinWaitingRooms = 2
	}

	return cfg, nil
}
