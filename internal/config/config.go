// Package config reads the runtime settings from the environment. A
// .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type API struct {
	BaseURL     string
	RedirectURI string
}

type Store struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Device is the fixed position reported to the explorer. Set is false
// when no position was configured, which the explorer treats as a
// denied location permission.
type Device struct {
	Set bool
	Lat float64
	Lng float64
}

type Log struct {
	Level    slog.Level
	JSON     bool
	UseColor bool
}

type FluentBit struct {
	Enabled bool
	Host    string
	Port    int
	Tag     string
	Level   slog.Level
}

// Config is every setting the server binary needs.
type Config struct {
	Port string
	API  API

	// AllowedOrigins are the browser origins allowed to call the
	// server, read from the comma separated CORS_ALLOWED_ORIGINS.
	AllowedOrigins []string

	Store  Store
	Device Device

	// RefreshInterval is how often the current region is fetched
	// again in the background. Zero disables it.
	RefreshInterval time.Duration
	RegionDebounce  time.Duration

	Workers int

	Log       Log
	FluentBit FluentBit
}

// Load reads a .env file, if envPath names one or ./.env exists, and
// then the environment. A missing .env file is not an error.
func Load(envPath ...string) (Config, error) {
	if err := godotenv.Load(envPath...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed loading env file: %w", err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port: getEnvAsString("PORT", "8080"),
		API: API{
			BaseURL:     strings.TrimRight(getEnvAsString("NUGUL_API_BASE_URL", "https://api.nugulmap.com"), "/"),
			RedirectURI: getEnvAsString("NUGUL_OAUTH_REDIRECT_URI", "nugulmap://oauth/callback"),
		},
		Store: Store{
			Driver:      strings.ToLower(getEnvAsString("STORE_DRIVER", DriverMemory)),
			Path:        getEnvAsString("STORE_PATH", "nugulmap.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 0),
		RegionDebounce:  getEnvAsDuration("REGION_DEBOUNCE", 700*time.Millisecond),
		Workers:         getEnvAsInt("WORKERS", 4),
		Log: Log{
			Level:    getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
			JSON:     getEnvAsBool("LOG_JSON", false),
			UseColor: getEnvAsBool("LOG_COLOR", true),
		},
	}

	switch cfg.Store.Driver {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if cfg.Store.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}

	lat, latOK := os.LookupEnv("DEVICE_LAT")
	lng, lngOK := os.LookupEnv("DEVICE_LNG")
	if latOK || lngOK {
		d, err := parseDevice(lat, lng)
		if err != nil {
			return Config{}, err
		}
		cfg.Device = d
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			slog.Warn("FLUENTBIT_ENABLED is set without FLUENTBIT_HOST, disabling fluent bit")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Tag = getEnvAsString("FLUENTBIT_TAG", "nugulmap")
		cfg.FluentBit.Level = getEnvAsLevel("FLUENTBIT_LOG_LEVEL", slog.LevelInfo)
	}

	return cfg, nil
}

func parseDevice(lat, lng string) (Device, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return Device{}, fmt.Errorf("invalid DEVICE_LAT %q", lat)
	}

	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || ln < -180 || ln > 180 {
		return Device{}, fmt.Errorf("invalid DEVICE_LNG %q", lng)
	}

	return Device{Set: true, Lat: la, Lng: ln}, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}

	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("could not parse env as int, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("could not parse env as bool, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil || value < 0 {
		slog.Warn("could not parse env as duration, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		slog.Warn("could not parse env as log level, using default", "key", key, "value", valueStr, "default", defaultValue)
		return defaultValue
	}

	return level
}
