package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
)

const envPrefix = "KIOSK_"

type Config struct {
	App               AppConfig         `koanf:"app"`
	Backend           BackendConfig     `koanf:"backend"`
	JWT               JWTConfig         `koanf:"jwt"`
	Face              FaceConfig        `koanf:"face"`
	Camera            CameraConfig      `koanf:"camera"`
	Geo               GeoConfig         `koanf:"geo"`
	Credentials       CredentialsConfig `koanf:"credentials"`
	Redis             RedisConfig       `koanf:"redis"`
	ReconcileInterval time.Duration     `koanf:"reconcile_interval"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int    `koanf:"port"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`
	Version  string `koanf:"version"`
	KioskID  string `koanf:"kiosk_id"`
	// FrontendOrigins are development front-end origins whose asset URLs are
	// rewritten to the backend origin.
	FrontendOrigins []string `koanf:"frontend_origins"`
	// AllowedOrigins may call the local API from a browser. Defaults to
	// FrontendOrigins; empty means same-origin only.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type BackendConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	// Secret verifies bearer tokens when set; otherwise claims are only decoded.
	Secret string `koanf:"secret"`
}

type FaceConfig struct {
	// Detector is "remote" (face API) or "opencv" (local Haar cascade).
	Detector     string        `koanf:"detector"`
	APIURL       string        `koanf:"api_url"`
	Timeout      time.Duration `koanf:"timeout"`
	CascadePath  string        `koanf:"cascade_path"`
	MinFaceSize  int           `koanf:"min_face_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

type CameraConfig struct {
	Device      string `koanf:"device"`
	Width       int    `koanf:"width"`
	Height      int    `koanf:"height"`
	JPEGQuality int    `koanf:"jpeg_quality"`
	Facing      string `koanf:"facing"`
}

type GeoConfig struct {
	// Source is "static", "http" or "none".
	Source            string        `koanf:"source"`
	Timeout           time.Duration `koanf:"timeout"`
	Latitude          float64       `koanf:"latitude"`
	Longitude         float64       `koanf:"longitude"`
	Accuracy          float64       `koanf:"accuracy"`
	SourceURL         string        `koanf:"source_url"`
	ReverseGeocodeURL string        `koanf:"reverse_geocode_url"`
	Language          string        `koanf:"language"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	Offices           []geo.Office  `koanf:"offices"`
}

type CredentialsConfig struct {
	// Store is "sqlite" or "postgres".
	Store       string `koanf:"store"`
	SQLitePath  string `koanf:"sqlite_path"`
	DatabaseURL string `koanf:"database_url"`
}

type RedisConfig struct {
	// Addr enables the reverse-geocode cache when set.
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:     8090,
			Env:      "development",
			LogLevel: "info",
			Version:  "dev",
			KioskID:  "kiosk-1",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 15 * time.Second,
		},
		Face: FaceConfig{
			Detector:     "remote",
			APIURL:       "http://localhost:8000",
			Timeout:      10 * time.Second,
			CascadePath:  "haarcascade_frontalface_default.xml",
			MinFaceSize:  80,
			PollInterval: 1500 * time.Millisecond,
		},
		Camera: CameraConfig{
			Device:      "0",
			Width:       640,
			Height:      480,
			JPEGQuality: 90,
			Facing:      "user",
		},
		Geo: GeoConfig{
			Source:   "static",
			Timeout:  15 * time.Second,
			Language: "en",
			CacheTTL: 24 * time.Hour,
		},
		Credentials: CredentialsConfig{
			Store:      "sqlite",
			SQLitePath: "kiosk.db",
		},
		Redis: RedisConfig{
			Prefix: "kiosk",
		},
		ReconcileInterval: 5 * time.Minute,
	}
}

// Load builds a Config by layering defaults, an optional YAML file named by
// KIOSK_CONFIG and KIOSK_ environment variables, in that order. A .env file
// is loaded into the environment first when present. Nested keys use a
// double underscore: KIOSK_BACKEND__BASE_URL sets backend.base_url.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".")
		if strings.HasSuffix(key, "_origins") {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if len(cfg.App.AllowedOrigins) == 0 {
		cfg.App.AllowedOrigins = cfg.App.FrontendOrigins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port %d is out of range", c.App.Port)
	}
	if c.App.KioskID == "" {
		return fmt.Errorf("app.kiosk_id is required")
	}
	if err := requireURL("backend.base_url", c.Backend.BaseURL); err != nil {
		return err
	}

	// the remote engine always verifies; only detection can run locally
	if err := requireURL("face.api_url", c.Face.APIURL); err != nil {
		return err
	}
	switch c.Face.Detector {
	case "remote":
	case "opencv":
		if c.Face.CascadePath == "" {
			return fmt.Errorf("face.cascade_path is required for the opencv detector")
		}
	default:
		return fmt.Errorf("face.detector must be remote or opencv, got %q", c.Face.Detector)
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera.width and camera.height must be positive")
	}
	if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
		return fmt.Errorf("camera.jpeg_quality must be between 1 and 100")
	}
	if c.Camera.Facing != "user" && c.Camera.Facing != "environment" {
		return fmt.Errorf("camera.facing must be user or environment, got %q", c.Camera.Facing)
	}

	switch c.Geo.Source {
	case "static", "none":
	case "http":
		if err := requireURL("geo.source_url", c.Geo.SourceURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("geo.source must be static, http or none, got %q", c.Geo.Source)
	}

	switch c.Credentials.Store {
	case "sqlite":
		if c.Credentials.SQLitePath == "" {
			return fmt.Errorf("credentials.sqlite_path is required")
		}
	case "postgres":
		if c.Credentials.DatabaseURL == "" {
			return fmt.Errorf("credentials.database_url is required for the postgres store")
		}
	default:
		return fmt.Errorf("credentials.store must be sqlite or postgres, got %q", c.Credentials.Store)
	}
	return nil
}

// SlogLevel maps app.log_level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func requireURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", key, raw)
	}
	return nil
}
