package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Revocation backends
const (
	RevocationBuntDB = "buntdb"
	RevocationValkey = "valkey"
	RevocationNone   = "none"
)

// AppConfig defines application configuration loaded from files and environment.
type AppConfig struct {
	Env        string           `koanf:"env"`
	HTTP       HTTPConfig       `koanf:"http"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Revocation RevocationConfig `koanf:"revocation"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	AccessSecret     string        `koanf:"access_secret"`
	RefreshSecret    string        `koanf:"refresh_secret"`
	AccessExpiresIn  time.Duration `koanf:"access_expires_in"`
	RefreshExpiresIn time.Duration `koanf:"refresh_expires_in"`
	Issuer           string        `koanf:"issuer"`
	BcryptCost       int           `koanf:"bcrypt_cost"`
}

type RevocationConfig struct {
	Backend string        `koanf:"backend"`
	Path    string        `koanf:"path"`
	Addr    string        `koanf:"addr"`
	Prefix  string        `koanf:"prefix"`
	UserTTL time.Duration `koanf:"user_ttl"`
}

// RateLimitConfig allows Requests per Window for each client IP on /api.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LoadAppConfig loads configuration. Loading order:
// 1) files listed in APP_CONFIG_FILES (comma separated, default config.yaml) under CONFIG_DIR (default ./config), when present
// 2) environment variables with prefix MEDHIST_ using __ as nested separator, e.g. MEDHIST_AUTH__ACCESS_SECRET
// 3) legacy variables (JWT_SECRET, DATABASE_URL, ...) for anything still unset
// Defaults fill whatever remains empty.
func LoadAppConfig() (*AppConfig, error) {
	k := koanf.New(".")

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	files := os.Getenv("APP_CONFIG_FILES")
	if files == "" {
		files = "config.yaml"
	}
	for _, name := range strings.Split(files, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// MEDHIST_DATABASE__MAX_OPEN_CONNS -> database.max_open_conns. Empty
	// variables are skipped so they do not blank out file values.
	if err := k.Load(env.ProviderWithValue("MEDHIST_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return strings.Replace(strings.ToLower(strings.TrimPrefix(key, "MEDHIST_")), "__", ".", -1), value
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var c AppConfig
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.applyLegacyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *AppConfig) applyLegacyEnv() error {
	if c.Auth.AccessSecret == "" {
		c.Auth.AccessSecret = os.Getenv("JWT_SECRET")
	}
	if c.Auth.RefreshSecret == "" {
		c.Auth.RefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	}
	if c.Auth.AccessExpiresIn == 0 {
		if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: JWT_EXPIRES_IN: %w", err)
			}
			c.Auth.AccessExpiresIn = d
		}
	}
	if c.Auth.RefreshExpiresIn == 0 {
		if v := os.Getenv("JWT_REFRESH_EXPIRES_IN"); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: JWT_REFRESH_EXPIRES_IN: %w", err)
			}
			c.Auth.RefreshExpiresIn = d
		}
	}
	if c.Database.DSN == "" {
		c.Database.DSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if c.HTTP.Addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			c.HTTP.Addr = ":" + port
		}
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		if v := os.Getenv("CORS_ORIGIN"); v != "" {
			c.CORS.AllowedOrigins = []string{v}
		}
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 60 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 120 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Auth.AccessExpiresIn == 0 {
		c.Auth.AccessExpiresIn = time.Hour
	}
	if c.Auth.RefreshExpiresIn == 0 {
		c.Auth.RefreshExpiresIn = 7 * 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "annotation-iam"
	}
	if c.Revocation.Backend == "" {
		c.Revocation.Backend = RevocationBuntDB
	}
	c.Revocation.Backend = strings.ToLower(strings.TrimSpace(c.Revocation.Backend))
	if c.Revocation.Path == "" {
		c.Revocation.Path = ":memory:"
	}
	// A user revocation must outlive every refresh token issued before it.
	if c.Revocation.UserTTL < c.Auth.RefreshExpiresIn {
		c.Revocation.UserTTL = c.Auth.RefreshExpiresIn
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	c.CORS.AllowedOrigins = splitList(c.CORS.AllowedOrigins)
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3001", "http://localhost:5500"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports configuration the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("config: auth.access_secret (or JWT_SECRET) is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("config: auth.refresh_secret (or JWT_REFRESH_SECRET) is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("config: access and refresh secrets must differ")
	}
	if c.Auth.AccessExpiresIn < 0 || c.Auth.RefreshExpiresIn < 0 {
		return fmt.Errorf("config: token lifetimes must be positive")
	}
	switch c.Revocation.Backend {
	case RevocationBuntDB, RevocationNone:
	case RevocationValkey:
		if c.Revocation.Addr == "" {
			return fmt.Errorf("config: revocation.addr is required for the valkey backend")
		}
	default:
		return fmt.Errorf("config: unknown revocation backend %q", c.Revocation.Backend)
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 {
		return fmt.Errorf("config: rate_limit values must be positive")
	}
	return nil
}

// ParseDuration accepts Go durations plus a "d" day suffix ("7d") and bare
// seconds ("3600"), the formats used by the legacy JWT_* variables.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(v, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

// ServerConfig derives the HTTP layer settings.
func (c *AppConfig) ServerConfig() *Config {
	cfg := NewConfig()
	cfg.AllowedOrigins = c.CORS.AllowedOrigins
	cfg.RateLimit = c.RateLimit
	return cfg
}

func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
