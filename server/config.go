package server

import "time"

// Config configuration parameters of the HTTP layer
type Config struct {
	TokenType      string   // token type reported in AuthResponse
	AllowedOrigins []string // CORS origins; "*" allows any
	RateLimit      RateLimitConfig
}

// NewConfig create to configuration instance
func NewConfig() *Config {
	return &Config{
		TokenType: "Bearer",
		RateLimit: RateLimitConfig{Requests: 100, Window: 15 * time.Minute},
	}
}
