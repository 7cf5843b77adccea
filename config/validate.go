package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/keyward/keyward/crypto"
)

func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateJwt(&cfg.Jwt); err != nil {
		return fmt.Errorf("jwt config validation failed: %w", err)
	}
	if err := validateFrontend(cfg); err != nil {
		return fmt.Errorf("frontend config validation failed: %w", err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config validation failed: %w", err)
	}
	if err := validateEndpoints(&cfg.Endpoints); err != nil {
		return fmt.Errorf("endpoints config validation failed: %w", err)
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if cfg.Log.Format != LogFormatJSON && cfg.Log.Format != LogFormatText {
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	return nil
}

// validateServer checks the Server configuration section.
// It ensures the Addr field is not empty and contains a valid host:port or :port format.
// If only a port is provided (e.g., ":8080"), it defaults the host to "localhost".
//
// Allowed formats:
//   - "host:port" (e.g., "example.com:8080", "127.0.0.1:8080", "[::1]:8080")
//   - ":port"     (e.g., ":8080" becomes "localhost:8080")
//
// The port part is mandatory.
func validateServer(server *Server) error {
	if server.Addr == "" {
		return fmt.Errorf("server address (Addr) cannot be empty")
	}

	host, port, err := net.SplitHostPort(server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server address format '%s': %w", server.Addr, err)
	}
	if host == "" {
		host = "localhost" // Default host
	}

	if port == "" {
		return fmt.Errorf("server address '%s' must include a port", server.Addr)
	}

	// Reconstruct the address with the defaulted host if necessary
	server.Addr = net.JoinHostPort(host, port)

	// Basic check: Ensure port is numeric (net.SplitHostPort doesn't guarantee this fully)
	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid port '%s' in server address '%s': %w", port, server.Addr, err)
	}

	if server.MaxConns < 0 {
		return fmt.Errorf("max_conns cannot be negative")
	}
	if server.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size cannot be negative")
	}

	return nil
}

// validateJwt fails fast on a missing or short signing secret.
func validateJwt(jwt *Jwt) error {
	if len(jwt.AuthSecret) < crypto.MinKeyLength {
		return fmt.Errorf("auth_secret must be at least %d bytes (set it in the file or %s): %w",
			crypto.MinKeyLength, EnvJwtSecret, crypto.ErrJwtInvalidSecretLength)
	}
	if jwt.AuthTokenDuration.Duration <= 0 {
		return fmt.Errorf("auth_token_duration must be positive, got %s", jwt.AuthTokenDuration)
	}
	return nil
}

func validateFrontend(cfg *Config) error {
	u, err := url.Parse(cfg.FrontendURL)
	if err != nil {
		return fmt.Errorf("invalid frontend_url '%s': %w", cfg.FrontendURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("frontend_url '%s' must be an absolute http(s) url", cfg.FrontendURL)
	}
	if !strings.HasPrefix(cfg.FrontendCallbackPath, "/") {
		return fmt.Errorf("frontend_callback_path '%s' must start with /", cfg.FrontendCallbackPath)
	}
	return nil
}

func validateCache(c *Cache) error {
	switch c.Backend {
	case CacheBackendRistretto:
	case CacheBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis backend requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
	return nil
}

// validateEndpoints requires every endpoint to be a "METHOD /path" pattern.
func validateEndpoints(e *Endpoints) error {
	for name, ep := range map[string]string{
		"signup":                 e.Signup,
		"login":                  e.Login,
		"me":                     e.Me,
		"google_oauth2_login":    e.GoogleOAuth2Login,
		"google_oauth2_callback": e.GoogleOAuth2Callback,
		"metrics":                e.Metrics,
	} {
		method, path, ok := strings.Cut(ep, " ")
		if !ok || method == "" || !strings.HasPrefix(path, "/") {
			return fmt.Errorf("endpoint %s '%s' must have the form 'METHOD /path'", name, ep)
		}
		if method != strings.ToUpper(method) {
			return fmt.Errorf("endpoint %s '%s' method must be upper case", name, ep)
		}
	}
	return nil
}
