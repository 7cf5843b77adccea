package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	EnvJwtSecret          = "JWT_SECRET"
	EnvSecretKey          = "SECRET_KEY" // alias of JWT_SECRET
	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvFrontendURL        = "FRONTEND_URL"
	EnvDatabasePath       = "DATABASE_PATH"
	EnvServerAddr         = "KEYWARD_ADDR"
)

const (
	OAuth2ProviderGoogle = "google"

	CacheBackendRistretto = "ristretto"
	CacheBackendRedis     = "redis"

	LogFormatJSON = "json"
	LogFormatText = "text"
)

type Config struct {
	Jwt    Jwt    `toml:"jwt"`
	Server Server `toml:"server"`
	DB     DB     `toml:"db"`
	OAuth2 OAuth2 `toml:"oauth2"`

	// FrontendURL receives the OAuth2 callback redirect, with the token as
	// query parameter, at FrontendCallbackPath.
	FrontendURL          string `toml:"frontend_url"`
	FrontendCallbackPath string `toml:"frontend_callback_path"`

	Endpoints Endpoints `toml:"endpoints"`
	Cors      Cors      `toml:"cors"`
	Cache     Cache     `toml:"cache"`
	Events    Events    `toml:"events"`
	Metrics   Metrics   `toml:"metrics"`
	Log       Log       `toml:"log"`
}

type Jwt struct {
	AuthSecret        string   `toml:"auth_secret"`
	AuthTokenDuration Duration `toml:"auth_token_duration"`
}

type Server struct {
	Addr                    string   `toml:"addr"`
	ShutdownGracefulTimeout Duration `toml:"shutdown_graceful_timeout"`
	ReadTimeout             Duration `toml:"read_timeout"`
	ReadHeaderTimeout       Duration `toml:"read_header_timeout"`
	WriteTimeout            Duration `toml:"write_timeout"`
	IdleTimeout             Duration `toml:"idle_timeout"`
	// MaxConns caps simultaneous connections. 0 is unlimited.
	MaxConns int `toml:"max_conns"`
	// MaxBodySize caps request bodies in bytes. 0 is unlimited.
	MaxBodySize int64 `toml:"max_body_size"`
}

type DB struct {
	Path        string   `toml:"path"`
	PoolSize    int      `toml:"pool_size"`
	BusyTimeout Duration `toml:"busy_timeout"`
}

type OAuth2 struct {
	Google OAuth2Provider `toml:"google"`
}

type OAuth2Provider struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	UserInfoURL  string   `toml:"user_info_url"`
	Issuer       string   `toml:"issuer"`
	JWKSURL      string   `toml:"jwks_url"`
	Scopes       []string `toml:"scopes"`
	PKCE         bool     `toml:"pkce"`
	StateTTL     Duration `toml:"state_ttl"`
}

// Configured reports whether both client credentials are set.
func (p OAuth2Provider) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Endpoints are route patterns in the "METHOD /path" form.
type Endpoints struct {
	Signup               string `toml:"signup"`
	Login                string `toml:"login"`
	Me                   string `toml:"me"`
	GoogleOAuth2Login    string `toml:"google_oauth2_login"`
	GoogleOAuth2Callback string `toml:"google_oauth2_callback"`
	Metrics              string `toml:"metrics"`
}

// Path returns the path part of a "METHOD /path" endpoint.
func (e Endpoints) Path(endpoint string) string {
	if i := strings.IndexByte(endpoint, ' '); i >= 0 {
		return strings.TrimSpace(endpoint[i+1:])
	}
	return endpoint
}

type Cors struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Cache struct {
	Backend   string `toml:"backend"`
	Level     string `toml:"level"`
	RedisAddr string `toml:"redis_addr"`
}

type Events struct {
	// AmqpURL empty disables publishing.
	AmqpURL  string `toml:"amqp_url"`
	Exchange string `toml:"exchange"`
}

type Metrics struct {
	Enabled bool `toml:"enabled"`
}

type Log struct {
	Level   LogLevel   `toml:"level"`
	Format  string     `toml:"format"`
	Request LogRequest `toml:"request"`
}

type LogRequest struct {
	Activated bool             `toml:"activated"`
	Limits    LogRequestLimits `toml:"limits"`
}

// LogRequestLimits truncate the logged request fields.
type LogRequestLimits struct {
	URILength       int `toml:"uri_length"`
	UserAgentLength int `toml:"user_agent_length"`
	RefererLength   int `toml:"referer_length"`
	RemoteIPLength  int `toml:"remote_ip_length"`
}

// Duration is a time.Duration written as a string ("45m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel is a slog.Level written as "debug", "info", "warn" or "error".
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	return l.Level.UnmarshalText(text)
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.Level.String())), nil
}
