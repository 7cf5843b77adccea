package config

import (
	"log/slog"
	"time"
)

// NewDefaultConfig creates a new Config with sensible defaults.
// The signing secret is left empty: it must come from the config file or the
// JWT_SECRET environment variable, Validate rejects it otherwise.
func NewDefaultConfig() *Config {
	return &Config{
		Jwt: Jwt{
			AuthSecret:        "",
			AuthTokenDuration: Duration{Duration: 45 * time.Minute},
		},
		Server: Server{
			Addr:                    ":8080",
			ShutdownGracefulTimeout: Duration{Duration: 15 * time.Second},
			ReadTimeout:             Duration{Duration: 2 * time.Second},
			ReadHeaderTimeout:       Duration{Duration: 2 * time.Second},
			WriteTimeout:            Duration{Duration: 15 * time.Second}, // covers the oauth2 exchange
			IdleTimeout:             Duration{Duration: 1 * time.Minute},
			MaxConns:                0,
			MaxBodySize:             1 << 20, // 1MB
		},
		DB: DB{
			Path:        "app.db",
			PoolSize:    4,
			BusyTimeout: Duration{Duration: 5 * time.Second},
		},
		OAuth2: OAuth2{
			Google: OAuth2Provider{
				ClientID:     "",
				ClientSecret: "",
				RedirectURL:  "http://localhost:8080/api/auth/google/callback",
				AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:     "https://oauth2.googleapis.com/token",
				UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
				Issuer:       "",
				JWKSURL:      "",
				Scopes:       []string{"openid", "email", "profile"},
				PKCE:         true,
				StateTTL:     Duration{Duration: 10 * time.Minute},
			},
		},
		FrontendURL:          "http://localhost:3000",
		FrontendCallbackPath: "/auth/callback",
		Endpoints: Endpoints{
			Signup:               "POST /api/auth/signup",
			Login:                "POST /api/auth/login",
			Me:                   "GET /api/auth/me",
			GoogleOAuth2Login:    "GET /api/auth/google/login",
			GoogleOAuth2Callback: "GET /api/auth/google/callback",
			Metrics:              "GET /metrics",
		},
		Cors: Cors{
			AllowedOrigins: []string{"*"},
		},
		Cache: Cache{
			Backend:   CacheBackendRistretto,
			Level:     "small",
			RedisAddr: "",
		},
		Events: Events{
			AmqpURL:  "",
			Exchange: "keyward.identity",
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Log: Log{
			Level:  LogLevel{Level: slog.LevelInfo},
			Format: LogFormatJSON,
			Request: LogRequest{
				Activated: true,
				Limits: LogRequestLimits{
					URILength:       512, // Minimum: 64
					UserAgentLength: 256, // Minimum: 32
					RefererLength:   512, // Minimum: 64
					RemoteIPLength:  64,  // Minimum: 15
				},
			},
		},
	}
}
