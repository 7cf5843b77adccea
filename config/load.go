package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Load builds the configuration: defaults, then the TOML file at path (if
// path is not empty), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays the environment on cfg. Set variables win over the file.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&cfg.Jwt.AuthSecret, EnvJwtSecret, EnvSecretKey)
	set(&cfg.OAuth2.Google.ClientID, EnvGoogleClientID)
	set(&cfg.OAuth2.Google.ClientSecret, EnvGoogleClientSecret)
	set(&cfg.FrontendURL, EnvFrontendURL)
	set(&cfg.DB.Path, EnvDatabasePath)
	set(&cfg.Server.Addr, EnvServerAddr)
}

const redacted = "<redacted>"

// Redacted returns a copy of cfg with secrets replaced, for printing.
func Redacted(cfg *Config) *Config {
	c := *cfg
	if c.Jwt.AuthSecret != "" {
		c.Jwt.AuthSecret = redacted
	}
	if c.OAuth2.Google.ClientSecret != "" {
		c.OAuth2.Google.ClientSecret = redacted
	}
	return &c
}

// Dump writes cfg as TOML with secrets redacted.
func Dump(w io.Writer, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Redacted(cfg)); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
