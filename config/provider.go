package config

import "sync/atomic"

// Provider hands out the current configuration. Readers never see a
// partially updated Config.
type Provider struct {
	cfg atomic.Pointer[Config]
}

func NewProvider(cfg *Config) *Provider {
	p := &Provider{}
	p.cfg.Store(cfg)
	return p
}

func (p *Provider) Get() *Config {
	return p.cfg.Load()
}

// Update swaps in cfg. The caller must not modify cfg afterwards.
func (p *Provider) Update(cfg *Config) {
	p.cfg.Store(cfg)
}
