package config

import "time"

// TestConfig returns a config with every provider enabled and plain http
// endpoints allowed, for use against httptest servers.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Database = DatabaseConfig{
		Path:    ":memory:",
		Timeout: 1 * time.Second,
	}
	cfg.Log = LogConfig{Level: "off"}
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.UserAgent = "readerlink-test/1.0"
	cfg.HTTP.AllowInsecure = true
	for name, p := range cfg.Providers {
		p.Enabled = true
		p.ClientID = "test-client"
		p.ClientSecret = "test-secret"
		p.RedirectURL = "http://localhost/callback"
		cfg.Providers[name] = p
	}
	return cfg
}
