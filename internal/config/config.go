package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/validation"
)

type Config struct {
	Database  DatabaseConfig            `mapstructure:"database"`
	Log       LogConfig                 `mapstructure:"log"`
	HTTP      HTTPConfig                `mapstructure:"http"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Delivery  DeliveryConfig            `mapstructure:"delivery"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// AllowInsecure accepts http and localhost provider endpoints.
	AllowInsecure bool `mapstructure:"allow_insecure"`
}

type ProviderConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	AuthURL      string        `mapstructure:"auth_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type DeliveryConfig struct {
	// MaxArticles is the default total for newest-N bounding.
	MaxArticles int `mapstructure:"max_articles"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".readerlink")

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(base, "readerlink.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(base, "index.bleve"),
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(base, "readerlink.log"),
		},
		HTTP: HTTPConfig{
			Timeout:   reader.DefaultTimeout,
			UserAgent: "readerlink/1.0 (https://github.com/pders01/readerlink)",
		},
		Providers: map[string]ProviderConfig{
			reader.Inoreader.Key(): {
				Enabled: true,
				URL:     "https://www.inoreader.com/reader/api/0",
				AuthURL: "https://www.inoreader.com/oauth2/token",
			},
			reader.OldReader.Key(): {
				Enabled: true,
				URL:     "https://theoldreader.com/reader/api/0",
				AuthURL: "https://theoldreader.com/accounts/ClientLogin",
			},
			reader.Newsblur.Key(): {
				Enabled: true,
				URL:     "https://www.newsblur.com",
				Timeout: 5 * time.Second,
			},
			// Feedly needs a partner client and is opt-in.
			reader.Feedly.Key(): {
				Enabled: false,
				URL:     "https://cloud.feedly.com/v3",
			},
		},
		Delivery: DeliveryConfig{
			MaxArticles: 25,
		},
	}
}

// setDefaults registers every leaf so that environment overrides such as
// READERLINK_PROVIDERS_INOREADER_CLIENT_SECRET are picked up.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.timeout", cfg.Database.Timeout)
	v.SetDefault("database.search_index", cfg.Database.SearchIndex)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	v.SetDefault("http.allow_insecure", cfg.HTTP.AllowInsecure)
	v.SetDefault("delivery.max_articles", cfg.Delivery.MaxArticles)

	for name, p := range cfg.Providers {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"enabled", p.Enabled)
		v.SetDefault(prefix+"url", p.URL)
		v.SetDefault(prefix+"auth_url", p.AuthURL)
		v.SetDefault(prefix+"client_id", p.ClientID)
		v.SetDefault(prefix+"client_secret", p.ClientSecret)
		v.SetDefault(prefix+"redirect_url", p.RedirectURL)
		v.SetDefault(prefix+"timeout", p.Timeout)
	}
}

// DefaultPath is ~/.config/readerlink/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "readerlink", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("READERLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.Database.Path, &cfg.Database.SearchIndex, &cfg.Log.File} {
		if *p == "" {
			continue
		}
		expanded, err := validation.ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Provider returns the adaptor settings for p. ok is false when the
// provider has no section or is disabled.
func (c *Config) Provider(p reader.Provider) (reader.ProviderConfig, bool, error) {
	pc, found := c.Providers[p.Key()]
	if !found || !pc.Enabled {
		return reader.ProviderConfig{}, false, nil
	}

	validator := validation.NewEndpointValidator()
	if c.HTTP.AllowInsecure {
		validator = validation.NewPermissiveEndpointValidator()
	}
	apiURL, err := validator.Validate(pc.URL)
	if err != nil {
		return reader.ProviderConfig{}, true, fmt.Errorf("%s url: %w", p.Key(), err)
	}
	authURL := pc.AuthURL
	if authURL != "" {
		if authURL, err = validator.Validate(authURL); err != nil {
			return reader.ProviderConfig{}, true, fmt.Errorf("%s auth_url: %w", p.Key(), err)
		}
	}

	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = c.HTTP.Timeout
	}
	return reader.ProviderConfig{
		URL:          apiURL,
		AuthURL:      authURL,
		ClientID:     pc.ClientID,
		ClientSecret: pc.ClientSecret,
		RedirectURL:  pc.RedirectURL,
		Timeout:      timeout,
		UserAgent:    c.HTTP.UserAgent,
	}, true, nil
}

type fileConfig struct {
	Database struct {
		Path        string `toml:"path"`
		Timeout     string `toml:"timeout"`
		SearchIndex string `toml:"search_index"`
	} `toml:"database"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	HTTP struct {
		Timeout       string `toml:"timeout"`
		UserAgent     string `toml:"user_agent"`
		AllowInsecure bool   `toml:"allow_insecure"`
	} `toml:"http"`
	Providers map[string]fileProvider `toml:"providers"`
	Delivery  struct {
		MaxArticles int `toml:"max_articles"`
	} `toml:"delivery"`
}

type fileProvider struct {
	Enabled      bool   `toml:"enabled"`
	URL          string `toml:"url"`
	AuthURL      string `toml:"auth_url,omitempty"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
	Timeout      string `toml:"timeout,omitempty"`
}

// Save writes the config as TOML with durations spelled out.
func Save(config *Config, path string) error {
	var fc fileConfig
	fc.Database.Path = config.Database.Path
	fc.Database.Timeout = config.Database.Timeout.String()
	fc.Database.SearchIndex = config.Database.SearchIndex
	fc.Log.Level = config.Log.Level
	fc.Log.File = config.Log.File
	fc.HTTP.Timeout = config.HTTP.Timeout.String()
	fc.HTTP.UserAgent = config.HTTP.UserAgent
	fc.HTTP.AllowInsecure = config.HTTP.AllowInsecure
	fc.Delivery.MaxArticles = config.Delivery.MaxArticles

	fc.Providers = make(map[string]fileProvider, len(config.Providers))
	for name, p := range config.Providers {
		fp := fileProvider{
			Enabled:      p.Enabled,
			URL:          p.URL,
			AuthURL:      p.AuthURL,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
		}
		if p.Timeout > 0 {
			fp.Timeout = p.Timeout.String()
		}
		fc.Providers[name] = fp
	}

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// the file can hold client secrets
	return os.WriteFile(path, data, 0o600)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
