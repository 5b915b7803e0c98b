package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultIngressIP is the only client allowed on the editor when no allowlist is configured.
const DefaultIngressIP = "172.30.32.2"

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress  string        `mapstructure:"server_address"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	ConfigDir      string        `mapstructure:"config_dir"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	DBSource       string        `mapstructure:"db_source"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	Redis          RedisConfig   `mapstructure:"redis"`
	Editor         EditorConfig  `mapstructure:"editor"`
	Trackers       []Tracker     `mapstructure:"trackers"`
}

// RedisConfig enables publishing tracker state changes when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// EditorConfig configures the static zone editor.
type EditorConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	StaticDir   string   `mapstructure:"static_dir"`
	ZonesFile   string   `mapstructure:"zones_file"`
	AllowedIPs  []string `mapstructure:"allowed_ips"`
	AllowAllIPs bool     `mapstructure:"allow_all_ips"`
}

// Tracker binds a location entity to an ordered list of zone sources.
type Tracker struct {
	ID          string   `mapstructure:"id"`
	EntityID    string   `mapstructure:"entity_id"`
	ZoneSources []string `mapstructure:"zone_sources"`
	Prioritize  bool     `mapstructure:"prioritize"`
	Editable    bool     `mapstructure:"editable"`
	Watch       bool     `mapstructure:"watch"`
}

// LoadConfig reads app.yaml from path. Environment variables prefixed with POLYZONES_ override it,
// e.g. POLYZONES_EDITOR_ALLOW_ALL_IPS=true.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("polyzones")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_address", ":8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("config_dir", ".")
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("db_source", "")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "polygonal_zones.state")
	v.SetDefault("editor.enabled", false)
	v.SetDefault("editor.static_dir", "static")
	v.SetDefault("editor.zones_file", "data/zones.json")
	v.SetDefault("editor.allowed_ips", []string{DefaultIngressIP})
	v.SetDefault("editor.allow_all_ips", false)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: failed to read: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: failed to decode: %w", err)
	}

	err = config.Validate()
	return
}

// Validate applies the rules the setup wizard used to enforce.
func (c Config) Validate() error {
	if len(c.Trackers) == 0 {
		return errors.New("config: no trackers configured")
	}

	seen := make(map[string]bool, len(c.Trackers))
	for i, t := range c.Trackers {
		switch {
		case t.ID == "":
			return fmt.Errorf("config: tracker %d has no id", i)
		case seen[t.ID]:
			return fmt.Errorf("config: duplicate tracker id %q", t.ID)
		case t.EntityID == "":
			return fmt.Errorf("config: tracker %q has no entity_id", t.ID)
		case len(t.Sources()) == 0:
			return fmt.Errorf("config: tracker %q has no zone_sources", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// Sources returns the configured sources without blank entries.
func (t Tracker) Sources() []string {
	out := make([]string, 0, len(t.ZoneSources))
	for _, s := range t.ZoneSources {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
