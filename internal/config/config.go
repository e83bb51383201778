// Package config loads the non-secret topic/endpoint configuration
// and HSP/Darwin credentials backing both binaries, the Go form of
// the source's config.py module: a YAML file read through viper,
// with environment variables able to override it. No command-line
// flags are bound here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Darwin holds STOMP connection parameters for the Darwin PushPort
// feed.
type Darwin struct {
	TopicHost      string
	TopicPort      int
	TopicName      string
	HeartBeat      time.Duration
	ReconnectDelay time.Duration
	SubscriptionID string
	AckMode        string

	TopicUsername string
	TopicPassword string
}

// HSP holds the Historic Service Performance API endpoints and Basic
// auth credentials.
type HSP struct {
	ServiceMetricsURL string
	ServiceDetailsURL string
	Username          string
	Password          string
}

// Config is the full set of non-secret and secret configuration
// loaded from built-in defaults, a config file and environment
// variables, in that ascending order of precedence (viper's default).
type Config struct {
	Darwin Darwin
	HSP    HSP
}

// Requirement names a config section a caller actually needs
// populated. realtime touches Darwin only; enrich touches HSP only —
// each runs as its own process (cmd/realtime.go, cmd/enrich.go) and
// should not fail to start for missing credentials it never uses.
type Requirement string

const (
	RequireDarwin Requirement = "darwin"
	RequireHSP    Requirement = "hsp"
)

// Load reads configPath (if non-empty) and environment variables
// prefixed RAILDELAY_ (e.g. RAILDELAY_DARWIN_TOPIC_PASSWORD) into a
// Config. For each Requirement passed, the corresponding section's
// fields with no default must be set by one of those sources or Load
// returns an error listing every missing key. Pass no requirements to
// skip validation entirely.
func Load(configPath string, required ...Requirement) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAILDELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("darwin.heartbeat_ms", 15000)
	v.SetDefault("darwin.reconnect_delay_secs", 15)
	v.SetDefault("darwin.subscription_id", "1")
	v.SetDefault("darwin.ack_mode", "auto")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := Config{
		Darwin: Darwin{
			TopicHost:      v.GetString("darwin.topic_host"),
			TopicPort:      v.GetInt("darwin.topic_port"),
			TopicName:      v.GetString("darwin.topic_name"),
			HeartBeat:      time.Duration(v.GetInt("darwin.heartbeat_ms")) * time.Millisecond,
			ReconnectDelay: time.Duration(v.GetInt("darwin.reconnect_delay_secs")) * time.Second,
			SubscriptionID: v.GetString("darwin.subscription_id"),
			AckMode:        v.GetString("darwin.ack_mode"),
			TopicUsername:  v.GetString("darwin.topic_username"),
			TopicPassword:  v.GetString("darwin.topic_password"),
		},
		HSP: HSP{
			ServiceMetricsURL: v.GetString("hsp.service_metrics_url"),
			ServiceDetailsURL: v.GetString("hsp.service_details_url"),
			Username:          v.GetString("hsp.username"),
			Password:          v.GetString("hsp.password"),
		},
	}

	if err := cfg.validate(required); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate(required []Requirement) error {
	var missing []string
	for _, r := range required {
		switch r {
		case RequireDarwin:
			if c.Darwin.TopicHost == "" {
				missing = append(missing, "darwin.topic_host")
			}
			if c.Darwin.TopicName == "" {
				missing = append(missing, "darwin.topic_name")
			}
			if c.Darwin.TopicUsername == "" {
				missing = append(missing, "darwin.topic_username")
			}
			if c.Darwin.TopicPassword == "" {
				missing = append(missing, "darwin.topic_password")
			}
		case RequireHSP:
			if c.HSP.ServiceDetailsURL == "" {
				missing = append(missing, "hsp.service_details_url")
			}
			if c.HSP.Username == "" {
				missing = append(missing, "hsp.username")
			}
			if c.HSP.Password == "" {
				missing = append(missing, "hsp.password")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
