// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Redis describes the primary signal bus and the output transport.
type Redis struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Channels []string `yaml:"channels"`
}

// Websocket describes the fallback signal bus.
type Websocket struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// Output configures where events are published and journaled.
type Output struct {
	Channel     string `yaml:"channel"`
	JournalPath string `yaml:"journal_path"`
}

// Emitter bounds the outbound event queue.
type Emitter struct {
	MaxQueue int `yaml:"max_queue"`
}

// Trigger declares one trigger instance. Kind is one of momentum, close,
// hedge; threshold fields a kind does not use are ignored.
type Trigger struct {
	ID               string  `yaml:"id"`
	Kind             string  `yaml:"kind"`
	Instrument       string  `yaml:"instrument"`
	Priority         int     `yaml:"priority"`
	CooldownSeconds  int     `yaml:"cooldown_seconds"`
	Quantity         float64 `yaml:"quantity"`
	SpreadPercentile float64 `yaml:"spread_percentile"`
	FundingRate      float64 `yaml:"funding_rate"`
	RiskLevel        string  `yaml:"risk_level"`
	MaxPositionCost  float64 `yaml:"max_position_cost"`
	Imbalance        float64 `yaml:"imbalance"`
	HedgeExchange    uint32  `yaml:"hedge_exchange"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Redis     Redis     `yaml:"redis"`
	Websocket Websocket `yaml:"websocket"`
	Output    Output    `yaml:"output"`
	Emitter   Emitter   `yaml:"emitter"`
	// SignalMaxAgeMS bounds dependency freshness per signal kind name; kinds
	// left out are never considered stale.
	SignalMaxAgeMS map[string]int `yaml:"signal_max_age_ms"`
	Triggers       []Trigger      `yaml:"triggers"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
