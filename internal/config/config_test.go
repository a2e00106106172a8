package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "collector-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected App.LogLevel: %s", cfg.App.LogLevel)
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" || cfg.Redis.DB != 1 {
		t.Fatalf("unexpected redis settings: %+v", cfg.Redis)
	}
	if len(cfg.Redis.Channels) != 2 || cfg.Redis.Channels[0] != "signals.spread" {
		t.Fatalf("unexpected redis channels: %+v", cfg.Redis.Channels)
	}
	if !cfg.Websocket.Enabled || cfg.Websocket.URL != "ws://127.0.0.1:8765/signals" {
		t.Fatalf("unexpected websocket settings: %+v", cfg.Websocket)
	}
	if cfg.Output.Channel != "events.trading" {
		t.Fatalf("unexpected output channel: %s", cfg.Output.Channel)
	}
	if cfg.Emitter.MaxQueue != 64 {
		t.Fatalf("unexpected emitter bound: %d", cfg.Emitter.MaxQueue)
	}
	if cfg.SignalMaxAgeMS["adaptive-spread-deviation"] != 5000 {
		t.Fatalf("unexpected max age map: %+v", cfg.SignalMaxAgeMS)
	}
	if len(cfg.Triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(cfg.Triggers))
	}
	mt := cfg.Triggers[0]
	if mt.ID != "mt-btc" || mt.Kind != "momentum" || mt.CooldownSeconds != 30 {
		t.Fatalf("unexpected momentum trigger: %+v", mt)
	}
	if mt.SpreadPercentile != 0.85 || mt.FundingRate != 0.0002 || mt.Quantity != 50 {
		t.Fatalf("unexpected momentum thresholds: %+v", mt)
	}
	closeTrigger := cfg.Triggers[1]
	if closeTrigger.RiskLevel != "high" || closeTrigger.MaxPositionCost != 25000 {
		t.Fatalf("unexpected close trigger: %+v", closeTrigger)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		App:      App{Name: "roundtrip", LogLevel: "warn"},
		Triggers: []Trigger{{ID: "hedge-btc", Kind: "hedge", Instrument: "BTCUSDT", Imbalance: 0.002}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.App.Name != "roundtrip" || len(loaded.Triggers) != 1 || loaded.Triggers[0].Imbalance != 0.002 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestSaveNilConfig(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "config.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
