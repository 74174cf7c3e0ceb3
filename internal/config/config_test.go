package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
strategy:
  symbols: ["AAPL"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Backtest.InitialCash != 10000 {
		t.Errorf("expected default initial cash 10000, got %f", cfg.Backtest.InitialCash)
	}
	if cfg.Backtest.FillPolicy != "close" {
		t.Errorf("expected default fill policy close, got %s", cfg.Backtest.FillPolicy)
	}
	if cfg.Risk.MaxPositionPct != 0.25 {
		t.Errorf("expected default max position pct 0.25, got %f", cfg.Risk.MaxPositionPct)
	}
	if cfg.Strategy.Name != "ma_cross" {
		t.Errorf("expected default strategy ma_cross, got %s", cfg.Strategy.Name)
	}
	if cfg.Backtest.PeriodsPerYear != 252 {
		t.Errorf("expected default periods per year 252, got %d", cfg.Backtest.PeriodsPerYear)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
backtest:
  initial_cash: 50000
  fill_policy: next_open
  commission_fixed: 0.5
strategy:
  name: mean_reversion
  lookback: 15
  symbols: ["AAPL", "MSFT"]
sizing:
  name: volatility_adjusted
  fraction: 0.05
risk:
  max_drawdown_pct: 0.15
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Backtest.InitialCash != 50000 {
		t.Errorf("expected initial cash 50000, got %f", cfg.Backtest.InitialCash)
	}
	if cfg.Backtest.FillPolicy != "next_open" {
		t.Errorf("expected fill policy next_open, got %s", cfg.Backtest.FillPolicy)
	}
	if cfg.Strategy.Name != "mean_reversion" || cfg.Strategy.Lookback != 15 {
		t.Errorf("unexpected strategy config: %+v", cfg.Strategy)
	}
	if len(cfg.Strategy.Symbols) != 2 {
		t.Errorf("expected 2 symbols, got %v", cfg.Strategy.Symbols)
	}
	if cfg.Sizing.Name != "volatility_adjusted" || cfg.Sizing.Fraction != 0.05 {
		t.Errorf("unexpected sizing config: %+v", cfg.Sizing)
	}
	if cfg.Risk.MaxDrawdownPct != 0.15 {
		t.Errorf("expected max drawdown 0.15, got %f", cfg.Risk.MaxDrawdownPct)
	}
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"negative cash": `
backtest:
  initial_cash: -1
strategy:
  symbols: ["AAPL"]
`,
		"unknown strategy": `
strategy:
  name: moon_phase
  symbols: ["AAPL"]
`,
		"unknown fill policy": `
backtest:
  fill_policy: midpoint
strategy:
  symbols: ["AAPL"]
`,
		"missing symbols": `
strategy:
  name: ma_cross
`,
		"bad risk limits": `
strategy:
  symbols: ["AAPL"]
risk:
  max_drawdown_pct: 1.5
`,
	}

	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty config must fail validation")
	}
	// multierr 聚合全部问题，至少应同时报告资金与策略错误。
	msg := err.Error()
	if !strings.Contains(msg, "initial_cash") || !strings.Contains(msg, "strategy.name") {
		t.Errorf("expected aggregated errors, got: %v", msg)
	}
}
