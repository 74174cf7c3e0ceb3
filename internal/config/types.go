package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"quant-trading/internal/risk"
)

// Config 聚合了回测运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Risk     risk.Limits    `mapstructure:"risk"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Sizing   SizingConfig   `mapstructure:"sizing"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// BacktestConfig 控制回测引擎行为。
type BacktestConfig struct {
	InitialCash     float64 `mapstructure:"initial_cash"`
	FillPolicy      string  `mapstructure:"fill_policy"`
	Slippage        float64 `mapstructure:"slippage"`
	CommissionRate  float64 `mapstructure:"commission_rate"`
	CommissionFixed float64 `mapstructure:"commission_fixed"`
	PeriodsPerYear  int     `mapstructure:"periods_per_year"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	SweepWorkers    int     `mapstructure:"sweep_workers"`
}

// StrategyConfig 选择策略变体并提供其参数。
type StrategyConfig struct {
	Name       string   `mapstructure:"name"`
	FastPeriod int      `mapstructure:"fast_period"`
	SlowPeriod int      `mapstructure:"slow_period"`
	Lookback   int      `mapstructure:"lookback"`
	Threshold  float64  `mapstructure:"threshold"`
	RSIPeriod  int      `mapstructure:"rsi_period"`
	Oversold   float64  `mapstructure:"oversold"`
	Overbought float64  `mapstructure:"overbought"`
	BollPeriod int      `mapstructure:"boll_period"`
	BollDev    float64  `mapstructure:"boll_dev"`
	Symbols    []string `mapstructure:"symbols"`
}

// SizingConfig 选择仓位算法并提供其参数。
type SizingConfig struct {
	Name          string  `mapstructure:"name"`
	Fraction      float64 `mapstructure:"fraction"`
	ATRPeriod     int     `mapstructure:"atr_period"`
	ATRMultiplier float64 `mapstructure:"atr_multiplier"`
	KellyWinProb  float64 `mapstructure:"kelly_win_prob"`
	KellyPayoff   float64 `mapstructure:"kelly_payoff"`
	KellyMax      float64 `mapstructure:"kelly_max"`
}

// DatabaseConfig 管理结果数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

var knownStrategies = map[string]bool{
	"ma_cross":           true,
	"mean_reversion":     true,
	"rsi_threshold":      true,
	"bollinger_breakout": true,
}

var knownSizers = map[string]bool{
	"fixed_fractional":    true,
	"volatility_adjusted": true,
	"kelly":               true,
}

// Validate 对配置进行基本校验，非法配置在回测启动前即失败。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Backtest.InitialCash <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_cash 必须大于0"))
	}
	switch c.Backtest.FillPolicy {
	case "close", "next_open":
	default:
		err = multierr.Append(err, errors.New("backtest.fill_policy 必须为 close 或 next_open"))
	}
	if c.Backtest.Slippage < 0 || c.Backtest.Slippage > 0.2 {
		err = multierr.Append(err, errors.New("backtest.slippage 应位于[0,0.2]"))
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionFixed < 0 {
		err = multierr.Append(err, errors.New("backtest.commission 不能为负"))
	}
	if c.Backtest.PeriodsPerYear <= 0 {
		err = multierr.Append(err, errors.New("backtest.periods_per_year 必须大于0"))
	}
	if c.Backtest.RiskFreeRate < 0 || c.Backtest.RiskFreeRate > 1 {
		err = multierr.Append(err, errors.New("backtest.risk_free_rate 应位于[0,1]"))
	}
	if c.Backtest.SweepWorkers <= 0 {
		err = multierr.Append(err, errors.New("backtest.sweep_workers 必须大于0"))
	}
	if limitsErr := c.Risk.Validate(); limitsErr != nil {
		err = multierr.Append(err, limitsErr)
	}
	if !knownStrategies[c.Strategy.Name] {
		err = multierr.Append(err, fmt.Errorf("strategy.name %q 未知", c.Strategy.Name))
	}
	if len(c.Strategy.Symbols) == 0 {
		err = multierr.Append(err, errors.New("strategy.symbols 至少包含一个标的"))
	}
	if !knownSizers[c.Sizing.Name] {
		err = multierr.Append(err, fmt.Errorf("sizing.name %q 未知", c.Sizing.Name))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
