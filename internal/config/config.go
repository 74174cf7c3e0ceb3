package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "quant"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("backtest.initial_cash", 10000.0)
	v.SetDefault("backtest.fill_policy", "close")
	v.SetDefault("backtest.slippage", 0.0)
	v.SetDefault("backtest.commission_rate", 0.0)
	v.SetDefault("backtest.commission_fixed", 0.0)
	v.SetDefault("backtest.periods_per_year", 252)
	v.SetDefault("backtest.risk_free_rate", 0.02)
	v.SetDefault("backtest.sweep_workers", 4)

	v.SetDefault("risk.max_position_pct", 0.25)
	v.SetDefault("risk.max_exposure_pct", 1.0)
	v.SetDefault("risk.max_drawdown_pct", 0.20)
	v.SetDefault("risk.max_correlated_pct", 0.50)
	v.SetDefault("risk.correlation_threshold", 0.7)
	v.SetDefault("risk.correlation_window", 30)
	v.SetDefault("risk.drawdown_recovery_ratio", 0.5)

	v.SetDefault("strategy.name", "ma_cross")
	v.SetDefault("strategy.fast_period", 10)
	v.SetDefault("strategy.slow_period", 30)
	v.SetDefault("strategy.lookback", 20)
	v.SetDefault("strategy.threshold", 2.0)
	v.SetDefault("strategy.rsi_period", 14)
	v.SetDefault("strategy.oversold", 30.0)
	v.SetDefault("strategy.overbought", 70.0)
	v.SetDefault("strategy.boll_period", 20)
	v.SetDefault("strategy.boll_dev", 2.0)

	v.SetDefault("sizing.name", "fixed_fractional")
	v.SetDefault("sizing.fraction", 0.01)
	v.SetDefault("sizing.atr_period", 14)
	v.SetDefault("sizing.atr_multiplier", 2.0)
	v.SetDefault("sizing.kelly_win_prob", 0.5)
	v.SetDefault("sizing.kelly_payoff", 1.0)
	v.SetDefault("sizing.kelly_max", 0.02)

	v.SetDefault("database.path", "data/backtests.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
