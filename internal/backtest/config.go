package backtest

import (
	"time"

	"quant-trading/internal/metric"
)

// FillPolicy 控制订单成交价格来源。
type FillPolicy string

const (
	// FillOnClose 在决策K线的收盘价成交（默认）。
	FillOnClose FillPolicy = "close"
	// FillOnNextOpen 订单排队，在该标的下一根K线的开盘价成交。
	FillOnNextOpen FillPolicy = "next_open"
)

// Config 定义回测参数。
type Config struct {
	InitialCash     float64
	StartTime       time.Time
	EndTime         time.Time
	FillPolicy      FillPolicy
	Slippage        float64
	CommissionRate  float64
	CommissionFixed float64
	Metrics         metric.Params
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.InitialCash <= 0 {
		cfg.InitialCash = 10000
	}
	if cfg.FillPolicy == "" {
		cfg.FillPolicy = FillOnClose
	}
	if cfg.Slippage < 0 {
		cfg.Slippage = 0
	}
	if cfg.CommissionRate < 0 {
		cfg.CommissionRate = 0
	}
	if cfg.CommissionFixed < 0 {
		cfg.CommissionFixed = 0
	}
	if cfg.Metrics.PeriodsPerYear <= 0 {
		cfg.Metrics = metric.DefaultParams()
	}
	return cfg
}
