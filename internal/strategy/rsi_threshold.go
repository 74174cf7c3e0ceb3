package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quant-trading/internal/indicator"
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

// RSIThreshold 为RSI阈值策略：超卖买入，超买且持仓时卖出。
type RSIThreshold struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIThreshold 创建RSI阈值策略，默认周期14、阈值30/70。
func NewRSIThreshold(period int, oversold, overbought float64) *RSIThreshold {
	if period <= 1 {
		period = 14
	}
	if oversold <= 0 || oversold >= 100 {
		oversold = 30
	}
	if overbought <= oversold || overbought >= 100 {
		overbought = 70
	}
	return &RSIThreshold{period: period, oversold: oversold, overbought: overbought}
}

func (s *RSIThreshold) Name() string {
	return "rsi_threshold"
}

func (s *RSIThreshold) Lookback() int {
	return s.period + 1
}

func (s *RSIThreshold) Decide(window []market.Bar, _ portfolio.Snapshot, st State) ([]OrderIntent, State) {
	if len(window) < s.Lookback() {
		return nil, st
	}

	series := indicator.NewSeries(window)
	rsi := indicator.Last(talib.Rsi(series.Close, s.period))
	if !indicator.Usable(rsi) {
		return nil, st
	}

	bar := current(window)

	if rsi < s.oversold && !st.InPosition {
		st.InPosition = true
		st.EntryPrice = bar.Close
		return []OrderIntent{intent(bar, Buy)}, st
	}
	if rsi > s.overbought && st.InPosition {
		st = State{}
		return []OrderIntent{intent(bar, Sell)}, st
	}

	return nil, st
}
