package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quant-trading/internal/indicator"
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

// BollingerBreakout 为布林带突破策略：收盘价上穿上轨买入，
// 回落到中轨以下且持仓时卖出。
type BollingerBreakout struct {
	period int
	dev    float64
}

// NewBollingerBreakout 创建布林带突破策略，默认周期20、带宽2倍标准差。
func NewBollingerBreakout(period int, dev float64) *BollingerBreakout {
	if period <= 1 {
		period = 20
	}
	if dev <= 0 {
		dev = 2.0
	}
	return &BollingerBreakout{period: period, dev: dev}
}

func (s *BollingerBreakout) Name() string {
	return "bollinger_breakout"
}

func (s *BollingerBreakout) Lookback() int {
	return s.period + 1
}

func (s *BollingerBreakout) Decide(window []market.Bar, _ portfolio.Snapshot, st State) ([]OrderIntent, State) {
	if len(window) < s.Lookback() {
		return nil, st
	}

	series := indicator.NewSeries(window)
	upper, middle, _ := talib.BBands(series.Close, s.period, s.dev, s.dev, talib.SMA)

	curUpper := indicator.Last(upper)
	curMiddle := indicator.Last(middle)
	prevUpper := indicator.Prev(upper)
	prevClose := indicator.Prev(series.Close)
	price := indicator.Last(series.Close)

	if !indicator.Usable(curUpper, curMiddle, prevUpper, prevClose, price) {
		return nil, st
	}

	bar := current(window)

	if prevClose <= prevUpper && price > curUpper && !st.InPosition {
		st.InPosition = true
		st.EntryPrice = bar.Close
		return []OrderIntent{intent(bar, Buy)}, st
	}
	if price < curMiddle && st.InPosition {
		st = State{}
		return []OrderIntent{intent(bar, Sell)}, st
	}

	return nil, st
}
