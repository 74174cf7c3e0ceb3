package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quant-trading/internal/indicator"
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

// MACross 为双均线交叉策略：快线上穿慢线买入，下穿且持仓时卖出。
type MACross struct {
	fast int
	slow int
}

// NewMACross 创建均线交叉策略，参数非法时回退到 10/30。
func NewMACross(fast, slow int) *MACross {
	if fast <= 0 {
		fast = 10
	}
	if slow <= fast {
		slow = 30
	}
	return &MACross{fast: fast, slow: slow}
}

func (s *MACross) Name() string {
	return "ma_cross"
}

func (s *MACross) Lookback() int {
	return s.slow + 1
}

func (s *MACross) Decide(window []market.Bar, _ portfolio.Snapshot, st State) ([]OrderIntent, State) {
	if len(window) < s.Lookback() {
		return nil, st
	}

	series := indicator.NewSeries(window)
	fastMA := talib.Sma(series.Close, s.fast)
	slowMA := talib.Sma(series.Close, s.slow)

	curFast := indicator.Last(fastMA)
	curSlow := indicator.Last(slowMA)
	prevFast := indicator.Prev(fastMA)
	prevSlow := indicator.Prev(slowMA)

	if !indicator.Usable(curFast, curSlow, prevFast, prevSlow) {
		return nil, st
	}

	bar := current(window)

	if prevFast <= prevSlow && curFast > curSlow && !st.InPosition {
		st.InPosition = true
		st.EntryPrice = bar.Close
		return []OrderIntent{intent(bar, Buy)}, st
	}
	if prevFast >= prevSlow && curFast < curSlow && st.InPosition {
		st = State{}
		return []OrderIntent{intent(bar, Sell)}, st
	}

	return nil, st
}
