package strategy

import (
	talib "github.com/markcheno/go-talib"

	"quant-trading/internal/indicator"
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

// MeanReversion 为均值回归策略：价格偏离均值超过阈值倍标准差时反向操作。
type MeanReversion struct {
	lookback  int
	threshold float64
}

// NewMeanReversion 创建均值回归策略，默认窗口20、阈值2倍标准差。
func NewMeanReversion(lookback int, threshold float64) *MeanReversion {
	if lookback <= 1 {
		lookback = 20
	}
	if threshold <= 0 {
		threshold = 2.0
	}
	return &MeanReversion{lookback: lookback, threshold: threshold}
}

func (s *MeanReversion) Name() string {
	return "mean_reversion"
}

func (s *MeanReversion) Lookback() int {
	return s.lookback
}

func (s *MeanReversion) Decide(window []market.Bar, _ portfolio.Snapshot, st State) ([]OrderIntent, State) {
	if len(window) < s.Lookback() {
		return nil, st
	}

	series := indicator.NewSeries(window)
	mean := indicator.Last(talib.Sma(series.Close, s.lookback))
	std := indicator.Last(talib.StdDev(series.Close, s.lookback, 1.0))
	price := indicator.Last(series.Close)

	if !indicator.Usable(mean, std, price) || std <= 0 {
		return nil, st
	}

	z := (price - mean) / std
	bar := current(window)

	if z < -s.threshold && !st.InPosition {
		st.InPosition = true
		st.EntryPrice = bar.Close
		return []OrderIntent{intent(bar, Buy)}, st
	}
	if z > s.threshold && st.InPosition {
		st = State{}
		return []OrderIntent{intent(bar, Sell)}, st
	}

	return nil, st
}
