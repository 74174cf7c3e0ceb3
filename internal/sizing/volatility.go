package sizing

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"quant-trading/internal/indicator"
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/strategy"
)

// VolatilityAdjusted 波动率调整仓位：风险金额除以ATR倍数，
// 波动越大仓位越小。ATR不可用时退回固定比例计算。
type VolatilityAdjusted struct {
	fraction   float64
	atrPeriod  int
	multiplier float64
}

// NewVolatilityAdjusted 创建波动率调整仓位计算器，
// 默认风险比例1%、ATR周期14、倍数2。窗口短于ATR周期
// 或ATR非正/NaN时，按固定比例公式计算而不是返回0。
func NewVolatilityAdjusted(fraction float64, atrPeriod int, multiplier float64) *VolatilityAdjusted {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.01
	}
	if atrPeriod <= 1 {
		atrPeriod = 14
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return &VolatilityAdjusted{fraction: fraction, atrPeriod: atrPeriod, multiplier: multiplier}
}

func (s *VolatilityAdjusted) Name() string {
	return "volatility_adjusted"
}

func (s *VolatilityAdjusted) Size(intent strategy.OrderIntent, acct portfolio.Snapshot, window []market.Bar) (int64, error) {
	riskAmount := acct.Equity * s.fraction
	if !positive(riskAmount) || !positive(intent.PriceHint) {
		return 0, nil
	}

	if len(window) > s.atrPeriod {
		series := indicator.NewSeries(window)
		atr := indicator.Last(talib.Atr(series.High, series.Low, series.Close, s.atrPeriod))
		if indicator.Usable(atr) && atr > 0 {
			qty := int64(math.Floor(riskAmount / (atr * s.multiplier)))
			affordable := int64(math.Floor(acct.Cash / intent.PriceHint))
			if qty > affordable {
				qty = affordable
			}
			if qty < 0 {
				qty = 0
			}
			return qty, nil
		}
	}

	return quantityFor(riskAmount, intent.PriceHint, acct.Cash), nil
}
