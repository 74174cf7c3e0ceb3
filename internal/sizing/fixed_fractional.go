package sizing

import (
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/strategy"
)

// FixedFractional 固定比例仓位：每笔投入净值的固定份额。
type FixedFractional struct {
	fraction float64
}

// NewFixedFractional 创建固定比例仓位计算器，比例非法时回退到1%。
func NewFixedFractional(fraction float64) *FixedFractional {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.01
	}
	return &FixedFractional{fraction: fraction}
}

func (s *FixedFractional) Name() string {
	return "fixed_fractional"
}

func (s *FixedFractional) Size(intent strategy.OrderIntent, acct portfolio.Snapshot, _ []market.Bar) (int64, error) {
	riskAmount := acct.Equity * s.fraction
	return quantityFor(riskAmount, intent.PriceHint, acct.Cash), nil
}
