package sizing

import (
	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/strategy"
)

// Kelly 凯利公式仓位：f = p - (1-p)/b，p 为胜率、b 为盈亏比。
// 估计噪声大时凯利值容易失控，结果被钳制在 [0, maxFraction]。
type Kelly struct {
	winProb     float64
	payoffRatio float64
	maxFraction float64
}

// NewKelly 创建凯利仓位计算器，最大比例默认2%。
func NewKelly(winProb, payoffRatio, maxFraction float64) *Kelly {
	if maxFraction <= 0 || maxFraction > 1 {
		maxFraction = 0.02
	}
	return &Kelly{winProb: winProb, payoffRatio: payoffRatio, maxFraction: maxFraction}
}

func (s *Kelly) Name() string {
	return "kelly"
}

// Fraction 返回钳制后的凯利比例。
func (s *Kelly) Fraction() float64 {
	if s.payoffRatio <= 0 || s.winProb <= 0 || s.winProb > 1 {
		return 0
	}
	fraction := s.winProb - (1-s.winProb)/s.payoffRatio
	if fraction < 0 {
		return 0
	}
	if fraction > s.maxFraction {
		return s.maxFraction
	}
	return fraction
}

func (s *Kelly) Size(intent strategy.OrderIntent, acct portfolio.Snapshot, _ []market.Bar) (int64, error) {
	riskAmount := acct.Equity * s.Fraction()
	return quantityFor(riskAmount, intent.PriceHint, acct.Cash), nil
}
