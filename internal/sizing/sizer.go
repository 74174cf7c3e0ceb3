package sizing

import (
	"math"

	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/strategy"
)

// Sizer 将交易意图转换为具体股数/合约数。
// 价格或风险额度非正、NaN 时必须返回0而不是报错，
// 避免把无效订单传给下游。
type Sizer interface {
	Name() string
	Size(intent strategy.OrderIntent, acct portfolio.Snapshot, window []market.Bar) (int64, error)
}

// quantityFor 按风险金额与单价换算数量，并用现金约束截断，
// 保证后续成交阶段不会出现资金不足。
func quantityFor(riskAmount, price, cash float64) int64 {
	if !positive(riskAmount) || !positive(price) {
		return 0
	}
	qty := int64(math.Floor(riskAmount / price))
	affordable := int64(math.Floor(cash / price))
	if qty > affordable {
		qty = affordable
	}
	if qty < 0 {
		return 0
	}
	return qty
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
