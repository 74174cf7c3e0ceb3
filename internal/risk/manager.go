package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/strategy"
)

// Manager 负责执行组合级风控评估。引擎在每根K线上先调用
// Observe 与 UpdateEquity 更新滚动状态，再对订单调用 Authorize。
type Manager struct {
	limits Limits
	logger *zap.Logger

	lastClose map[string]float64
	returns   map[string][]float64

	peakEquity float64
	halted     bool
}

// NewManager 创建风险管理器，限制集合在此处完成校验。
func NewManager(limits Limits, logger *zap.Logger) (*Manager, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		limits:    limits,
		logger:    logger,
		lastClose: make(map[string]float64),
		returns:   make(map[string][]float64),
	}, nil
}

// Observe 记录标的收盘价并维护滚动收益窗口，用于相关性估计。
func (m *Manager) Observe(bar market.Bar) {
	prev, ok := m.lastClose[bar.Symbol]
	m.lastClose[bar.Symbol] = bar.Close
	if !ok || prev <= 0 {
		return
	}

	ret := bar.Close/prev - 1
	window := append(m.returns[bar.Symbol], ret)
	if len(window) > m.limits.CorrelationWindow {
		window = window[len(window)-m.limits.CorrelationWindow:]
	}
	m.returns[bar.Symbol] = window
}

// UpdateEquity 跟踪净值峰值并维护回撤熔断状态。
// 熔断带迟滞：触发后需回撤收敛到上限乘以恢复比例以下才解除，
// 避免在阈值附近反复开关。
func (m *Manager) UpdateEquity(equity float64) {
	if equity > m.peakEquity {
		m.peakEquity = equity
	}
	if m.peakEquity <= 0 {
		return
	}

	drawdown := (m.peakEquity - equity) / m.peakEquity
	switch {
	case !m.halted && drawdown > m.limits.MaxDrawdownPct:
		m.halted = true
		m.logger.Warn("回撤超过限制，暂停新开仓",
			zap.Float64("drawdown", drawdown),
			zap.Float64("limit", m.limits.MaxDrawdownPct),
		)
	case m.halted && drawdown < m.limits.MaxDrawdownPct*m.limits.DrawdownRecoveryRatio:
		m.halted = false
		m.logger.Info("回撤恢复，解除开仓限制", zap.Float64("drawdown", drawdown))
	}
}

// Halted 返回回撤熔断是否处于生效状态。
func (m *Manager) Halted() bool {
	return m.halted
}

// Authorize 按顺序应用各项限制：单仓上限、总敞口上限、
// 相关敞口上限、回撤熔断。数量被缩减到最紧的满足上界；
// 减仓方向的订单始终放行。
func (m *Manager) Authorize(order SizedOrder, acct portfolio.Snapshot) Decision {
	decision := Decision{
		Status:   StatusDeny,
		Quantity: order.Quantity,
		Notes:    make([]string, 0, 2),
	}

	if order.Quantity <= 0 {
		decision.Notes = append(decision.Notes, "订单数量为零。")
		return decision
	}

	// 卖出只会降低敞口，不受任何限制约束。
	if order.Intent.Direction == strategy.Sell {
		decision.Status = StatusProceed
		return decision
	}

	price := order.Intent.PriceHint
	if price <= 0 || math.IsNaN(price) || acct.Equity <= 0 {
		decision.Notes = append(decision.Notes, "价格或净值无效，无法评估。")
		return decision
	}

	qty := order.Quantity

	var currentValue float64
	if pos, ok := acct.Position(order.Intent.Symbol); ok {
		currentValue = pos.MarketValue()
	}
	qty = clampQuantity(qty, acct.Equity*m.limits.MaxPositionPct-currentValue, price)
	if qty <= 0 {
		decision.Notes = append(decision.Notes, "单仓上限已占满，拒绝订单。")
		return decision
	}
	if qty < order.Quantity {
		decision.Notes = append(decision.Notes,
			fmt.Sprintf("单仓上限缩减数量 %d -> %d。", order.Quantity, qty))
	}

	exposure := acct.TotalExposure()
	qty = clampQuantity(qty, acct.Equity*m.limits.MaxExposurePct-exposure, price)
	if qty <= 0 {
		decision.Notes = append(decision.Notes, "总敞口上限已占满，拒绝订单。")
		return decision
	}

	correlated := m.correlatedExposure(order.Intent.Symbol, acct)
	qty = clampQuantity(qty, acct.Equity*m.limits.MaxCorrelatedPct-correlated, price)
	if qty <= 0 {
		decision.Notes = append(decision.Notes, "相关标的敞口上限已占满，拒绝订单。")
		return decision
	}

	if m.halted {
		decision.Notes = append(decision.Notes, "回撤熔断生效中，拒绝新开仓。")
		return decision
	}

	decision.Status = StatusProceed
	decision.Quantity = qty
	return decision
}

// correlatedExposure 计算与目标标的相关系数超过阈值的持仓总市值。
// 相关性来自滚动收益窗口；数据不足或无方差时视为不相关。
func (m *Manager) correlatedExposure(symbol string, acct portfolio.Snapshot) float64 {
	target := m.returns[symbol]
	var total float64
	for other, pos := range acct.Positions {
		if other == symbol {
			continue
		}
		corr := correlation(target, m.returns[other])
		if math.Abs(corr) > m.limits.CorrelationThreshold {
			total += pos.MarketValue()
		}
	}
	return total
}

func clampQuantity(qty int64, allowedValue, price float64) int64 {
	if allowedValue <= 0 {
		return 0
	}
	limit := int64(math.Floor(allowedValue / price))
	if qty > limit {
		return limit
	}
	return qty
}

// correlation 计算两个收益序列重叠尾部的皮尔逊相关系数。
// 重叠样本少于3个或任一序列无方差时返回0。
func correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 3 {
		return 0
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}

	corr := cov / math.Sqrt(varA*varB)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}
