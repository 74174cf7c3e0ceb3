package risk

import (
	"math"

	"quant-trading/internal/portfolio"
)

// ValueAtRisk 以高斯参数法估计给定置信度下的持有期损失分位，
// 返回值为非负的损失比例。样本不足两个时返回0。
func ValueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) < 2 || confidence <= 0 || confidence >= 1 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	z := normQuantile(confidence)
	v := z*math.Sqrt(variance) - mean
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// MaxDrawdown 返回净值序列的最大回撤（正值比例）。
func MaxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// PortfolioVaR 基于观测到的收益窗口估计组合VaR：
// 方差项来自各持仓市值与波动率，协方差项使用滚动相关系数。
func (m *Manager) PortfolioVaR(acct portfolio.Snapshot, confidence float64) float64 {
	if len(acct.Positions) == 0 || confidence <= 0 || confidence >= 1 {
		return 0
	}

	symbols := make([]string, 0, len(acct.Positions))
	for symbol := range acct.Positions {
		symbols = append(symbols, symbol)
	}

	var variance float64
	for i, a := range symbols {
		posA := acct.Positions[a]
		volA := stddev(m.returns[a])
		variance += math.Pow(posA.MarketValue()*volA, 2)

		for _, b := range symbols[i+1:] {
			posB := acct.Positions[b]
			volB := stddev(m.returns[b])
			corr := correlation(m.returns[a], m.returns[b])
			variance += 2 * posA.MarketValue() * volA * posB.MarketValue() * volB * corr
		}
	}

	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance) * normQuantile(confidence)
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// normQuantile 返回标准正态分布的分位点。
func normQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
