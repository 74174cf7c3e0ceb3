// Package metric 对净值曲线与成交记录计算绩效指标。
// 所有比率遵循统一的零分母策略：分母未定义时返回
// "不适用"（Valid=false）而不是NaN或报错。
package metric

import (
	"math"

	"quant-trading/internal/portfolio"
)

// Value 为可能不适用的指标值。
type Value struct {
	V     float64
	Valid bool
}

func ok(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Valid: true}
}

func na() Value {
	return Value{}
}

// Params 控制指标年化与基准参数。
type Params struct {
	PeriodsPerYear int
	RiskFreeRate   float64
}

// DefaultParams 返回日线默认参数：每年252个交易周期、无风险利率2%。
func DefaultParams() Params {
	return Params{PeriodsPerYear: 252, RiskFreeRate: 0.02}
}

func (p Params) normalize() Params {
	if p.PeriodsPerYear <= 0 {
		p.PeriodsPerYear = 252
	}
	if p.RiskFreeRate < 0 {
		p.RiskFreeRate = 0
	}
	return p
}

// Summary 汇总全部绩效指标。
type Summary struct {
	TotalReturn  Value
	CAGR         Value
	Volatility   Value
	Sharpe       Value
	Sortino      Value
	Calmar       Value
	MaxDrawdown  Value
	AvgDrawdown  Value
	MaxDDBars    int
	WinRate      Value
	ProfitFactor Value
	NumPeriods   int
	NumTrades    int
}

// Compute 从净值曲线与成交记录计算全套指标。
func Compute(curve []portfolio.EquityPoint, trades []portfolio.Trade, params Params) Summary {
	params = params.normalize()

	equity := portfolio.EquityValues(curve)
	returns := periodicReturns(equity)
	summary := Summary{
		NumPeriods: len(returns),
		NumTrades:  len(trades),
	}

	summary.TotalReturn = totalReturn(equity)
	summary.CAGR = cagr(summary.TotalReturn, len(returns), params.PeriodsPerYear)
	summary.Volatility = volatility(returns, params.PeriodsPerYear)
	summary.Sharpe = sharpe(returns, params)
	summary.Sortino = sortino(returns, params)

	maxDD, avgDD, ddBars := drawdownStats(equity)
	summary.MaxDrawdown = maxDD
	summary.AvgDrawdown = avgDD
	summary.MaxDDBars = ddBars
	summary.Calmar = calmar(summary.CAGR, summary.MaxDrawdown)

	summary.WinRate, summary.ProfitFactor = tradeStats(trades)

	return summary
}

// Map 将指标导出为扁平映射，不适用的指标被省略。
func (s Summary) Map() map[string]float64 {
	out := map[string]float64{
		"num_periods":       float64(s.NumPeriods),
		"num_trades":        float64(s.NumTrades),
		"max_drawdown_bars": float64(s.MaxDDBars),
	}
	put := func(name string, v Value) {
		if v.Valid {
			out[name] = v.V
		}
	}
	put("total_return", s.TotalReturn)
	put("cagr", s.CAGR)
	put("volatility", s.Volatility)
	put("sharpe_ratio", s.Sharpe)
	put("sortino_ratio", s.Sortino)
	put("calmar_ratio", s.Calmar)
	put("max_drawdown", s.MaxDrawdown)
	put("avg_drawdown", s.AvgDrawdown)
	put("win_rate", s.WinRate)
	put("profit_factor", s.ProfitFactor)
	return out
}

func periodicReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		returns = append(returns, equity[i]/equity[i-1]-1)
	}
	return returns
}

func totalReturn(equity []float64) Value {
	if len(equity) < 2 || equity[0] <= 0 {
		return na()
	}
	return ok(equity[len(equity)-1]/equity[0] - 1)
}

// cagr 使用交易周期数而非日历天数年化。
func cagr(total Value, periods, periodsPerYear int) Value {
	if !total.Valid || periods <= 0 {
		return na()
	}
	return ok(math.Pow(1+total.V, float64(periodsPerYear)/float64(periods)) - 1)
}

func volatility(returns []float64, periodsPerYear int) Value {
	if len(returns) < 2 {
		return na()
	}
	return ok(stddev(returns) * math.Sqrt(float64(periodsPerYear)))
}

func sharpe(returns []float64, params Params) Value {
	if len(returns) < 2 {
		return na()
	}
	std := stddev(returns)
	if std == 0 {
		return na()
	}
	excess := mean(returns) - params.RiskFreeRate/float64(params.PeriodsPerYear)
	return ok(excess / std * math.Sqrt(float64(params.PeriodsPerYear)))
}

func sortino(returns []float64, params Params) Value {
	if len(returns) < 2 {
		return na()
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return na()
	}
	dd := stddev(downside)
	if dd == 0 {
		return na()
	}

	excess := mean(returns) - params.RiskFreeRate/float64(params.PeriodsPerYear)
	return ok(excess / dd * math.Sqrt(float64(params.PeriodsPerYear)))
}

func calmar(growth, maxDD Value) Value {
	if !growth.Valid || !maxDD.Valid || maxDD.V == 0 {
		return na()
	}
	return ok(growth.V / maxDD.V)
}

// drawdownStats 单次遍历计算最大回撤、平均回撤与最长回撤持续K线数。
func drawdownStats(equity []float64) (Value, Value, int) {
	if len(equity) < 2 {
		return na(), na(), 0
	}

	var peak, maxDD, sumDD float64
	var count, run, maxRun int
	for _, v := range equity {
		if v >= peak {
			peak = v
			run = 0
		} else {
			run++
			if run > maxRun {
				maxRun = run
			}
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		sumDD += dd
		count++
		if dd > maxDD {
			maxDD = dd
		}
	}
	if count == 0 {
		return na(), na(), 0
	}
	return ok(maxDD), ok(sumDD / float64(count)), maxRun
}

func tradeStats(trades []portfolio.Trade) (Value, Value) {
	if len(trades) == 0 {
		return na(), na()
	}

	var wins int
	var grossProfit, grossLoss float64
	for _, trade := range trades {
		if trade.RealizedPnL > 0 {
			wins++
			grossProfit += trade.RealizedPnL
		} else {
			grossLoss += -trade.RealizedPnL
		}
	}

	winRate := ok(float64(wins) / float64(len(trades)))
	if grossLoss == 0 {
		return winRate, na()
	}
	return winRate, ok(grossProfit / grossLoss)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	if len(values) > 1 {
		variance /= float64(len(values) - 1)
	}
	return math.Sqrt(variance)
}
