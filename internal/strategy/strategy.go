package strategy

import (
	"time"

	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

// Direction 表示订单方向。
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// OrderIntent 为策略产生的原始交易意图，在同一根K线内被消费。
type OrderIntent struct {
	Symbol    string
	Direction Direction
	PriceHint float64
	Timestamp time.Time
}

// State 为策略在单个标的上的显式状态，由引擎持有、
// 按值传入每次决策并接收返回值，策略自身不保留可变状态。
type State struct {
	InPosition bool
	EntryPrice float64
}

// Strategy 为纯决策逻辑契约。实现必须满足：
//   - 相同输入产生相同输出（不读取时钟、不持有隐藏状态）；
//   - 不修改账户快照；
//   - 窗口长度不足 Lookback() 时不产生任何意图；
//   - 指标出现 NaN/Inf 时视为无信号而非报错。
type Strategy interface {
	Name() string
	Lookback() int
	Decide(window []market.Bar, acct portfolio.Snapshot, st State) ([]OrderIntent, State)
}

func current(window []market.Bar) market.Bar {
	return window[len(window)-1]
}

func intent(bar market.Bar, dir Direction) OrderIntent {
	return OrderIntent{
		Symbol:    bar.Symbol,
		Direction: dir,
		PriceHint: bar.Close,
		Timestamp: bar.Timestamp,
	}
}
