package portfolio

import "time"

// Position 表示单个标的的持仓。数量恒为正（多头），
// 做空需要保证金模型，当前引擎不启用。
type Position struct {
	Symbol        string
	Quantity      int64
	AvgEntryPrice float64
	EntryTime     time.Time
	LastPrice     float64
	UnrealizedPnL float64

	// entryCommission 为建仓累计手续费，平仓时按比例计入成交记录。
	entryCommission float64
}

// MarketValue 返回按最新标记价格计算的持仓市值。
func (p *Position) MarketValue() float64 {
	return float64(p.Quantity) * p.LastPrice
}

func (p *Position) markToMarket(price float64) {
	p.LastPrice = price
	p.UnrealizedPnL = (price - p.AvgEntryPrice) * float64(p.Quantity)
}

// Trade 记录一次完整或部分平仓，生成后不可变。
type Trade struct {
	Symbol      string
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Quantity    int64
	RealizedPnL float64
	Commission  float64
}
