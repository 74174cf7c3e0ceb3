package portfolio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientCash 表示现金不足以覆盖买入成本。
	ErrInsufficientCash = errors.New("portfolio: insufficient cash")
)

// Account 聚合现金与持仓，由回测引擎独占持有并更新。
type Account struct {
	Cash      float64
	Positions map[string]*Position

	initialCash float64
}

// NewAccount 以初始资金创建账户。
func NewAccount(initialCash float64) *Account {
	return &Account{
		Cash:        initialCash,
		Positions:   make(map[string]*Position),
		initialCash: initialCash,
	}
}

// InitialCash 返回账户初始资金。
func (a *Account) InitialCash() float64 {
	return a.initialCash
}

// Equity 返回现金加全部持仓市值。
func (a *Account) Equity() float64 {
	equity := a.Cash
	for _, pos := range a.Positions {
		equity += pos.MarketValue()
	}
	return equity
}

// MarkToMarket 以最新收盘价重估指定标的持仓。
func (a *Account) MarkToMarket(symbol string, price float64) {
	if pos, ok := a.Positions[symbol]; ok {
		pos.markToMarket(price)
	}
}

// Buy 以给定价格买入，手续费单独计入，不摊入持仓均价。
func (a *Account) Buy(symbol string, qty int64, price, commission float64, ts time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("portfolio: 买入数量必须为正, got %d", qty)
	}
	cost := float64(qty)*price + commission
	if cost > a.Cash {
		return fmt.Errorf("%w: 需要 %.2f, 现金 %.2f", ErrInsufficientCash, cost, a.Cash)
	}

	a.Cash -= cost

	pos, ok := a.Positions[symbol]
	if !ok {
		a.Positions[symbol] = &Position{
			Symbol:          symbol,
			Quantity:        qty,
			AvgEntryPrice:   price,
			EntryTime:       ts,
			LastPrice:       price,
			entryCommission: commission,
		}
		return nil
	}

	total := float64(pos.Quantity) + float64(qty)
	pos.AvgEntryPrice = (pos.AvgEntryPrice*float64(pos.Quantity) + price*float64(qty)) / total
	pos.Quantity += qty
	pos.entryCommission += commission
	pos.markToMarket(price)
	return nil
}

// Sell 平掉最多 qty 的持仓并生成成交记录。平仓超出持仓时按持仓量截断。
// 部分平仓按平仓比例分摊建仓手续费，剩余持仓均价保持不变。
func (a *Account) Sell(symbol string, qty int64, price, commission float64, ts time.Time) (*Trade, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("portfolio: 卖出数量必须为正, got %d", qty)
	}
	pos, ok := a.Positions[symbol]
	if !ok || pos.Quantity <= 0 {
		return nil, nil
	}
	if qty > pos.Quantity {
		qty = pos.Quantity
	}

	closedFraction := float64(qty) / float64(pos.Quantity)
	entryCommission := pos.entryCommission * closedFraction
	tradeCommission := entryCommission + commission

	gross := (price - pos.AvgEntryPrice) * float64(qty)
	trade := &Trade{
		Symbol:      symbol,
		EntryTime:   pos.EntryTime,
		ExitTime:    ts,
		EntryPrice:  pos.AvgEntryPrice,
		ExitPrice:   price,
		Quantity:    qty,
		RealizedPnL: gross - tradeCommission,
		Commission:  tradeCommission,
	}

	a.Cash += float64(qty)*price - commission

	pos.Quantity -= qty
	pos.entryCommission -= entryCommission
	if pos.Quantity == 0 {
		delete(a.Positions, symbol)
	} else {
		pos.markToMarket(price)
	}

	return trade, nil
}

// Snapshot 返回账户只读快照，供策略与仓位计算使用。
func (a *Account) Snapshot() Snapshot {
	snap := Snapshot{
		Cash:      a.Cash,
		Equity:    a.Equity(),
		Positions: make(map[string]Position, len(a.Positions)),
	}
	for symbol, pos := range a.Positions {
		snap.Positions[symbol] = *pos
	}
	return snap
}

// Snapshot 为账户的不可变视图。
type Snapshot struct {
	Cash      float64
	Equity    float64
	Positions map[string]Position
}

// Position 返回指定标的的持仓快照，不存在时返回零值。
func (s Snapshot) Position(symbol string) (Position, bool) {
	pos, ok := s.Positions[symbol]
	return pos, ok
}

// TotalExposure 返回全部持仓市值之和。
func (s Snapshot) TotalExposure() float64 {
	var total float64
	for _, pos := range s.Positions {
		total += pos.MarketValue()
	}
	return total
}
