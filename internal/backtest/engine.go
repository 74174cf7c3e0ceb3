package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quant-trading/internal/market"
	"quant-trading/internal/metric"
	"quant-trading/internal/portfolio"
	"quant-trading/internal/risk"
	"quant-trading/internal/sizing"
	"quant-trading/internal/strategy"
)

// Result 汇总回测结果，可直接序列化供上层持久化。
type Result struct {
	EquityCurve []portfolio.EquityPoint
	Trades      []portfolio.Trade
	Metrics     metric.Summary
	FinalEquity float64
}

// execution 将一个策略实例绑定到一组标的。
type execution struct {
	strat   strategy.Strategy
	sizer   sizing.Sizer
	symbols map[string]bool
	states  map[string]strategy.State
}

// pendingOrder 为等待下一根K线开盘成交的已授权订单，
// 记录来源execution以便成交失败时回滚其策略状态。
type pendingOrder struct {
	exec      *execution
	direction strategy.Direction
	quantity  int64
}

// Engine 为回测核心状态机。每根K线严格顺序执行：
// 推进时间 → 持仓重估 → 策略决策 → 仓位计算 → 风控授权 →
// 成交 → 记录净值。账户等全部可变状态由引擎独占持有。
type Engine struct {
	cfg        Config
	feed       market.Feed
	riskMgr    *risk.Manager
	logger     *zap.Logger
	executions []*execution

	account  *portfolio.Account
	history  map[string][]market.Bar
	lastSeen map[string]time.Time
	pending  map[string][]pendingOrder
	curve    []portfolio.EquityPoint
	trades   []portfolio.Trade
}

// NewEngine 构建回测引擎。
func NewEngine(cfg Config, feed market.Feed, riskMgr *risk.Manager, logger *zap.Logger) (*Engine, error) {
	if feed == nil {
		return nil, fmt.Errorf("backtest: feed 不能为空")
	}
	if riskMgr == nil {
		return nil, fmt.Errorf("backtest: risk manager 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.normalize()

	return &Engine{
		cfg:      cfg,
		feed:     feed,
		riskMgr:  riskMgr,
		logger:   logger,
		account:  portfolio.NewAccount(cfg.InitialCash),
		history:  make(map[string][]market.Bar),
		lastSeen: make(map[string]time.Time),
		pending:  make(map[string][]pendingOrder),
	}, nil
}

// AddExecution 将策略实例与仓位计算器绑定到一组标的。
func (e *Engine) AddExecution(strat strategy.Strategy, symbols []string, sizer sizing.Sizer) error {
	if strat == nil {
		return fmt.Errorf("backtest: strategy 不能为空")
	}
	if sizer == nil {
		return fmt.Errorf("backtest: sizer 不能为空")
	}
	if len(symbols) == 0 {
		return fmt.Errorf("backtest: 至少绑定一个标的")
	}

	exec := &execution{
		strat:   strat,
		sizer:   sizer,
		symbols: make(map[string]bool, len(symbols)),
		states:  make(map[string]strategy.State, len(symbols)),
	}
	for _, symbol := range symbols {
		exec.symbols[symbol] = true
	}
	e.executions = append(e.executions, exec)
	return nil
}

// Run 执行完整回测。数据完整性错误中止运行，但已累计的
// 净值曲线与成交记录仍随错误一并返回，便于定位问题。
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if len(e.executions) == 0 {
		return Result{}, fmt.Errorf("backtest: 未注册任何策略")
	}

	for {
		bar, ok, err := e.feed.Next(ctx)
		if err != nil {
			return e.result(), err
		}
		if !ok {
			break
		}

		if !e.cfg.EndTime.IsZero() && bar.Timestamp.After(e.cfg.EndTime) {
			break
		}

		if err := e.checkIntegrity(bar); err != nil {
			return e.result(), err
		}

		// 预热期：只累积历史与风控观测，不决策、不记录净值。
		warmup := !e.cfg.StartTime.IsZero() && bar.Timestamp.Before(e.cfg.StartTime)

		if !warmup {
			e.fillPending(bar)
		}

		e.history[bar.Symbol] = append(e.history[bar.Symbol], bar)

		e.account.MarkToMarket(bar.Symbol, bar.Close)
		e.riskMgr.Observe(bar)
		e.riskMgr.UpdateEquity(e.account.Equity())

		if warmup {
			continue
		}

		e.decide(bar)

		e.curve = append(e.curve, portfolio.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    e.account.Equity(),
		})
	}

	return e.result(), nil
}

// checkIntegrity 在引擎侧再次校验K线，外部Feed实现不可信。
func (e *Engine) checkIntegrity(bar market.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}
	if last, ok := e.lastSeen[bar.Symbol]; ok && !bar.Timestamp.After(last) {
		return fmt.Errorf("%w: 标的 %s 时间戳未严格递增: %s",
			market.ErrDataIntegrity, bar.Symbol, bar.Timestamp.Format(time.RFC3339))
	}
	e.lastSeen[bar.Symbol] = bar.Timestamp
	return nil
}

// decide 对绑定该标的的每个策略依次执行决策到成交的流水线。
func (e *Engine) decide(bar market.Bar) {
	window := e.history[bar.Symbol]

	for _, exec := range e.executions {
		if !exec.symbols[bar.Symbol] {
			continue
		}

		snap := e.account.Snapshot()
		intents, next := exec.strat.Decide(window, snap, exec.states[bar.Symbol])

		for _, intent := range intents {
			e.process(exec, intent, bar)
		}

		// 状态与账户对账：开仓被风控拒绝或现金不足时，
		// 策略不应继续认为自己持仓。排队中的买单视为在途持仓。
		if next.InPosition {
			_, held := e.account.Positions[bar.Symbol]
			if !held && !e.pendingBuyFor(exec, bar.Symbol) {
				next = strategy.State{}
			}
		}
		exec.states[bar.Symbol] = next
	}
}

func (e *Engine) process(exec *execution, intent strategy.OrderIntent, bar market.Bar) {
	snap := e.account.Snapshot()

	var qty int64
	switch intent.Direction {
	case strategy.Buy:
		sized, err := exec.sizer.Size(intent, snap, e.history[intent.Symbol])
		if err != nil {
			e.logger.Warn("仓位计算失败，丢弃订单",
				zap.String("symbol", intent.Symbol), zap.Error(err))
			return
		}
		qty = sized
	case strategy.Sell:
		// 卖出为平仓：数量取当前持仓全量。
		pos, ok := snap.Position(intent.Symbol)
		if !ok {
			return
		}
		qty = pos.Quantity
	default:
		return
	}

	if qty <= 0 {
		return
	}

	decision := e.riskMgr.Authorize(risk.SizedOrder{Intent: intent, Quantity: qty}, snap)
	if !decision.Approved() {
		e.logger.Debug("风控拒绝订单",
			zap.String("symbol", intent.Symbol),
			zap.String("direction", string(intent.Direction)),
			zap.Strings("notes", decision.Notes),
		)
		return
	}

	if e.cfg.FillPolicy == FillOnNextOpen {
		e.pending[intent.Symbol] = append(e.pending[intent.Symbol], pendingOrder{
			exec:      exec,
			direction: intent.Direction,
			quantity:  decision.Quantity,
		})
		return
	}

	e.fill(intent.Symbol, intent.Direction, decision.Quantity, bar.Close, bar.Timestamp)
}

// fillPending 在标的新K线到来时以开盘价成交排队订单。
// 买单成交失败（如开盘跳空导致现金不足）时，来源策略的
// 持仓状态回滚为空仓，否则该标的上不会再产生任何信号。
func (e *Engine) fillPending(bar market.Bar) {
	orders := e.pending[bar.Symbol]
	if len(orders) == 0 {
		return
	}
	delete(e.pending, bar.Symbol)

	for _, order := range orders {
		if e.fill(bar.Symbol, order.direction, order.quantity, bar.Open, bar.Timestamp) {
			continue
		}
		if order.direction == strategy.Buy {
			order.exec.states[bar.Symbol] = strategy.State{}
		}
	}
}

// pendingBuyFor 返回指定execution在该标的上是否有排队中的买单。
func (e *Engine) pendingBuyFor(exec *execution, symbol string) bool {
	for _, order := range e.pending[symbol] {
		if order.exec == exec && order.direction == strategy.Buy {
			return true
		}
	}
	return false
}

// fill 应用滑点与手续费完成成交，返回订单是否成交。
// 部分成交不建模：现金不足时整单丢弃并记录告警。
// 成交后持仓按市场参考价重估，滑点只进成本、不进净值。
func (e *Engine) fill(symbol string, dir strategy.Direction, qty int64, price float64, ts time.Time) bool {
	switch dir {
	case strategy.Buy:
		fillPrice := price * (1 + e.cfg.Slippage)
		commission := e.commission(qty, fillPrice)
		err := e.account.Buy(symbol, qty, fillPrice, commission, ts)
		if errors.Is(err, portfolio.ErrInsufficientCash) {
			e.logger.Warn("现金不足，丢弃订单",
				zap.String("symbol", symbol),
				zap.Int64("quantity", qty),
				zap.Error(fmt.Errorf("%w: %v", ErrInsufficientCapital, err)),
			)
			return false
		}
		if err != nil {
			e.logger.Warn("买入失败", zap.String("symbol", symbol), zap.Error(err))
			return false
		}
		e.account.MarkToMarket(symbol, price)
		return true
	case strategy.Sell:
		fillPrice := price * (1 - e.cfg.Slippage)
		commission := e.commission(qty, fillPrice)
		trade, err := e.account.Sell(symbol, qty, fillPrice, commission, ts)
		if err != nil {
			e.logger.Warn("卖出失败", zap.String("symbol", symbol), zap.Error(err))
			return false
		}
		if trade != nil {
			e.trades = append(e.trades, *trade)
		}
		e.account.MarkToMarket(symbol, price)
		return true
	}
	return false
}

func (e *Engine) commission(qty int64, price float64) float64 {
	return e.cfg.CommissionRate*float64(qty)*price + e.cfg.CommissionFixed
}

func (e *Engine) result() Result {
	return Result{
		EquityCurve: e.curve,
		Trades:      e.trades,
		Metrics:     metric.Compute(e.curve, e.trades, e.cfg.Metrics),
		FinalEquity: e.account.Equity(),
	}
}
