package backtest

import "errors"

var (
	// ErrInsufficientCapital 表示成交所需现金超过账户余额。
	// 仓位计算已按现金截断，正常流水线中该错误不应出现；
	// 出现时订单被丢弃并记录日志，回测继续。
	ErrInsufficientCapital = errors.New("backtest: insufficient capital")
)
