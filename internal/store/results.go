package store

import (
	"context"
	"fmt"
	"time"

	"quant-trading/internal/backtest"
)

// SaveResult 将一次回测结果（指标、成交、净值曲线）写入数据库，
// 返回新建运行记录的ID。整个写入在单个事务中完成。
func (s *Store) SaveResult(ctx context.Context, name string, result backtest.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: 开启事务失败: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO backtest_runs (name, created_at, final_equity, num_trades)
		 VALUES (?, ?, ?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339), result.FinalEquity, len(result.Trades),
	)
	if err != nil {
		err = fmt.Errorf("store: 写入运行记录失败: %w", err)
		return 0, err
	}

	runID, err := res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("store: 获取运行ID失败: %w", err)
		return 0, err
	}

	for metricName, value := range result.Metrics.Map() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO backtest_metrics (run_id, name, value) VALUES (?, ?, ?)`,
			runID, metricName, value,
		); err != nil {
			err = fmt.Errorf("store: 写入指标 %s 失败: %w", metricName, err)
			return 0, err
		}
	}

	for _, trade := range result.Trades {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO backtest_trades
			 (run_id, symbol, entry_time, exit_time, entry_price, exit_price, quantity, realized_pnl, commission)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, trade.Symbol,
			trade.EntryTime.UTC().Format(time.RFC3339),
			trade.ExitTime.UTC().Format(time.RFC3339),
			trade.EntryPrice, trade.ExitPrice, trade.Quantity,
			trade.RealizedPnL, trade.Commission,
		); err != nil {
			err = fmt.Errorf("store: 写入成交记录失败: %w", err)
			return 0, err
		}
	}

	for seq, point := range result.EquityCurve {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO backtest_equity (run_id, seq, ts, equity) VALUES (?, ?, ?, ?)`,
			runID, seq, point.Timestamp.UTC().Format(time.RFC3339), point.Equity,
		); err != nil {
			err = fmt.Errorf("store: 写入净值曲线失败: %w", err)
			return 0, err
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("store: 提交事务失败: %w", commitErr)
	}

	return runID, nil
}
