package store

import (
	"context"
	"testing"
	"time"

	"quant-trading/internal/backtest"
	"quant-trading/internal/config"
	"quant-trading/internal/metric"
	"quant-trading/internal/portfolio"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})
	return s
}

func sampleResult() backtest.Result {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := []portfolio.EquityPoint{
		{Timestamp: base, Equity: 10000},
		{Timestamp: base.Add(time.Hour), Equity: 10050},
		{Timestamp: base.Add(2 * time.Hour), Equity: 10099},
	}
	trades := []portfolio.Trade{
		{
			Symbol:      "AAPL",
			EntryTime:   base,
			ExitTime:    base.Add(2 * time.Hour),
			EntryPrice:  100,
			ExitPrice:   110,
			Quantity:    10,
			RealizedPnL: 99,
			Commission:  1,
		},
	}
	return backtest.Result{
		EquityCurve: curve,
		Trades:      trades,
		Metrics:     metric.Compute(curve, trades, metric.DefaultParams()),
		FinalEquity: 10099,
	}
}

func TestSaveResult_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveResult(ctx, "round_trip", sampleResult())
	if err != nil {
		t.Fatalf("SaveResult returned error: %v", err)
	}
	if runID <= 0 {
		t.Fatalf("expected positive run id, got %d", runID)
	}

	var name string
	var finalEquity float64
	var numTrades int
	err = s.DB().QueryRowContext(ctx,
		`SELECT name, final_equity, num_trades FROM backtest_runs WHERE id = ?`, runID,
	).Scan(&name, &finalEquity, &numTrades)
	if err != nil {
		t.Fatalf("query run row: %v", err)
	}
	if name != "round_trip" || finalEquity != 10099 || numTrades != 1 {
		t.Errorf("unexpected run row: name=%s equity=%f trades=%d", name, finalEquity, numTrades)
	}

	var equityPoints int
	if err := s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backtest_equity WHERE run_id = ?`, runID,
	).Scan(&equityPoints); err != nil {
		t.Fatalf("count equity points: %v", err)
	}
	if equityPoints != 3 {
		t.Errorf("expected 3 equity points, got %d", equityPoints)
	}

	var pnl float64
	if err := s.DB().QueryRowContext(ctx,
		`SELECT realized_pnl FROM backtest_trades WHERE run_id = ?`, runID,
	).Scan(&pnl); err != nil {
		t.Fatalf("query trade row: %v", err)
	}
	if pnl != 99 {
		t.Errorf("expected realized pnl 99, got %f", pnl)
	}

	var totalReturn float64
	if err := s.DB().QueryRowContext(ctx,
		`SELECT value FROM backtest_metrics WHERE run_id = ? AND name = 'total_return'`, runID,
	).Scan(&totalReturn); err != nil {
		t.Fatalf("query metric row: %v", err)
	}
	if totalReturn <= 0 {
		t.Errorf("expected positive total return, got %f", totalReturn)
	}
}

func TestSaveResult_MultipleRunsGetDistinctIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveResult(ctx, "a", sampleResult())
	if err != nil {
		t.Fatalf("SaveResult returned error: %v", err)
	}
	second, err := s.SaveResult(ctx, "b", sampleResult())
	if err != nil {
		t.Fatalf("SaveResult returned error: %v", err)
	}
	if first == second {
		t.Errorf("runs must get distinct ids, both got %d", first)
	}
}
