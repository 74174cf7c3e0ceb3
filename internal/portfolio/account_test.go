package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAccount_BuyAndFullClose(t *testing.T) {
	acct := NewAccount(10000)

	if err := acct.Buy("AAPL", 10, 100, 0.5, t0); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}
	if diff := math.Abs(acct.Cash - (10000 - 1000 - 0.5)); diff > 1e-9 {
		t.Errorf("unexpected cash after buy: %f", acct.Cash)
	}

	acct.MarkToMarket("AAPL", 110)
	if diff := math.Abs(acct.Equity() - (10000 - 1000 - 0.5 + 1100)); diff > 1e-9 {
		t.Errorf("unexpected equity after mark: %f", acct.Equity())
	}

	trade, err := acct.Sell("AAPL", 10, 110, 0.5, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}
	if trade == nil {
		t.Fatal("expected trade record")
	}
	if diff := math.Abs(trade.RealizedPnL - 99); diff > 1e-9 {
		t.Errorf("expected realized pnl 99, got %f", trade.RealizedPnL)
	}
	if diff := math.Abs(trade.Commission - 1); diff > 1e-9 {
		t.Errorf("expected commission 1, got %f", trade.Commission)
	}
	if !trade.ExitTime.After(trade.EntryTime) {
		t.Errorf("exit time %v not after entry time %v", trade.ExitTime, trade.EntryTime)
	}
	if _, ok := acct.Positions["AAPL"]; ok {
		t.Error("position should be removed after full close")
	}
}

func TestAccount_PartialCloseProRatesPnL(t *testing.T) {
	acct := NewAccount(10000)

	if err := acct.Buy("AAPL", 10, 100, 1.0, t0); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	trade, err := acct.Sell("AAPL", 4, 110, 0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}

	// 平仓40%，分摊40%的建仓手续费。
	if diff := math.Abs(trade.Commission - 0.4); diff > 1e-9 {
		t.Errorf("expected pro-rated commission 0.4, got %f", trade.Commission)
	}
	if diff := math.Abs(trade.RealizedPnL - (4*10 - 0.4)); diff > 1e-9 {
		t.Errorf("unexpected realized pnl: %f", trade.RealizedPnL)
	}

	pos := acct.Positions["AAPL"]
	if pos.Quantity != 6 {
		t.Fatalf("expected remaining quantity 6, got %d", pos.Quantity)
	}
	if pos.AvgEntryPrice != 100 {
		t.Errorf("average entry price must stay unchanged, got %f", pos.AvgEntryPrice)
	}
}

func TestAccount_BuyRejectsInsufficientCash(t *testing.T) {
	acct := NewAccount(500)

	err := acct.Buy("AAPL", 10, 100, 0, t0)
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
	if acct.Cash != 500 {
		t.Errorf("cash must be untouched on rejected buy, got %f", acct.Cash)
	}
}

func TestAccount_SellClampsToHeldQuantity(t *testing.T) {
	acct := NewAccount(10000)

	if err := acct.Buy("AAPL", 5, 100, 0, t0); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	trade, err := acct.Sell("AAPL", 50, 100, 0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}
	if trade.Quantity != 5 {
		t.Errorf("expected clamped quantity 5, got %d", trade.Quantity)
	}
	if acct.Cash < 0 {
		t.Errorf("cash went negative: %f", acct.Cash)
	}
}

func TestSnapshot_IsIsolatedFromAccount(t *testing.T) {
	acct := NewAccount(10000)
	if err := acct.Buy("AAPL", 10, 100, 0, t0); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	snap := acct.Snapshot()
	pos := snap.Positions["AAPL"]
	pos.Quantity = 999
	snap.Positions["AAPL"] = pos

	if acct.Positions["AAPL"].Quantity != 10 {
		t.Error("mutating snapshot must not affect account state")
	}
}
