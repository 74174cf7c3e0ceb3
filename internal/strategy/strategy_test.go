package strategy

import (
	"testing"
	"time"

	"quant-trading/internal/market"
	"quant-trading/internal/portfolio"
)

func barsFromCloses(closes ...float64) []market.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Symbol:    "AAPL",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func requireSingleIntent(t *testing.T, intents []OrderIntent, dir Direction) OrderIntent {
	t.Helper()
	if len(intents) != 1 {
		t.Fatalf("expected exactly one intent, got %d", len(intents))
	}
	if intents[0].Direction != dir {
		t.Fatalf("expected direction %s, got %s", dir, intents[0].Direction)
	}
	return intents[0]
}

func TestMACross_BuyOnCrossUp(t *testing.T) {
	s := NewMACross(2, 3)
	window := barsFromCloses(100, 90, 80, 110)

	intents, st := s.Decide(window, portfolio.Snapshot{}, State{})
	got := requireSingleIntent(t, intents, Buy)

	if got.Symbol != "AAPL" {
		t.Errorf("unexpected symbol %s", got.Symbol)
	}
	if got.PriceHint != 110 {
		t.Errorf("price hint should be last close, got %f", got.PriceHint)
	}
	if !st.InPosition || st.EntryPrice != 110 {
		t.Errorf("unexpected state after entry: %+v", st)
	}
}

func TestMACross_SellOnCrossDown(t *testing.T) {
	s := NewMACross(2, 3)
	window := barsFromCloses(100, 110, 120, 90)

	intents, st := s.Decide(window, portfolio.Snapshot{}, State{InPosition: true, EntryPrice: 100})
	requireSingleIntent(t, intents, Sell)

	if st.InPosition {
		t.Error("state must be cleared after exit signal")
	}
}

func TestMACross_NoSignalWithoutPositionOnCrossDown(t *testing.T) {
	s := NewMACross(2, 3)
	window := barsFromCloses(100, 110, 120, 90)

	intents, _ := s.Decide(window, portfolio.Snapshot{}, State{})
	if len(intents) != 0 {
		t.Fatalf("flat book must not emit exit signals, got %d intents", len(intents))
	}
}

func TestMACross_InsufficientHistory(t *testing.T) {
	s := NewMACross(10, 30)
	window := barsFromCloses(100, 101, 102)

	in := State{InPosition: true, EntryPrice: 99}
	intents, out := s.Decide(window, portfolio.Snapshot{}, in)
	if len(intents) != 0 {
		t.Fatal("short window must not produce intents")
	}
	if out != in {
		t.Errorf("state must pass through unchanged, got %+v", out)
	}
}

func TestMeanReversion_BuyBelowBand(t *testing.T) {
	s := NewMeanReversion(3, 1.0)
	window := barsFromCloses(100, 100, 80)

	intents, st := s.Decide(window, portfolio.Snapshot{}, State{})
	requireSingleIntent(t, intents, Buy)
	if !st.InPosition {
		t.Error("entry must set position state")
	}
}

func TestMeanReversion_SellAboveBand(t *testing.T) {
	s := NewMeanReversion(3, 1.0)
	window := barsFromCloses(100, 100, 120)

	intents, st := s.Decide(window, portfolio.Snapshot{}, State{InPosition: true, EntryPrice: 80})
	requireSingleIntent(t, intents, Sell)
	if st.InPosition {
		t.Error("exit must clear position state")
	}
}

func TestMeanReversion_FlatPricesProduceNoSignal(t *testing.T) {
	s := NewMeanReversion(3, 1.0)
	window := barsFromCloses(100, 100, 100)

	// 标准差为0时无法计算z分数，视为无信号。
	intents, _ := s.Decide(window, portfolio.Snapshot{}, State{})
	if len(intents) != 0 {
		t.Fatalf("zero stddev must be treated as no signal, got %d intents", len(intents))
	}
}

func TestRSIThreshold_Signals(t *testing.T) {
	s := NewRSIThreshold(2, 30, 70)

	intents, _ := s.Decide(barsFromCloses(100, 90, 80), portfolio.Snapshot{}, State{})
	requireSingleIntent(t, intents, Buy)

	intents, _ = s.Decide(barsFromCloses(100, 110, 120), portfolio.Snapshot{},
		State{InPosition: true, EntryPrice: 100})
	requireSingleIntent(t, intents, Sell)
}

func TestBollingerBreakout_Signals(t *testing.T) {
	s := NewBollingerBreakout(3, 1.0)

	intents, st := s.Decide(barsFromCloses(100, 100, 100, 120), portfolio.Snapshot{}, State{})
	requireSingleIntent(t, intents, Buy)
	if !st.InPosition {
		t.Error("entry must set position state")
	}

	intents, st = s.Decide(barsFromCloses(100, 100, 100, 90), portfolio.Snapshot{},
		State{InPosition: true, EntryPrice: 120})
	requireSingleIntent(t, intents, Sell)
	if st.InPosition {
		t.Error("exit must clear position state")
	}
}

func TestDecide_IsDeterministic(t *testing.T) {
	strategies := []Strategy{
		NewMACross(2, 3),
		NewMeanReversion(3, 1.0),
		NewRSIThreshold(2, 30, 70),
		NewBollingerBreakout(3, 1.0),
	}
	window := barsFromCloses(100, 90, 80, 110)

	for _, s := range strategies {
		first, fstState := s.Decide(window, portfolio.Snapshot{}, State{})
		second, sndState := s.Decide(window, portfolio.Snapshot{}, State{})

		if len(first) != len(second) || fstState != sndState {
			t.Errorf("%s: repeated decide diverged: %d vs %d intents", s.Name(), len(first), len(second))
		}
	}
}
