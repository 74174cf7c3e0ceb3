package risk

import (
	"math"
	"testing"

	"quant-trading/internal/portfolio"
)

func TestValueAtRisk_GaussianEstimate(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, -0.02, 0.01, -0.01}

	v95 := ValueAtRisk(returns, 0.95)
	if v95 <= 0 {
		t.Fatalf("expected positive VaR, got %f", v95)
	}

	v99 := ValueAtRisk(returns, 0.99)
	if v99 <= v95 {
		t.Errorf("higher confidence must give larger VaR: %f vs %f", v99, v95)
	}

	// 零均值时 VaR = z * σ。
	sigma := stddev(returns)
	want := normQuantile(0.95) * sigma
	if math.Abs(v95-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, v95)
	}
}

func TestValueAtRisk_DegenerateInputs(t *testing.T) {
	if v := ValueAtRisk([]float64{0.01}, 0.95); v != 0 {
		t.Errorf("single sample must yield 0, got %f", v)
	}
	if v := ValueAtRisk([]float64{0.01, -0.01}, 1.5); v != 0 {
		t.Errorf("out-of-range confidence must yield 0, got %f", v)
	}
	if v := ValueAtRisk([]float64{0.05, 0.05, 0.05}, 0.95); v != 0 {
		t.Errorf("constant positive returns must not report a loss, got %f", v)
	}
}

func TestMaxDrawdown(t *testing.T) {
	cases := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"single trough", []float64{100, 120, 90, 110}, 0.25},
		{"monotonic growth", []float64{100, 110, 120}, 0},
		{"empty", nil, 0},
	}

	for _, tc := range cases {
		got := MaxDrawdown(tc.equity)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestPortfolioVaR(t *testing.T) {
	m := newTestManager(t, testLimits())
	observeCloses(m, "AAA", []float64{100, 110, 99, 108, 97})

	acct := portfolio.Snapshot{
		Cash:   5000,
		Equity: 10000,
		Positions: map[string]portfolio.Position{
			"AAA": {Symbol: "AAA", Quantity: 50, LastPrice: 100},
		},
	}

	v := m.PortfolioVaR(acct, 0.95)
	if v <= 0 {
		t.Fatalf("expected positive portfolio VaR, got %f", v)
	}

	// 单持仓组合退化为 市值*σ*z。
	want := 5000 * stddev(m.returns["AAA"]) * normQuantile(0.95)
	if math.Abs(v-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, v)
	}

	if empty := m.PortfolioVaR(portfolio.Snapshot{}, 0.95); empty != 0 {
		t.Errorf("empty book must have zero VaR, got %f", empty)
	}
}
