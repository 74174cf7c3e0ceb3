package market

import "time"

// Bar 表示单根OHLCV K线，生成后不可变。
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate 校验K线数据本身是否合法。
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return wrapIntegrity("bar缺少symbol")
	}
	if b.Timestamp.IsZero() {
		return wrapIntegrity("bar %s 缺少时间戳", b.Symbol)
	}
	if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 {
		return wrapIntegrity("bar %s@%s 存在负价格", b.Symbol, b.Timestamp.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return wrapIntegrity("bar %s@%s 成交量为负", b.Symbol, b.Timestamp.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return wrapIntegrity("bar %s@%s high低于low", b.Symbol, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}
