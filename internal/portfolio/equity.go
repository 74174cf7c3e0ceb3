package portfolio

import "time"

// EquityPoint 为净值曲线上的一个采样点，每根K线追加一条，
// 追加后不再修改。
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// EquityValues 提取净值序列，便于统计计算。
func EquityValues(curve []EquityPoint) []float64 {
	values := make([]float64, len(curve))
	for i, point := range curve {
		values[i] = point.Equity
	}
	return values
}
