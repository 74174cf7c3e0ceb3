package market

import (
	"context"
	"sort"
)

// Feed 按时间顺序提供K线，外部数据源实现该接口。
type Feed interface {
	Next(ctx context.Context) (Bar, bool, error)
}

// SliceFeed 以固定切片提供K线，多标的按时间戳合并，
// 同一时间戳内按symbol字典序输出，保证回测顺序可复现。
type SliceFeed struct {
	bars  []Bar
	index int
}

// NewSliceFeed 合并各标的K线序列并校验数据完整性。
// 每个标的内部时间戳必须严格递增，价格与成交量必须非负。
func NewSliceFeed(series map[string][]Bar) (*SliceFeed, error) {
	var merged []Bar

	symbols := make([]string, 0, len(series))
	for symbol := range series {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		bars := series[symbol]
		for i, bar := range bars {
			if bar.Symbol == "" {
				bar.Symbol = symbol
			}
			if bar.Symbol != symbol {
				return nil, wrapIntegrity("序列 %s 中混入 %s 的K线", symbol, bar.Symbol)
			}
			if err := bar.Validate(); err != nil {
				return nil, err
			}
			if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
				return nil, wrapIntegrity("标的 %s 时间戳未严格递增: %s", symbol, bar.Timestamp)
			}
			merged = append(merged, bar)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].Symbol < merged[j].Symbol
	})

	return &SliceFeed{bars: merged}, nil
}

// Next 返回下一根K线，流结束时 ok 为 false。
func (f *SliceFeed) Next(ctx context.Context) (Bar, bool, error) {
	if err := ctx.Err(); err != nil {
		return Bar{}, false, err
	}
	if f.index >= len(f.bars) {
		return Bar{}, false, nil
	}
	bar := f.bars[f.index]
	f.index++
	return bar, true, nil
}

// Len 返回合并后剩余与已消费K线的总数。
func (f *SliceFeed) Len() int {
	return len(f.bars)
}
