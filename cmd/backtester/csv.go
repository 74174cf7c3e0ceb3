package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"quant-trading/internal/market"
)

// barSeries 为按标的分组的K线，来自外部CSV文件。
// 列格式: symbol,timestamp,open,high,low,close,volume。
type barSeries map[string][]market.Bar

func (s barSeries) feed() (market.Feed, error) {
	return market.NewSliceFeed(s)
}

func loadBarsCSV(path string) (barSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析CSV失败: %w", err)
	}

	series := make(barSeries)
	for i, record := range records {
		if i == 0 && record[0] == "symbol" {
			continue
		}
		if len(record) < 7 {
			return nil, fmt.Errorf("第%d行列数不足", i+1)
		}

		ts, err := time.Parse(time.RFC3339, record[1])
		if err != nil {
			return nil, fmt.Errorf("第%d行时间戳非法: %w", i+1, err)
		}

		values := make([]float64, 5)
		for j := 0; j < 5; j++ {
			v, err := strconv.ParseFloat(record[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("第%d行数值非法: %w", i+1, err)
			}
			values[j] = v
		}

		symbol := record[0]
		series[symbol] = append(series[symbol], market.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	return series, nil
}
