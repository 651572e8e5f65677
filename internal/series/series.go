package series

import (
	"math"
	"sort"

	"github.com/02ricardosouza/robot02-cripto/internal/indicators"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

const (
	// WindowSize 是价格序列保留的K线数量上限
	WindowSize = 500
	// VolatilityWindow 是波动率（滚动标准差）的计算窗口，
	// 与慢速均线的窗口保持一致
	VolatilityWindow = 40
	// RSIPeriod 是RSI指标的默认周期
	RSIPeriod = 14
)

// PriceSeries 是按时间升序排列的K线序列及其派生指标列。
// 每个周期由快照构建器整体重建，归属单个机器人实例，不跨实例共享。
type PriceSeries struct {
	Candles    []models.Candle
	Volatility []float64 // 与 Candles 对齐的滚动标准差
}

// New 根据原始K线构建价格序列：按开盘时间升序排序、截取最近
// WindowSize 根，并计算派生指标列。
func New(candles []models.Candle) *PriceSeries {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	if len(sorted) > WindowSize {
		sorted = sorted[len(sorted)-WindowSize:]
	}

	s := &PriceSeries{Candles: sorted}
	s.Volatility = indicators.RollingStd(s.Closes(), VolatilityWindow)
	return s
}

// Len 返回K线数量
func (s *PriceSeries) Len() int {
	return len(s.Candles)
}

// Closes 返回收盘价列
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// LastClose 返回最新一根K线的收盘价，序列为空时返回0
func (s *PriceSeries) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// PrevClose 返回倒数第二根K线的收盘价，用于双K线确认
func (s *PriceSeries) PrevClose() float64 {
	if len(s.Candles) < 2 {
		return 0
	}
	return s.Candles[len(s.Candles)-2].Close
}

// LastVolume 返回最新一根K线的成交量
func (s *PriceSeries) LastVolume() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Volume
}

// AvgVolume 返回最近 window 根K线的平均成交量，数据不足时返回 NaN
func (s *PriceSeries) AvgVolume(window int) float64 {
	volumes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		volumes[i] = c.Volume
	}
	return indicators.SMA(volumes, window)
}

// RSI 返回收盘价序列的RSI值
func (s *PriceSeries) RSI() float64 {
	return indicators.RSI(s.Closes(), RSIPeriod)
}

// LastVolatility 返回最新的波动率值（可能为 NaN）
func (s *PriceSeries) LastVolatility() float64 {
	if len(s.Volatility) == 0 {
		return math.NaN()
	}
	return s.Volatility[len(s.Volatility)-1]
}
