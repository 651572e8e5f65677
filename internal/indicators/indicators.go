// Package indicators 提供引擎用到的纯函数型技术指标。
// 所有函数对同一输入必须返回同一输出，不产生副作用。
package indicators

import "math"

// SMA 返回序列最后 window 个值的简单均值，数据不足时返回 NaN
func SMA(values []float64, window int) float64 {
	if window <= 0 || len(values) < window {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}

// RollingStd 计算滚动标准差，输出与输入等长，前 window-1 个位置为 NaN
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if window <= 0 || i+1 < window {
			out[i] = math.NaN()
			continue
		}
		slice := values[i+1-window : i+1]
		mean := 0.0
		for _, v := range slice {
			mean += v
		}
		mean /= float64(window)

		variance := 0.0
		for _, v := range slice {
			d := v - mean
			variance += d * d
		}
		// 样本标准差，与 pandas rolling(...).std() 的默认口径一致
		variance /= float64(window - 1)
		out[i] = math.Sqrt(variance)
	}
	return out
}

// RSI 计算收盘价序列的相对强弱指标（Wilder平滑）。
// 数据不足一个完整周期时返回中性值50。
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) <= period {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
