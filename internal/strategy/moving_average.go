package strategy

import (
	"math"

	"github.com/02ricardosouza/robot02-cripto/internal/indicators"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// MovingAverageStrategy 是主策略：快慢均线交叉，叠加波动率因子
// 提前确认交叉，避免在横盘噪音中反复换向。
type MovingAverageStrategy struct {
	FastWindow       int
	SlowWindow       int
	VolatilityFactor float64
}

// NewMovingAverageStrategy 使用本机器人家族惯用的 7/40 窗口
func NewMovingAverageStrategy(volatilityFactor float64) *MovingAverageStrategy {
	return &MovingAverageStrategy{
		FastWindow:       7,
		SlowWindow:       40,
		VolatilityFactor: volatilityFactor,
	}
}

func (m *MovingAverageStrategy) Name() string { return "moving_average" }

// Decide 比较快慢均线，波动率作为确认区间：快线必须超出慢线一个
// 波动率区间才视为有效交叉
func (m *MovingAverageStrategy) Decide(s *series.PriceSeries, _ models.PositionState) models.Decision {
	closes := s.Closes()
	if len(closes) < m.SlowWindow {
		return models.DecisionInconclusive
	}

	fast := indicators.SMA(closes, m.FastWindow)
	slow := indicators.SMA(closes, m.SlowWindow)
	if math.IsNaN(fast) || math.IsNaN(slow) {
		return models.DecisionInconclusive
	}

	band := 0.0
	if vol := s.LastVolatility(); !math.IsNaN(vol) {
		band = vol * m.VolatilityFactor
	}

	switch {
	case fast > slow+band:
		return models.DecisionBuy
	case fast < slow-band:
		return models.DecisionSell
	default:
		return models.DecisionInconclusive
	}
}
