package strategy

import (
	"math"

	"github.com/02ricardosouza/robot02-cripto/internal/indicators"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// FallbackStrategy 是回退策略：主策略拿不定主意时，允许在持续
// 上涨的行情中空仓进场，避免整轮上涨都踏空。只在空仓时给出买入，
// 从不给出卖出信号。
type FallbackStrategy struct {
	TrendWindow int
}

func NewFallbackStrategy() *FallbackStrategy {
	return &FallbackStrategy{TrendWindow: 40}
}

func (f *FallbackStrategy) Name() string { return "fallback" }

func (f *FallbackStrategy) Decide(s *series.PriceSeries, position models.PositionState) models.Decision {
	if position != models.PositionFlat {
		return models.DecisionInconclusive
	}

	closes := s.Closes()
	if len(closes) < f.TrendWindow+1 {
		return models.DecisionInconclusive
	}

	trend := indicators.SMA(closes, f.TrendWindow)
	if math.IsNaN(trend) {
		return models.DecisionInconclusive
	}

	// 最近三根K线连续收高且价格站上趋势线，视为上涨行情
	n := len(closes)
	rising := closes[n-1] > closes[n-2] && closes[n-2] > closes[n-3]
	if rising && closes[n-1] > trend {
		return models.DecisionBuy
	}
	return models.DecisionInconclusive
}
