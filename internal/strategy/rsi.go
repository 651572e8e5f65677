package strategy

import (
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// RSIStrategy 在超卖区给出买入信号，在超买区给出卖出信号
type RSIStrategy struct {
	Oversold   float64
	Overbought float64
}

func NewRSIStrategy() *RSIStrategy {
	return &RSIStrategy{Oversold: 30, Overbought: 70}
}

func (r *RSIStrategy) Name() string { return "rsi" }

func (r *RSIStrategy) Decide(s *series.PriceSeries, _ models.PositionState) models.Decision {
	rsi := s.RSI()
	switch {
	case rsi < r.Oversold:
		return models.DecisionBuy
	case rsi > r.Overbought:
		return models.DecisionSell
	default:
		return models.DecisionInconclusive
	}
}
