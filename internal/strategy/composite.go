package strategy

import (
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// Composite 按多数票合并多个主策略的结论。票数相同或全部弃权时
// 结论为 INCONCLUSIVE；此时若配置了回退策略，再征求它的意见。
type Composite struct {
	primaries []Strategy
	fallback  Strategy
}

// NewComposite 创建组合策略，fallback 可以为 nil
func NewComposite(primaries []Strategy, fallback Strategy) *Composite {
	return &Composite{primaries: primaries, fallback: fallback}
}

func (c *Composite) Name() string { return "composite" }

func (c *Composite) Decide(s *series.PriceSeries, position models.PositionState) models.Decision {
	buyVotes, sellVotes := 0, 0
	for _, p := range c.primaries {
		switch p.Decide(s, position) {
		case models.DecisionBuy:
			buyVotes++
		case models.DecisionSell:
			sellVotes++
		}
	}

	switch {
	case buyVotes > sellVotes:
		return models.DecisionBuy
	case sellVotes > buyVotes:
		return models.DecisionSell
	}

	if c.fallback != nil {
		return c.fallback.Decide(s, position)
	}
	return models.DecisionInconclusive
}
