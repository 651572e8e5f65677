package strategy

import (
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// Strategy 是决策策略的外部契约：对同一快照必须返回同一结果，
// 不允许产生任何副作用。
type Strategy interface {
	Name() string
	Decide(s *series.PriceSeries, position models.PositionState) models.Decision
}
