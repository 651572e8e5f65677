package bot

import (
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/granularity"
	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// 限价单相对最新收盘价的偏移比例
const (
	buyRSIOffset       = -0.002 // 超卖时更贴近地买入
	buyQuietOffset     = +0.002 // 缩量时略高挂单提高成交率
	buyVolatileOffset  = +0.005 // 放量时追高挂单
	sellRSIOffset      = -0.002 // 超买时略低挂单尽快离场
	sellQuietOffset    = -0.002
	sellVolatileOffset = -0.005
)

// orderQuantity 返回本周期应下单的数量：目标数量减去同方向挂单
// 已成交的部分，再按stepSize向下取整。
func (b *TraderBot) orderQuantity(target float64) (float64, string, error) {
	b.stateMu.RLock()
	discount := b.partialDiscount
	b.stateMu.RUnlock()

	qty := target - discount
	if qty <= 0 {
		return 0, "", ErrZeroQuantity
	}

	adjusted, err := granularity.AdjustToStep(qty, b.rules.StepSize)
	if err != nil {
		return 0, "", err
	}
	if adjusted <= 0 {
		return 0, "", ErrZeroQuantity
	}
	rendered, err := granularity.FormatToStep(adjusted, b.rules.StepSize)
	if err != nil {
		return 0, "", err
	}
	return adjusted, rendered, nil
}

// limitBuyPrice 根据市场状态给出限价买单的挂单价：
// RSI超卖时向下偏移，否则按成交量状态向上偏移。
func (b *TraderBot) limitBuyPrice(prices *series.PriceSeries) float64 {
	base := prices.LastClose()
	rsi := prices.RSI()

	var offset float64
	switch {
	case rsi < 30:
		offset = buyRSIOffset
		logger.S().Infof("[%s] RSI=%.2f 超卖，买价下偏 %.2f%%", b.botID, rsi, -offset*100)
	case prices.LastVolume() < prices.AvgVolume(series.VolatilityWindow):
		offset = buyQuietOffset
		logger.S().Infof("[%s] 缩量行情，买价上偏 %.2f%%", b.botID, offset*100)
	default:
		offset = buyVolatileOffset
		logger.S().Infof("[%s] 放量行情，买价上偏 %.2f%%", b.botID, offset*100)
	}
	return base * (1 + offset)
}

// limitSellPrice 给出限价卖单的挂单价，并用可接受亏损率对价格
// 兜底：挂单价绝不低于 买入价*(1-acceptable_loss_rate)。
func (b *TraderBot) limitSellPrice(prices *series.PriceSeries, lastBuy float64) float64 {
	base := prices.LastClose()
	rsi := prices.RSI()

	var offset float64
	switch {
	case rsi > 70:
		offset = sellRSIOffset
		logger.S().Infof("[%s] RSI=%.2f 超买，卖价下偏 %.2f%%", b.botID, rsi, -offset*100)
	case prices.LastVolume() < prices.AvgVolume(series.VolatilityWindow):
		offset = sellQuietOffset
		logger.S().Infof("[%s] 缩量行情，卖价下偏 %.2f%%", b.botID, -offset*100)
	default:
		offset = sellVolatileOffset
		logger.S().Infof("[%s] 放量行情，卖价下偏 %.2f%%", b.botID, -offset*100)
	}

	price := base * (1 + offset)
	if lastBuy > 0 {
		floor := lastBuy * (1 - b.cfg.AcceptableLossRate)
		if price < floor {
			logger.S().Infof("[%s] 卖价 %.8f 低于可接受底线 %.8f，按底线挂单", b.botID, price, floor)
			price = floor
		}
	}
	return price
}

// limitBuy 在空仓且策略看多时挂限价买单
func (b *TraderBot) limitBuy() error {
	b.stateMu.RLock()
	prices := b.prices
	quoteFree := b.balances[b.cfg.QuoteCode()].Free
	b.stateMu.RUnlock()

	price := b.limitBuyPrice(prices)
	priceAdj, err := granularity.AdjustToStep(price, b.rules.TickSize)
	if err != nil {
		return err
	}
	priceStr, err := granularity.FormatToStep(price, b.rules.TickSize)
	if err != nil {
		return err
	}

	qty, qtyStr, err := b.orderQuantity(b.cfg.TradedQuantity)
	if err != nil {
		return err
	}
	if quoteFree < qty*priceAdj {
		logger.S().Warnf("[%s] %s余额 %.8f 不足以买入 %.8f @ %.8f",
			b.botID, b.cfg.QuoteCode(), quoteFree, qty, priceAdj)
		return ErrInsufficientBalance
	}

	logger.S().Infof("[%s] 挂限价买单: %s @ %s", b.botID, qtyStr, priceStr)
	exec, err := b.executor.LimitBuy(qtyStr, priceStr)
	if err != nil {
		logger.S().Errorf("[%s] 限价买单被拒: %v", b.botID, err)
		return err
	}
	b.recordTrade(models.Buy, priceAdj, qty, exec)
	return nil
}

// limitSell 在持仓且策略看空时挂限价卖单
func (b *TraderBot) limitSell() error {
	b.stateMu.RLock()
	prices := b.prices
	lastBuy := b.lastBuyPrice
	held := b.balances[b.cfg.StockCode].Total()
	b.stateMu.RUnlock()

	if held < b.rules.StepSize {
		return ErrInsufficientBalance
	}

	price := b.limitSellPrice(prices, lastBuy)
	priceAdj, err := granularity.AdjustToStep(price, b.rules.TickSize)
	if err != nil {
		return err
	}
	priceStr, err := granularity.FormatToStep(price, b.rules.TickSize)
	if err != nil {
		return err
	}

	qty, qtyStr, err := b.orderQuantity(held)
	if err != nil {
		return err
	}

	logger.S().Infof("[%s] 挂限价卖单: %s @ %s", b.botID, qtyStr, priceStr)
	exec, err := b.executor.LimitSell(qtyStr, priceStr)
	if err != nil {
		logger.S().Errorf("[%s] 限价卖单被拒: %v", b.botID, err)
		return err
	}
	b.recordTrade(models.Sell, priceAdj, qty, exec)
	return nil
}

// marketBuy 以市价买入目标数量
func (b *TraderBot) marketBuy() error {
	b.stateMu.RLock()
	prices := b.prices
	quoteFree := b.balances[b.cfg.QuoteCode()].Free
	b.stateMu.RUnlock()

	lastClose := prices.LastClose()
	qty, qtyStr, err := b.orderQuantity(b.cfg.TradedQuantity)
	if err != nil {
		return err
	}
	if quoteFree < qty*lastClose {
		logger.S().Warnf("[%s] %s余额 %.8f 不足以市价买入 %.8f (约 %.8f)",
			b.botID, b.cfg.QuoteCode(), quoteFree, qty, qty*lastClose)
		return ErrInsufficientBalance
	}

	logger.S().Infof("[%s] 市价买入: %s", b.botID, qtyStr)
	exec, err := b.executor.MarketBuy(qtyStr, lastClose)
	if err != nil {
		logger.S().Errorf("[%s] 市价买单被拒: %v", b.botID, err)
		return err
	}
	b.recordTrade(models.Buy, lastClose, qty, exec)
	return nil
}

// marketSell 以市价清空全部持仓。清仓路径不扣减部分成交折扣：
// 卖出数量始终是当前全部余额，只按stepSize向下取整。
func (b *TraderBot) marketSell() error {
	b.stateMu.RLock()
	prices := b.prices
	held := b.balances[b.cfg.StockCode].Total()
	b.stateMu.RUnlock()

	if held < b.rules.StepSize {
		return ErrInsufficientBalance
	}

	qty, err := granularity.AdjustToStep(held, b.rules.StepSize)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return ErrZeroQuantity
	}
	qtyStr, err := granularity.FormatToStep(held, b.rules.StepSize)
	if err != nil {
		return err
	}

	logger.S().Infof("[%s] 市价卖出: %s", b.botID, qtyStr)
	exec, err := b.executor.MarketSell(qtyStr, prices.LastClose())
	if err != nil {
		logger.S().Errorf("[%s] 市价卖单被拒: %v", b.botID, err)
		return err
	}
	b.recordTrade(models.Sell, prices.LastClose(), qty, exec)
	return nil
}

// recordTrade 把订单写入成交流水。有成交回报时按实际均价记账，
// 限价单尚未成交时按挂单价记账。写入失败只记日志。
func (b *TraderBot) recordTrade(side models.Side, price, qty float64, exec *models.Execution) {
	if exec != nil && exec.ExecutedQty > 0 {
		if avg := exec.AvgPrice(); avg > 0 {
			price = avg
		}
		qty = exec.ExecutedQty
	}

	rec := &models.TradeRecord{
		BotID:      b.botID,
		Symbol:     b.cfg.OperationCode,
		Side:       side,
		Price:      price,
		Quantity:   qty,
		TotalValue: price * qty,
		Simulated:  b.simulated,
		Timestamp:  time.Now(),
	}
	if err := b.trades.AppendTrade(rec); err != nil {
		logger.S().Warnf("[%s] 成交流水写入失败: %v", b.botID, err)
	}
}
