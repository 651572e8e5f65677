package bot

import (
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

// stopLossTrigger 是每个周期先于策略运行的止损哨兵。
// 只有在持仓且最近两根已收盘K线的收盘价都跌破止损线时才触发，
// 单根K线的瞬间下探不会平仓。触发后撤掉全部挂单、等待结算，
// 再以市价卖出全部持仓，本周期跳过策略。
func (b *TraderBot) stopLossTrigger() (bool, error) {
	b.stateMu.RLock()
	position := b.position
	lastBuy := b.lastBuyPrice
	prices := b.prices
	b.stateMu.RUnlock()

	if position != models.PositionHolding || lastBuy <= 0 {
		return false, nil
	}
	if prices == nil || prices.Len() < 2 {
		return false, nil
	}

	threshold := lastBuy * (1 - b.cfg.StopLossRate)
	lastClose := prices.LastClose()
	prevClose := prices.PrevClose()

	if lastClose >= threshold || prevClose >= threshold {
		return false, nil
	}

	logger.S().Warnf("[%s] 止损触发! 最近两根收盘价 %.8f / %.8f 均低于止损线 %.8f (买入价 %.8f, 止损率 %.2f%%)",
		b.botID, prevClose, lastClose, threshold, lastBuy, b.cfg.StopLossRate*100)

	if err := b.client.CancelAllOpenOrders(b.cfg.OperationCode); err != nil {
		logger.S().Warnf("[%s] 止损前撤销挂单失败: %v", b.botID, err)
	}
	// 挂单已全部撤销，上个周期残留的数量折扣随之失效
	b.stateMu.Lock()
	b.partialDiscount = 0
	b.stateMu.Unlock()
	// 等待撤单结算，避免卖出数量与可用余额不一致
	time.Sleep(cancelSettleDelay)

	if err := b.marketSell(); err != nil {
		return true, err
	}

	b.setLastOperation(models.Sell)
	logger.S().Warnf("[%s] 止损完成，已市价清仓。", b.botID)
	return true, nil
}
