package bot

import (
	"fmt"
	"sort"
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
)

// updateAllData 重建本周期的全部快照：余额、K线序列、仓位和
// 最近成交价。任何一步失败都会使整个周期失败并进入重试。
func (b *TraderBot) updateAllData() error {
	rawBalances, err := b.client.GetAccountBalances()
	if err != nil {
		return fmt.Errorf("获取账户余额失败: %w", err)
	}
	balances := make(map[string]models.Balance, len(rawBalances))
	for _, bal := range rawBalances {
		balances[bal.Asset] = bal
	}

	candles, err := b.client.GetCandles(b.cfg.OperationCode, b.cfg.CandlePeriod, series.WindowSize)
	if err != nil {
		return fmt.Errorf("获取K线失败: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("交易对 %s 没有返回任何K线", b.cfg.OperationCode)
	}
	prices := series.New(candles)

	// 仓位每周期由余额重新推导，从不缓存：持仓数量达到一个
	// stepSize 即视为持有
	position := models.PositionFlat
	if balances[b.cfg.StockCode].Total() >= b.rules.StepSize {
		position = models.PositionHolding
	}

	// 最近成交价取不到时保留上一周期的值，只记日志不让周期失败
	lastBuy, err := b.LastFilledPrice(models.Buy)
	if err != nil {
		logger.S().Warnf("[%s] 无法刷新最近买入价: %v", b.botID, err)
		lastBuy = b.LastBuyPrice()
	}
	lastSell, err := b.LastFilledPrice(models.Sell)
	if err != nil {
		logger.S().Warnf("[%s] 无法刷新最近卖出价: %v", b.botID, err)
		lastSell = b.LastSellPrice()
	}

	b.stateMu.Lock()
	b.balances = balances
	b.prices = prices
	b.position = position
	b.lastBuyPrice = lastBuy
	b.lastSellPrice = lastSell
	b.stateMu.Unlock()
	return nil
}

// LastFilledPrice 返回给定方向最近一笔完全成交订单的实际均价，
// 按累计成交额除以累计成交量计算。没有成交记录时返回0。
func (b *TraderBot) LastFilledPrice(side models.Side) (float64, error) {
	orders, err := b.client.GetOrderHistory(b.cfg.OperationCode, b.cfg.OrderHistoryLimit)
	if err != nil {
		return 0, err
	}

	filled := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == "FILLED" && o.Side == side {
			filled = append(filled, o)
		}
	}
	if len(filled) == 0 {
		return 0, nil
	}
	sort.Slice(filled, func(i, j int) bool { return filled[i].Time > filled[j].Time })

	last := filled[0]
	if last.ExecutedQty <= 0 {
		return 0, nil
	}
	return last.CumulativeQuoteQty / last.ExecutedQty, nil
}

// reconcile 在下单前处理未完成挂单：累计与本次决策同方向挂单的
// 已成交部分作为数量折扣，然后撤单重新定价。只有存在同方向挂单
// 时才撤单，避免无谓地拆掉另一方向的有效挂单。
// 对账失败只记日志，折扣归零，不阻止后续下单。
func (b *TraderBot) reconcile(decision models.Decision) {
	// 折扣每周期重算，失败时保持为零
	b.stateMu.Lock()
	b.partialDiscount = 0
	b.stateMu.Unlock()

	var side models.Side
	switch decision {
	case models.DecisionBuy:
		side = models.Buy
	case models.DecisionSell:
		side = models.Sell
	default:
		return
	}

	open, err := b.client.GetOpenOrders(b.cfg.OperationCode)
	if err != nil {
		logger.S().Warnf("[%s] 对账失败，无法获取挂单: %v", b.botID, err)
		return
	}

	sameSide := 0
	discount := 0.0
	bestPartialBuy := 0.0
	for _, o := range open {
		if o.Side != side {
			continue
		}
		sameSide++
		if o.ExecutedQty <= 0 {
			continue
		}
		discount += o.ExecutedQty
		logger.S().Infof("[%s] 挂单 %d 已部分成交 %.8f @ %.8f，计入数量折扣",
			b.botID, o.OrderID, o.ExecutedQty, o.Price)
		// 部分成交买单里最高的挂单价是更贴近实情的买入参考价
		if side == models.Buy && o.Price > bestPartialBuy {
			bestPartialBuy = o.Price
		}
	}
	if sameSide == 0 {
		return
	}

	for _, o := range open {
		if err := b.client.CancelOrder(b.cfg.OperationCode, o.OrderID); err != nil {
			logger.S().Warnf("[%s] 撤销挂单 %d 失败: %v", b.botID, o.OrderID, err)
		}
	}
	// 等待撤单结算后再重新挂单
	time.Sleep(cancelSettleDelay)

	b.stateMu.Lock()
	b.partialDiscount = discount
	if bestPartialBuy > 0 {
		b.lastBuyPrice = bestPartialBuy
	}
	b.stateMu.Unlock()

	if discount > 0 {
		logger.S().Infof("[%s] 本周期数量折扣: %.8f", b.botID, discount)
	}
	if bestPartialBuy > 0 {
		logger.S().Infof("[%s] 买入参考价更新为部分成交挂单价: %.8f", b.botID, bestPartialBuy)
	}
}
