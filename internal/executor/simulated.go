package executor

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

// SimulatedExecutor 实现 OrderExecutor，把所有订单写入内存中的
// 虚拟账本 {现金, 持仓数量}，不触碰真实资金。成交假设：市价单按
// refPrice 全部成交，限价单按限价立即全部成交。
type SimulatedExecutor struct {
	symbol string

	mu   sync.Mutex
	cash float64
	held float64
}

// NewSimulatedExecutor 创建模拟执行器，initialCash 为虚拟起始资金
func NewSimulatedExecutor(symbol string, initialCash float64) *SimulatedExecutor {
	return &SimulatedExecutor{symbol: symbol, cash: initialCash}
}

// Ledger 返回当前虚拟账本快照 (现金, 持仓数量)
func (e *SimulatedExecutor) Ledger() (cash, held float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash, e.held
}

func (e *SimulatedExecutor) fill(side models.Side, orderType, quantity string, price float64) (*models.Execution, error) {
	qty, err := strconv.ParseFloat(quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("非法的数量字符串 %q: %w", quantity, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("模拟成交需要正的参考价格, 当前值: %v", price)
	}

	total := qty * price

	e.mu.Lock()
	if side == models.Buy {
		e.cash -= total
		e.held += qty
	} else {
		e.cash += total
		e.held -= qty
	}
	e.mu.Unlock()

	return &models.Execution{
		Symbol:             e.symbol,
		Side:               side,
		Type:               orderType,
		ExecutedQty:        qty,
		CumulativeQuoteQty: total,
		Status:             "FILLED",
	}, nil
}

func (e *SimulatedExecutor) fillLimit(side models.Side, quantity, price string) (*models.Execution, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return nil, fmt.Errorf("非法的价格字符串 %q: %w", price, err)
	}
	return e.fill(side, "LIMIT", quantity, p)
}

// MarketBuy 按参考价格记一笔虚拟买入
func (e *SimulatedExecutor) MarketBuy(quantity string, refPrice float64) (*models.Execution, error) {
	return e.fill(models.Buy, "MARKET", quantity, refPrice)
}

// MarketSell 按参考价格记一笔虚拟卖出
func (e *SimulatedExecutor) MarketSell(quantity string, refPrice float64) (*models.Execution, error) {
	return e.fill(models.Sell, "MARKET", quantity, refPrice)
}

// LimitBuy 按限价记一笔虚拟买入
func (e *SimulatedExecutor) LimitBuy(quantity, price string) (*models.Execution, error) {
	return e.fillLimit(models.Buy, quantity, price)
}

// LimitSell 按限价记一笔虚拟卖出
func (e *SimulatedExecutor) LimitSell(quantity, price string) (*models.Execution, error) {
	return e.fillLimit(models.Sell, quantity, price)
}
