package executor

import (
	"github.com/02ricardosouza/robot02-cripto/internal/exchange"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

// LiveExecutor 实现 OrderExecutor，把订单提交到真实交易所
type LiveExecutor struct {
	client exchange.Client
	symbol string
}

// NewLiveExecutor 创建实盘执行器
func NewLiveExecutor(client exchange.Client, symbol string) *LiveExecutor {
	return &LiveExecutor{client: client, symbol: symbol}
}

func (e *LiveExecutor) place(intent models.OrderIntent) (*models.Execution, error) {
	return e.client.PlaceOrder(e.symbol, intent)
}

// MarketBuy 提交市价买单，refPrice 仅供模拟实现使用，这里忽略
func (e *LiveExecutor) MarketBuy(quantity string, _ float64) (*models.Execution, error) {
	return e.place(models.OrderIntent{Side: models.Buy, Type: "MARKET", Quantity: quantity})
}

// MarketSell 提交市价卖单
func (e *LiveExecutor) MarketSell(quantity string, _ float64) (*models.Execution, error) {
	return e.place(models.OrderIntent{Side: models.Sell, Type: "MARKET", Quantity: quantity})
}

// LimitBuy 提交限价买单 (GTC)
func (e *LiveExecutor) LimitBuy(quantity, price string) (*models.Execution, error) {
	return e.place(models.OrderIntent{Side: models.Buy, Type: "LIMIT", Quantity: quantity, Price: price})
}

// LimitSell 提交限价卖单 (GTC)
func (e *LiveExecutor) LimitSell(quantity, price string) (*models.Execution, error) {
	return e.place(models.OrderIntent{Side: models.Sell, Type: "LIMIT", Quantity: quantity, Price: price})
}
