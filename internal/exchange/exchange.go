package exchange

import "github.com/02ricardosouza/robot02-cripto/internal/models"

// Client 定义了决策引擎依赖的交易所能力的最小切面。
// 引擎只通过这个接口与交易所交互，方便在测试中替换。
type Client interface {
	GetAccountBalances() ([]models.Balance, error)
	GetCandles(symbol, interval string, limit int) ([]models.Candle, error)
	GetOpenOrders(symbol string) ([]models.Order, error)
	GetOrderHistory(symbol string, limit int) ([]models.Order, error)
	GetSymbolRules(symbol string) (*models.SymbolRules, error)
	PlaceOrder(symbol string, intent models.OrderIntent) (*models.Execution, error)
	CancelOrder(symbol string, orderID int64) error
	CancelAllOpenOrders(symbol string) error
}
