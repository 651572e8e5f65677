package executor

import "github.com/02ricardosouza/robot02-cripto/internal/models"

// OrderExecutor 是实盘与模拟模式的切换点。引擎只持有这个接口，
// 两种实现对同一快照必须做出完全一致的决策，差别仅在于副作用：
// 实盘把订单发给交易所，模拟只记账。
//
// 市价单没有用户指定价格，refPrice 传入最新收盘价，供模拟实现
// 作为成交价使用；实盘实现忽略它。
type OrderExecutor interface {
	MarketBuy(quantity string, refPrice float64) (*models.Execution, error)
	MarketSell(quantity string, refPrice float64) (*models.Execution, error)
	LimitBuy(quantity, price string) (*models.Execution, error)
	LimitSell(quantity, price string) (*models.Execution, error)
}
