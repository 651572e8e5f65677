package models

import (
	"fmt"
	"time"
)

// Config 结构体定义了机器人的所有配置参数
type Config struct {
	IsTestnet bool      `json:"is_testnet"` // 是否使用币安测试网
	DBPath    string    `json:"db_path"`    // 交易历史数据库路径
	LogConfig LogConfig `json:"log"`        // 日志配置

	StockCode      string  `json:"stock_code"`      // 基础资产代码，如 "BTC"
	OperationCode  string  `json:"operation_code"`  // 交易对代码，如 "BTCBRL"
	TradedQuantity float64 `json:"traded_quantity"` // 每次操作的基础资产数量
	CandlePeriod   string  `json:"candle_period"`   // K线周期，如 "5m"、"15m"

	VolatilityFactor   float64 `json:"volatility_factor"`    // 波动率因子，用于提前判断均线交叉
	AcceptableLossRate float64 `json:"acceptable_loss_rate"` // 卖出时可接受的最大亏损比例 (0.005 = 0.5%)
	StopLossRate       float64 `json:"stop_loss_rate"`       // 止损比例 (0.03 = 3%)
	FallbackActivated  bool    `json:"fallback_activated"`   // 是否启用回退策略（允许在上涨行情中进场）
	TradeIntervalSec   int     `json:"trade_interval_sec"`   // 常规轮询间隔（秒）
	OrderDelaySec      int     `json:"order_delay_sec"`      // 下单后的轮询间隔（秒）
	RetryDelaySec      int     `json:"retry_delay_sec"`      // 周期异常后的重试延迟（秒）
	OrderHistoryLimit  int     `json:"order_history_limit"`  // 查询历史订单的数量上限
	SimulationCash     float64 `json:"simulation_cash"`      // 模拟模式的初始计价货币资金
}

// QuoteCode 返回计价货币代码，如 BTCBRL -> BRL
func (c *Config) QuoteCode() string {
	if len(c.OperationCode) > len(c.StockCode) {
		return c.OperationCode[len(c.StockCode):]
	}
	return c.OperationCode
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level"`       // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output"`      // 输出模式: "console", "file", "both"
	File       string `json:"file"`        // 日志文件路径
	MaxSize    int    `json:"max_size"`    // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age"`     // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress"`    // 是否压缩旧日志文件
}

// Side 定义了交易方向的类型
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Decision 是策略层的输出
type Decision int

const (
	DecisionInconclusive Decision = iota // 无法判断，维持现状
	DecisionBuy
	DecisionSell
)

func (d Decision) String() string {
	switch d {
	case DecisionBuy:
		return "BUY"
	case DecisionSell:
		return "SELL"
	default:
		return "INCONCLUSIVE"
	}
}

// PositionState 表示当前仓位状态。
// 每个周期都从最新余额重新推导，余额是唯一权威来源，绝不信任缓存的标志位。
type PositionState int

const (
	PositionFlat    PositionState = iota // 空仓（余额小于最小交易单位）
	PositionHolding                      // 持仓
)

func (p PositionState) String() string {
	if p == PositionHolding {
		return "HOLDING"
	}
	return "FLAT"
}

// Candle 定义了单根K线
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Balance 定义了账户中特定资产的余额信息
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Total 返回可用与冻结余额之和
func (b Balance) Total() float64 {
	return b.Free + b.Locked
}

// Order 定义了交易所返回的订单信息
type Order struct {
	Symbol             string
	OrderID            int64
	Side               Side
	Type               string
	Price              float64
	OrigQty            float64
	ExecutedQty        float64
	CumulativeQuoteQty float64
	Status             string
	Time               int64
}

// SymbolRules 保存了交易对的精度规则
type SymbolRules struct {
	Symbol   string
	TickSize float64 // 最小价格增量
	StepSize float64 // 最小数量增量
}

// OrderIntent 是执行引擎在单个周期内消费的下单参数，用完即弃
type OrderIntent struct {
	Side     Side
	Type     string // MARKET 或 LIMIT
	Quantity string // 已按 stepSize 调整的数量字符串
	Price    string // LIMIT 单的价格，已按 tickSize 调整
}

// Execution 是订单执行后的回报，模拟与实盘共用同一结构
type Execution struct {
	Symbol             string
	Side               Side
	Type               string
	ExecutedQty        float64
	CumulativeQuoteQty float64
	Status             string
}

// AvgPrice 按成交额/成交量计算实际成交均价，没有成交时返回0
func (e *Execution) AvgPrice() float64 {
	if e.ExecutedQty == 0 {
		return 0
	}
	return e.CumulativeQuoteQty / e.ExecutedQty
}

// TradeRecord 是写入交易历史存储的一条记录，只追加，不修改
type TradeRecord struct {
	BotID      string    `json:"bot_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	TotalValue float64   `json:"total_value"`
	Simulated  bool      `json:"simulated"`
	Timestamp  time.Time `json:"timestamp"`
}

// APIError 定义了交易所API返回的错误信息结构
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Error 方法使得 APIError 实现了 error 接口
func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: code=%d, msg=%s", e.Code, e.Msg)
}
