package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/exchange"
	"github.com/02ricardosouza/robot02-cripto/internal/executor"
	"github.com/02ricardosouza/robot02-cripto/internal/granularity"
	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
	"github.com/02ricardosouza/robot02-cripto/internal/store"
	"github.com/02ricardosouza/robot02-cripto/internal/strategy"
)

const (
	// cancelSettleDelay 是撤单后等待交易所结算的时间
	cancelSettleDelay = 2 * time.Second
	// statusInterval 是后台状态打印的间隔
	statusInterval = 30 * time.Second
)

// TraderBot 是单个交易对的决策引擎。一个实例只有一个顺序执行的
// 主循环，所有交易所调用在循环内阻塞完成，同一实例的两个周期
// 绝不并发。
type TraderBot struct {
	botID     string
	cfg       *models.Config
	client    exchange.Client
	executor  executor.OrderExecutor
	trades    store.TradeRepository
	strategy  strategy.Strategy
	feed      *exchange.PriceFeed // 可选，仅用于状态展示
	simulated bool

	rules models.SymbolRules

	// 周期内状态，只在主循环中写入；stateMu 保护来自监控与
	// 注册表的并发读取
	stateMu         sync.RWMutex
	balances        map[string]models.Balance
	prices          *series.PriceSeries
	position        models.PositionState
	lastBuyPrice    float64
	lastSellPrice   float64
	partialDiscount float64
	lastOperation   models.Side
	timeToSleep     time.Duration

	runMu       sync.Mutex
	isRunning   bool
	stopChannel chan struct{}
}

// NewTraderBot 创建机器人实例并解析交易对的精度规则。
// 拿不到规则或规则非法属于构造期致命错误，机器人不会启动。
func NewTraderBot(botID string, cfg *models.Config, client exchange.Client, exec executor.OrderExecutor,
	trades store.TradeRepository, strat strategy.Strategy, feed *exchange.PriceFeed, simulated bool) (*TraderBot, error) {

	rules, err := client.GetSymbolRules(cfg.OperationCode)
	if err != nil {
		return nil, fmt.Errorf("无法获取交易对 %s 的规则: %w", cfg.OperationCode, err)
	}
	if rules.StepSize <= 0 || rules.TickSize <= 0 {
		return nil, fmt.Errorf("交易对 %s 的精度规则非法 (stepSize=%v, tickSize=%v): %w",
			cfg.OperationCode, rules.StepSize, rules.TickSize, granularity.ErrInvalidStep)
	}

	b := &TraderBot{
		botID:       botID,
		cfg:         cfg,
		client:      client,
		executor:    exec,
		trades:      trades,
		strategy:    strat,
		feed:        feed,
		simulated:   simulated,
		rules:       *rules,
		balances:    make(map[string]models.Balance),
		position:    models.PositionFlat,
		timeToSleep: time.Duration(cfg.TradeIntervalSec) * time.Second,
	}
	logger.S().Infof("[%s] 机器人初始化完成: %s/%s, stepSize=%v, tickSize=%v",
		botID, cfg.StockCode, cfg.OperationCode, rules.StepSize, rules.TickSize)
	return b, nil
}

// ID 返回机器人的唯一标识
func (b *TraderBot) ID() string { return b.botID }

// Symbol 返回交易对代码
func (b *TraderBot) Symbol() string { return b.cfg.OperationCode }

// Simulated 返回是否为模拟模式
func (b *TraderBot) Simulated() bool { return b.simulated }

// IsRunning 返回主循环是否在运行
func (b *TraderBot) IsRunning() bool {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	return b.isRunning
}

// Position 返回最近一次周期推导出的仓位状态
func (b *TraderBot) Position() models.PositionState {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.position
}

// LastBuyPrice 返回最近一次完全成交的买入均价
func (b *TraderBot) LastBuyPrice() float64 {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.lastBuyPrice
}

// LastSellPrice 返回最近一次完全成交的卖出均价
func (b *TraderBot) LastSellPrice() float64 {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.lastSellPrice
}

// Run 是机器人的主循环，应在独立的goroutine中调用。
// 周期级异常只会被记录并按固定延迟重试，循环不会因此终止；
// 只有显式的停止请求才能结束循环。
func (b *TraderBot) Run() error {
	b.runMu.Lock()
	if b.isRunning {
		b.runMu.Unlock()
		return ErrAlreadyRunning
	}
	b.isRunning = true
	b.stopChannel = make(chan struct{})
	b.runMu.Unlock()

	if b.feed != nil {
		b.feed.Start()
	}
	go b.monitorStatus()

	logger.S().Infof("[%s] 机器人启动: %s", b.botID, b.cfg.OperationCode)
	retryDelay := time.Duration(b.cfg.RetryDelaySec) * time.Second

	for {
		select {
		case <-b.stopChannel:
			logger.S().Infof("[%s] 收到停止请求，主循环退出。", b.botID)
			return nil
		default:
		}

		if err := b.executeCycle(); err != nil {
			logger.S().Errorf("[%s] 周期执行失败: %v，%v后重试...", b.botID, err, retryDelay)
			if !b.sleep(retryDelay) {
				return nil
			}
			continue
		}

		if !b.sleep(b.sleepDuration()) {
			return nil
		}
	}
}

// sleep 等待给定时长，期间收到停止请求时返回false
func (b *TraderBot) sleep(d time.Duration) bool {
	select {
	case <-b.stopChannel:
		return false
	case <-time.After(d):
		return true
	}
}

func (b *TraderBot) sleepDuration() time.Duration {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.timeToSleep
}

// Stop 请求停止机器人：停止信号在下一个周期开头生效，同时尽力
// 取消交易所侧的所有挂单。
func (b *TraderBot) Stop() {
	b.runMu.Lock()
	if !b.isRunning {
		b.runMu.Unlock()
		return
	}
	b.isRunning = false
	close(b.stopChannel)
	b.runMu.Unlock()

	if b.feed != nil {
		b.feed.Stop()
	}

	if err := b.client.CancelAllOpenOrders(b.cfg.OperationCode); err != nil {
		logger.S().Warnf("[%s] 停止时取消挂单失败: %v", b.botID, err)
	} else {
		logger.S().Infof("[%s] 已取消所有挂单。", b.botID)
	}
}

// executeCycle 执行一个完整的决策周期
func (b *TraderBot) executeCycle() error {
	logger.S().Infof("[%s] ------------------------------------------------", b.botID)
	logger.S().Infof("[%s] 周期开始 %s", b.botID, time.Now().Format("2006-01-02 15:04:05"))

	if err := b.updateAllData(); err != nil {
		return err
	}

	b.stateMu.RLock()
	position := b.position
	prices := b.prices
	stockBalance := b.balances[b.cfg.StockCode].Total()
	b.stateMu.RUnlock()

	logger.S().Infof("[%s] 当前仓位: %s, %s余额: %.8f, 最近买价: %.8f, 最近卖价: %.8f",
		b.botID, position, b.cfg.StockCode, stockBalance, b.LastBuyPrice(), b.LastSellPrice())

	// 止损哨兵先于策略运行，触发后本周期立即结束
	triggered, err := b.stopLossTrigger()
	if err != nil {
		logger.S().Errorf("[%s] 止损执行失败: %v", b.botID, err)
	}
	if triggered {
		b.setSleep(time.Duration(b.cfg.OrderDelaySec) * time.Second)
		return nil
	}

	decision := b.strategy.Decide(prices, position)
	logger.S().Infof("[%s] 决策结论: %s", b.botID, decision)

	// 下单前先对账：累计同方向挂单的已执行数量作为数量折扣，
	// 然后撤掉旧单重新挂
	b.reconcile(decision)

	ordered := false
	switch {
	case position == models.PositionFlat && decision == models.DecisionBuy:
		if err := b.limitBuy(); err != nil {
			b.logOrderError(models.Buy, err)
		} else {
			ordered = true
			b.setLastOperation(models.Buy)
		}
	case position == models.PositionHolding && decision == models.DecisionSell:
		if err := b.limitSell(); err != nil {
			b.logOrderError(models.Sell, err)
		} else {
			ordered = true
			b.setLastOperation(models.Sell)
		}
	default:
		logger.S().Infof("[%s] 维持现状 (%s)", b.botID, position)
	}

	if ordered {
		b.setSleep(time.Duration(b.cfg.OrderDelaySec) * time.Second)
	} else {
		b.setSleep(time.Duration(b.cfg.TradeIntervalSec) * time.Second)
	}
	return nil
}

// logOrderError 把下单路径的本地失败降级为日志，周期继续
func (b *TraderBot) logOrderError(side models.Side, err error) {
	logger.S().Warnf("[%s] %s 订单未发送: %v", b.botID, side, err)
}

func (b *TraderBot) setSleep(d time.Duration) {
	b.stateMu.Lock()
	b.timeToSleep = d
	b.stateMu.Unlock()
}

func (b *TraderBot) setLastOperation(side models.Side) {
	b.stateMu.Lock()
	b.lastOperation = side
	b.stateMu.Unlock()
}

// monitorStatus 定期打印机器人状态，直到收到停止信号
func (b *TraderBot) monitorStatus() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChannel:
			return
		case <-ticker.C:
			b.printStatus()
		}
	}
}

func (b *TraderBot) printStatus() {
	b.stateMu.RLock()
	position := b.position
	lastBuy := b.lastBuyPrice
	lastSell := b.lastSellPrice
	lastOp := b.lastOperation
	b.stateMu.RUnlock()

	livePrice := 0.0
	if b.feed != nil {
		livePrice = b.feed.Last()
	}

	if lastOp == "" {
		lastOp = "无"
	}
	logger.S().Infof("[%s] ========== 状态 ==========", b.botID)
	logger.S().Infof("[%s] 仓位: %s | 上次操作: %s | 实时价: %.8f | 最近买价: %.8f | 最近卖价: %.8f",
		b.botID, position, lastOp, livePrice, lastBuy, lastSell)
}
