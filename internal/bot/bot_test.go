package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/series"
	"github.com/02ricardosouza/robot02-cripto/internal/strategy"
)

// mockClient is a hand-written mock of the exchange.Client interface.
type mockClient struct {
	balances   []models.Balance
	candles    []models.Candle
	openOrders []models.Order
	history    []models.Order
	rules      models.SymbolRules

	openOrdersErr error
	historyErr    error

	canceledIDs     []int64
	cancelAllCalled bool
}

func (m *mockClient) GetAccountBalances() ([]models.Balance, error) {
	return m.balances, nil
}

func (m *mockClient) GetCandles(symbol, interval string, limit int) ([]models.Candle, error) {
	return m.candles, nil
}

func (m *mockClient) GetOpenOrders(symbol string) ([]models.Order, error) {
	if m.openOrdersErr != nil {
		return nil, m.openOrdersErr
	}
	return m.openOrders, nil
}

func (m *mockClient) GetOrderHistory(symbol string, limit int) ([]models.Order, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *mockClient) GetSymbolRules(symbol string) (*models.SymbolRules, error) {
	rules := m.rules
	return &rules, nil
}

func (m *mockClient) PlaceOrder(symbol string, intent models.OrderIntent) (*models.Execution, error) {
	return &models.Execution{Symbol: symbol, Side: intent.Side, Type: intent.Type, Status: "NEW"}, nil
}

func (m *mockClient) CancelOrder(symbol string, orderID int64) error {
	m.canceledIDs = append(m.canceledIDs, orderID)
	return nil
}

func (m *mockClient) CancelAllOpenOrders(symbol string) error {
	m.cancelAllCalled = true
	return nil
}

// mockExecutor records every order it receives.
type mockExecutor struct {
	marketBuys  []string
	marketSells []string
	limitBuys   [][2]string // quantity, price
	limitSells  [][2]string
}

func (m *mockExecutor) MarketBuy(quantity string, refPrice float64) (*models.Execution, error) {
	m.marketBuys = append(m.marketBuys, quantity)
	return &models.Execution{Side: models.Buy, Type: "MARKET", Status: "FILLED"}, nil
}

func (m *mockExecutor) MarketSell(quantity string, refPrice float64) (*models.Execution, error) {
	m.marketSells = append(m.marketSells, quantity)
	return &models.Execution{Side: models.Sell, Type: "MARKET", Status: "FILLED"}, nil
}

func (m *mockExecutor) LimitBuy(quantity, price string) (*models.Execution, error) {
	m.limitBuys = append(m.limitBuys, [2]string{quantity, price})
	return &models.Execution{Side: models.Buy, Type: "LIMIT", Status: "NEW"}, nil
}

func (m *mockExecutor) LimitSell(quantity, price string) (*models.Execution, error) {
	m.limitSells = append(m.limitSells, [2]string{quantity, price})
	return &models.Execution{Side: models.Sell, Type: "LIMIT", Status: "NEW"}, nil
}

// mockTradeRepo records appended trades in memory.
type mockTradeRepo struct {
	records []models.TradeRecord
}

func (m *mockTradeRepo) AppendTrade(record *models.TradeRecord) error {
	m.records = append(m.records, *record)
	return nil
}

func (m *mockTradeRepo) ListTrades(symbol string) ([]models.TradeRecord, error) {
	return m.records, nil
}

func (m *mockTradeRepo) Close() error { return nil }

func testConfig() *models.Config {
	return &models.Config{
		StockCode:          "BTC",
		OperationCode:      "BTCBRL",
		TradedQuantity:     1.0,
		CandlePeriod:       "5m",
		VolatilityFactor:   0.5,
		AcceptableLossRate: 0.005,
		StopLossRate:       0.03,
		TradeIntervalSec:   300,
		OrderDelaySec:      900,
		RetryDelaySec:      60,
		OrderHistoryLimit:  100,
	}
}

// flatCandles builds n candles closing at the given price.
func flatCandles(n int, close, volume float64) []models.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Close:    close,
			Volume:   volume,
		}
	}
	return candles
}

func newTestBot(t *testing.T, client *mockClient, exec *mockExecutor) (*TraderBot, *mockTradeRepo) {
	t.Helper()
	if client.rules.StepSize == 0 {
		client.rules = models.SymbolRules{Symbol: "BTCBRL", StepSize: 0.001, TickSize: 0.01}
	}
	repo := &mockTradeRepo{}
	strat := strategy.NewComposite(nil, nil) // always inconclusive
	b, err := NewTraderBot("test-bot", testConfig(), client, exec, repo, strat, nil, true)
	require.NoError(t, err)
	return b, repo
}

func TestNewTraderBotRejectsInvalidRules(t *testing.T) {
	client := &mockClient{rules: models.SymbolRules{StepSize: 0, TickSize: 0.01}}
	_, err := NewTraderBot("test-bot", testConfig(), client, &mockExecutor{}, &mockTradeRepo{},
		strategy.NewComposite(nil, nil), nil, true)
	assert.Error(t, err)
}

func TestPositionDerivedFromBalance(t *testing.T) {
	client := &mockClient{
		candles: flatCandles(50, 100, 10),
		rules:   models.SymbolRules{StepSize: 0.001, TickSize: 0.01},
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	// A balance of exactly one step is holding.
	client.balances = []models.Balance{{Asset: "BTC", Free: 0.001}}
	require.NoError(t, b.updateAllData())
	assert.Equal(t, models.PositionHolding, b.Position())

	// Just below one step is flat, dust does not count.
	client.balances = []models.Balance{{Asset: "BTC", Free: 0.0009999}}
	require.NoError(t, b.updateAllData())
	assert.Equal(t, models.PositionFlat, b.Position())

	// Locked balance counts towards the position.
	client.balances = []models.Balance{{Asset: "BTC", Free: 0.0004, Locked: 0.0006}}
	require.NoError(t, b.updateAllData())
	assert.Equal(t, models.PositionHolding, b.Position())
}

func TestLastFilledPriceUsesActualAverage(t *testing.T) {
	client := &mockClient{
		history: []models.Order{
			// Older fill, must be ignored.
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 1, CumulativeQuoteQty: 90, Time: 100},
			// Most recent fill at an average of 102.5.
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 2, CumulativeQuoteQty: 205, Time: 200},
			// Canceled orders never count.
			{Side: models.Buy, Status: "CANCELED", ExecutedQty: 1, CumulativeQuoteQty: 500, Time: 300},
			// Other side never counts.
			{Side: models.Sell, Status: "FILLED", ExecutedQty: 1, CumulativeQuoteQty: 110, Time: 400},
		},
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	price, err := b.LastFilledPrice(models.Buy)
	require.NoError(t, err)
	assert.InDelta(t, 102.5, price, 1e-9)

	price, err = b.LastFilledPrice(models.Sell)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, price, 1e-9)
}

func TestLastFilledPriceNoHistory(t *testing.T) {
	b, _ := newTestBot(t, &mockClient{}, &mockExecutor{})
	price, err := b.LastFilledPrice(models.Buy)
	require.NoError(t, err)
	assert.Equal(t, 0.0, price)
}

func TestStopLossTriggersOnTwoClosesBelow(t *testing.T) {
	candles := flatCandles(50, 100, 10)
	candles[48].Close = 96
	candles[49].Close = 96

	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BTC", Free: 0.5}},
		candles:  candles,
		history: []models.Order{
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 0.5, CumulativeQuoteQty: 50, Time: 100},
		},
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())
	require.Equal(t, models.PositionHolding, b.Position())
	require.InDelta(t, 100.0, b.LastBuyPrice(), 1e-9)

	// 96 < 100*(1-0.03) = 97 on both closes: the guard must fire.
	triggered, err := b.stopLossTrigger()
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.True(t, client.cancelAllCalled, "open orders must be canceled before the exit")
	require.Len(t, exec.marketSells, 1)
	assert.Equal(t, "0.5", exec.marketSells[0])

	b.stateMu.RLock()
	lastOp := b.lastOperation
	b.stateMu.RUnlock()
	assert.Equal(t, models.Sell, lastOp)
}

func TestStopLossSellsFullHoldingDespiteStaleDiscount(t *testing.T) {
	candles := flatCandles(50, 100, 10)
	candles[48].Close = 96
	candles[49].Close = 96

	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BTC", Free: 0.5}},
		candles:  candles,
		history: []models.Order{
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 0.5, CumulativeQuoteQty: 50, Time: 100},
		},
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	// A discount left over from the previous cycle's partially-filled
	// order. Its remainder is cancelled by the guard, so it must not
	// shrink the forced exit.
	b.stateMu.Lock()
	b.partialDiscount = 0.4
	b.stateMu.Unlock()

	triggered, err := b.stopLossTrigger()
	require.NoError(t, err)
	require.True(t, triggered)
	require.Len(t, exec.marketSells, 1)
	assert.Equal(t, "0.5", exec.marketSells[0], "the exit must liquidate the full holding")

	b.stateMu.RLock()
	discount := b.partialDiscount
	b.stateMu.RUnlock()
	assert.Equal(t, 0.0, discount, "no open orders remain, so no discount may survive")
}

func TestStopLossIgnoresSingleDip(t *testing.T) {
	// Only the latest close dips below the line; the previous one held.
	candles := flatCandles(50, 100, 10)
	candles[49].Close = 96

	client := &mockClient{
		balances: []models.Balance{{Asset: "BTC", Free: 0.5}},
		candles:  candles,
		history: []models.Order{
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 0.5, CumulativeQuoteQty: 50, Time: 100},
		},
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	triggered, err := b.stopLossTrigger()
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, exec.marketSells)
}

func TestStopLossNoopWhenFlat(t *testing.T) {
	candles := flatCandles(50, 50, 10)
	client := &mockClient{
		balances: []models.Balance{{Asset: "BTC", Free: 0}},
		candles:  candles,
		history: []models.Order{
			{Side: models.Buy, Status: "FILLED", ExecutedQty: 0.5, CumulativeQuoteQty: 50, Time: 100},
		},
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())
	require.Equal(t, models.PositionFlat, b.Position())

	triggered, err := b.stopLossTrigger()
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, exec.marketSells)
}

func TestReconcileAccumulatesPartialFills(t *testing.T) {
	client := &mockClient{
		rules: models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		openOrders: []models.Order{
			{OrderID: 1, Side: models.Buy, ExecutedQty: 0.3, Price: 99},
			{OrderID: 2, Side: models.Buy, ExecutedQty: 0.1, Price: 98},
			{OrderID: 3, Side: models.Sell, ExecutedQty: 0.2, Price: 105},
		},
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.reconcile(models.DecisionBuy)

	b.stateMu.RLock()
	discount := b.partialDiscount
	b.stateMu.RUnlock()
	assert.InDelta(t, 0.4, discount, 1e-9, "only same-side executed quantity counts")
	assert.ElementsMatch(t, []int64{1, 2, 3}, client.canceledIDs, "every open order is canceled for repricing")
}

func TestReconcileCapturesBestPartialBuyPrice(t *testing.T) {
	client := &mockClient{
		rules: models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		openOrders: []models.Order{
			{OrderID: 1, Side: models.Buy, ExecutedQty: 0.3, Price: 99},
			{OrderID: 2, Side: models.Buy, ExecutedQty: 0.1, Price: 98},
		},
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.reconcile(models.DecisionBuy)

	// The highest price among partially-filled buy orders becomes the
	// reference entry price for the stop loss and the sell floor.
	assert.InDelta(t, 99.0, b.LastBuyPrice(), 1e-9)
}

func TestReconcileLeavesOtherSideOrdersAlone(t *testing.T) {
	// Holding with a resting sell limit: a buy decision must not tear
	// down the sell order it will never replace.
	client := &mockClient{
		rules: models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		openOrders: []models.Order{
			{OrderID: 7, Side: models.Sell, ExecutedQty: 0.2, Price: 110},
		},
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.reconcile(models.DecisionBuy)

	assert.Empty(t, client.canceledIDs, "no same-side order exists, nothing may be cancelled")
	b.stateMu.RLock()
	discount := b.partialDiscount
	b.stateMu.RUnlock()
	assert.Equal(t, 0.0, discount)
}

func TestReconcileFailureDegradesToZeroDiscount(t *testing.T) {
	client := &mockClient{
		rules:         models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		openOrdersErr: errors.New("exchange timeout"),
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.stateMu.Lock()
	b.partialDiscount = 0.7 // stale value from a previous cycle
	b.stateMu.Unlock()

	b.reconcile(models.DecisionBuy)

	b.stateMu.RLock()
	discount := b.partialDiscount
	b.stateMu.RUnlock()
	assert.Equal(t, 0.0, discount, "a failed reconciliation must never reuse a stale discount")
}

func TestOrderQuantityAppliesDiscount(t *testing.T) {
	client := &mockClient{rules: models.SymbolRules{StepSize: 0.1, TickSize: 0.01}}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.stateMu.Lock()
	b.partialDiscount = 0.4
	b.stateMu.Unlock()

	qty, rendered, err := b.orderQuantity(1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, qty, 1e-9)
	assert.Equal(t, "0.6", rendered, "discounted quantity must render without float noise")
}

func TestOrderQuantityZeroAfterDiscount(t *testing.T) {
	client := &mockClient{rules: models.SymbolRules{StepSize: 0.1, TickSize: 0.01}}
	b, _ := newTestBot(t, client, &mockExecutor{})

	b.stateMu.Lock()
	b.partialDiscount = 1.0
	b.stateMu.Unlock()

	_, _, err := b.orderQuantity(1.0)
	assert.ErrorIs(t, err, ErrZeroQuantity)

	// Sub-step remainder also degrades to zero after flooring.
	b.stateMu.Lock()
	b.partialDiscount = 0.95
	b.stateMu.Unlock()
	_, _, err = b.orderQuantity(1.0)
	assert.ErrorIs(t, err, ErrZeroQuantity)
}

func TestLimitBuyPriceOversoldRSI(t *testing.T) {
	// A steadily falling series drives the RSI deep into oversold.
	candles := make([]models.Candle, 50)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Close:    200 - float64(i)*2,
			Volume:   10,
		}
	}
	candles[49].Close = 100

	b, _ := newTestBot(t, &mockClient{}, &mockExecutor{})
	prices := series.New(candles)
	require.Less(t, prices.RSI(), 30.0)

	price := b.limitBuyPrice(prices)
	assert.InDelta(t, 100*0.998, price, 1e-9, "oversold buys bid 0.2%% below the close")
}

func TestLimitBuyPriceVolumeBranches(t *testing.T) {
	// Flat closes keep the RSI neutral so the volume branch decides.
	quiet := flatCandles(50, 100, 10)
	quiet[49].Volume = 1 // last volume well below the average

	b, _ := newTestBot(t, &mockClient{}, &mockExecutor{})

	price := b.limitBuyPrice(series.New(quiet))
	assert.InDelta(t, 100*1.002, price, 1e-9, "quiet markets bid slightly above the close")

	volatile := flatCandles(50, 100, 10)
	volatile[49].Volume = 100
	price = b.limitBuyPrice(series.New(volatile))
	assert.InDelta(t, 100*1.005, price, 1e-9, "volatile markets chase the price harder")
}

func TestLimitSellPriceRespectsLossFloor(t *testing.T) {
	// Quiet market wants to undercut by 0.2%, but that would sell below
	// the acceptable loss line relative to the entry at 100.
	quiet := flatCandles(50, 99.6, 10)
	quiet[49].Volume = 1

	b, _ := newTestBot(t, &mockClient{}, &mockExecutor{})
	price := b.limitSellPrice(series.New(quiet), 100)

	assert.InDelta(t, 100*(1-0.005), price, 1e-9, "ask must never cross the acceptable loss floor")
}

func TestLimitSellPriceVolatileDiscount(t *testing.T) {
	volatile := flatCandles(50, 200, 10)
	volatile[49].Volume = 100

	b, _ := newTestBot(t, &mockClient{}, &mockExecutor{})
	// Entry far below: the floor is irrelevant here.
	price := b.limitSellPrice(series.New(volatile), 100)
	assert.InDelta(t, 200*0.995, price, 1e-9)
}

func TestLimitBuyPlacesDiscountedOrder(t *testing.T) {
	candles := flatCandles(50, 100, 10)
	candles[49].Volume = 1 // quiet market, +0.2% bid

	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BRL", Free: 100000}},
		candles:  candles,
	}
	exec := &mockExecutor{}
	b, repo := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	b.stateMu.Lock()
	b.partialDiscount = 0.4
	b.stateMu.Unlock()

	require.NoError(t, b.limitBuy())
	require.Len(t, exec.limitBuys, 1)
	assert.Equal(t, "0.6", exec.limitBuys[0][0])
	assert.Equal(t, "100.20", exec.limitBuys[0][1])

	require.Len(t, repo.records, 1)
	assert.Equal(t, models.Buy, repo.records[0].Side)
	assert.True(t, repo.records[0].Simulated)
}

func TestLimitBuyInsufficientBalance(t *testing.T) {
	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BRL", Free: 10}},
		candles:  flatCandles(50, 100, 10),
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	err := b.limitBuy()
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, exec.limitBuys, "order must not reach the executor")
}

func TestMarketSellRequiresHolding(t *testing.T) {
	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BTC", Free: 0.05}},
		candles:  flatCandles(50, 100, 10),
	}
	exec := &mockExecutor{}
	b, _ := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	err := b.marketSell()
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, exec.marketSells)
}

func TestMarketSellIgnoresDiscount(t *testing.T) {
	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BTC", Free: 0.5}},
		candles:  flatCandles(50, 100, 10),
	}
	exec := &mockExecutor{}
	b, repo := newTestBot(t, client, exec)
	require.NoError(t, b.updateAllData())

	b.stateMu.Lock()
	b.partialDiscount = 0.3
	b.stateMu.Unlock()

	require.NoError(t, b.marketSell())
	require.Len(t, exec.marketSells, 1)
	assert.Equal(t, "0.5", exec.marketSells[0], "liquidation sells the whole balance")
	require.Len(t, repo.records, 1)
	assert.InDelta(t, 0.5, repo.records[0].Quantity, 1e-9)
}

func TestRunRejectsDoubleStart(t *testing.T) {
	client := &mockClient{
		rules:    models.SymbolRules{StepSize: 0.1, TickSize: 0.01},
		balances: []models.Balance{{Asset: "BRL", Free: 1000}},
		candles:  flatCandles(50, 100, 10),
	}
	b, _ := newTestBot(t, client, &mockExecutor{})

	done := make(chan error, 1)
	go func() { done <- b.Run() }()

	// Give the first loop a moment to mark itself running.
	require.Eventually(t, b.IsRunning, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, b.Run(), ErrAlreadyRunning)

	b.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop in time")
	}
	assert.True(t, client.cancelAllCalled, "stopping cancels resting orders")
}
