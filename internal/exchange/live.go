package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

// LiveClient 实现了 Client 接口，通过币安REST API与真实交易所交互
type LiveClient struct {
	client *binance.Client
}

// NewLiveClient 创建一个新的 LiveClient 实例
func NewLiveClient(apiKey, secretKey string, testnet bool) *LiveClient {
	if testnet {
		binance.UseTestnet = true
	}
	return &LiveClient{
		client: binance.NewClient(apiKey, secretKey),
	}
}

// wrapAPIError 将币安客户端的错误转换为本地的 APIError，
// 其余错误原样返回
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &models.APIError{Code: int(apiErr.Code), Msg: apiErr.Message}
	}
	return err
}

// GetAccountBalances 返回账户中所有资产的余额
func (c *LiveClient) GetAccountBalances() ([]models.Balance, error) {
	account, err := c.client.NewGetAccountService().Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	balances := make([]models.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		balances = append(balances, models.Balance{
			Asset:  b.Asset,
			Free:   free,
			Locked: locked,
		})
	}
	return balances, nil
}

// GetCandles 获取指定交易对最近 limit 根K线
func (c *LiveClient) GetCandles(symbol, interval string, limit int) ([]models.Candle, error) {
	klines, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)
		candles = append(candles, models.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}
	return candles, nil
}

func convertOrder(symbol string, orderID int64, side, orderType, price, origQty, executedQty, cumQuote, status string, t int64) models.Order {
	p, _ := strconv.ParseFloat(price, 64)
	oq, _ := strconv.ParseFloat(origQty, 64)
	eq, _ := strconv.ParseFloat(executedQty, 64)
	cq, _ := strconv.ParseFloat(cumQuote, 64)
	return models.Order{
		Symbol:             symbol,
		OrderID:            orderID,
		Side:               models.Side(side),
		Type:               orderType,
		Price:              p,
		OrigQty:            oq,
		ExecutedQty:        eq,
		CumulativeQuoteQty: cq,
		Status:             status,
		Time:               t,
	}
}

// GetOpenOrders 返回交易对当前所有未完结的挂单
func (c *LiveClient) GetOpenOrders(symbol string) ([]models.Order, error) {
	raw, err := c.client.NewListOpenOrdersService().
		Symbol(symbol).
		Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	orders := make([]models.Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, convertOrder(o.Symbol, o.OrderID, string(o.Side), string(o.Type),
			o.Price, o.OrigQuantity, o.ExecutedQuantity, o.CummulativeQuoteQuantity, string(o.Status), o.Time))
	}
	return orders, nil
}

// GetOrderHistory 返回交易对最近 limit 条历史订单（含已完结）
func (c *LiveClient) GetOrderHistory(symbol string, limit int) ([]models.Order, error) {
	raw, err := c.client.NewListOrdersService().
		Symbol(symbol).
		Limit(limit).
		Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	orders := make([]models.Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, convertOrder(o.Symbol, o.OrderID, string(o.Side), string(o.Type),
			o.Price, o.OrigQuantity, o.ExecutedQuantity, o.CummulativeQuoteQuantity, string(o.Status), o.Time))
	}
	return orders, nil
}

// GetSymbolRules 获取交易对的价格与数量精度规则
func (c *LiveClient) GetSymbolRules(symbol string) (*models.SymbolRules, error) {
	info, err := c.client.NewExchangeInfoService().
		Symbol(symbol).
		Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		priceFilter := s.PriceFilter()
		lotFilter := s.LotSizeFilter()
		if priceFilter == nil || lotFilter == nil {
			return nil, fmt.Errorf("交易对 %s 缺少 PRICE_FILTER 或 LOT_SIZE 过滤器", symbol)
		}
		tickSize, err := strconv.ParseFloat(priceFilter.TickSize, 64)
		if err != nil {
			return nil, fmt.Errorf("解析 tickSize 失败: %w", err)
		}
		stepSize, err := strconv.ParseFloat(lotFilter.StepSize, 64)
		if err != nil {
			return nil, fmt.Errorf("解析 stepSize 失败: %w", err)
		}
		return &models.SymbolRules{Symbol: symbol, TickSize: tickSize, StepSize: stepSize}, nil
	}
	return nil, fmt.Errorf("交易所未返回交易对 %s 的规则", symbol)
}

// PlaceOrder 按给定的下单参数提交订单
func (c *LiveClient) PlaceOrder(symbol string, intent models.OrderIntent) (*models.Execution, error) {
	service := c.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(intent.Side)).
		Type(binance.OrderType(intent.Type)).
		Quantity(intent.Quantity)

	if intent.Type == "LIMIT" {
		service = service.
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(intent.Price)
	}

	result, err := service.Do(context.Background())
	if err != nil {
		return nil, wrapAPIError(err)
	}

	executedQty, _ := strconv.ParseFloat(result.ExecutedQuantity, 64)
	cumQuote, _ := strconv.ParseFloat(result.CummulativeQuoteQuantity, 64)
	return &models.Execution{
		Symbol:             symbol,
		Side:               intent.Side,
		Type:               intent.Type,
		ExecutedQty:        executedQty,
		CumulativeQuoteQty: cumQuote,
		Status:             string(result.Status),
	}, nil
}

// CancelOrder 按订单ID取消单个订单
func (c *LiveClient) CancelOrder(symbol string, orderID int64) error {
	_, err := c.client.NewCancelOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(context.Background())
	return wrapAPIError(err)
}

// CancelAllOpenOrders 取消交易对的所有挂单
func (c *LiveClient) CancelAllOpenOrders(symbol string) error {
	_, err := c.client.NewCancelOpenOrdersService().
		Symbol(symbol).
		Do(context.Background())
	return wrapAPIError(err)
}
