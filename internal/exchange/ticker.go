package exchange

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/02ricardosouza/robot02-cripto/internal/logger"

	"github.com/gorilla/websocket"
)

// PriceFeed 通过WebSocket订阅交易对的实时价格，仅用于周期之间的
// 状态监控展示。引擎的全部决策只依赖REST拉取的K线快照。
type PriceFeed struct {
	wsBaseURL string
	symbol    string

	mu          sync.RWMutex
	lastPrice   float64
	conn        *websocket.Conn
	stopChannel chan struct{}
	started     bool
}

// NewPriceFeed 创建一个新的价格订阅器，wsBaseURL 形如 "wss://stream.binance.com:9443"
func NewPriceFeed(wsBaseURL, symbol string) *PriceFeed {
	return &PriceFeed{
		wsBaseURL:   wsBaseURL,
		symbol:      symbol,
		stopChannel: make(chan struct{}),
	}
}

// Start 启动后台订阅循环，连接断开时自动重连
func (f *PriceFeed) Start() {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	go f.loop()
}

// Stop 停止订阅循环
func (f *PriceFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	close(f.stopChannel)
	if f.conn != nil {
		f.conn.Close()
	}
}

// Last 返回最近收到的价格，尚未收到任何消息时返回0
func (f *PriceFeed) Last() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastPrice
}

// loop 负责维持连接与重连
func (f *PriceFeed) loop() {
	for {
		select {
		case <-f.stopChannel:
			return
		default:
			if err := f.connect(); err != nil {
				logger.S().Warnf("行情WebSocket连接失败: %v，5秒后重试...", err)
				time.Sleep(5 * time.Second)
				continue
			}

			if err := f.readMessages(); err != nil {
				logger.S().Warnf("行情WebSocket读取中断: %v", err)
			}

			f.mu.Lock()
			if f.conn != nil {
				f.conn.Close()
				f.conn = nil
			}
			f.mu.Unlock()
			time.Sleep(5 * time.Second)
		}
	}
}

func (f *PriceFeed) connect() error {
	wsURL := fmt.Sprintf("%s/ws/%s@miniTicker", f.wsBaseURL, strings.ToLower(f.symbol))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	return nil
}

// readMessages 为已建立的连接处理消息，并实现心跳机制
func (f *PriceFeed) readMessages() error {
	const (
		pongWait   = 60 * time.Second
		pingPeriod = (pongWait * 9) / 10
	)

	conn := f.conn
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	pingStop := make(chan struct{})
	defer close(pingStop)

	go func() {
		for {
			select {
			case <-pingTicker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingStop:
				return
			case <-f.stopChannel:
				return
			}
		}
	}()

	for {
		select {
		case <-f.stopChannel:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("读取消息失败: %w", err)
			}

			var ticker struct {
				Close json.Number `json:"c"` // 最新收盘价
			}
			if err := json.Unmarshal(message, &ticker); err != nil {
				logger.S().Debugf("解析行情消息失败: %v", err)
				continue
			}

			price, err := ticker.Close.Float64()
			if err != nil {
				continue
			}

			f.mu.Lock()
			f.lastPrice = price
			f.mu.Unlock()
		}
	}
}
