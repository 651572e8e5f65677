package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/02ricardosouza/robot02-cripto/internal/models"
)

// 各时间参数的默认值（秒），与原有机器人保持一致
const (
	defaultTradeIntervalSec  = 5 * 60
	defaultOrderDelaySec     = 15 * 60
	defaultRetryDelaySec     = 60
	defaultOrderHistoryLimit = 100
)

// LoadConfig 从指定路径加载JSON配置文件并解析到Config结构体中
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	config := &models.Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func applyDefaults(cfg *models.Config) {
	if cfg.TradeIntervalSec <= 0 {
		cfg.TradeIntervalSec = defaultTradeIntervalSec
	}
	if cfg.OrderDelaySec <= 0 {
		cfg.OrderDelaySec = defaultOrderDelaySec
	}
	if cfg.RetryDelaySec <= 0 {
		cfg.RetryDelaySec = defaultRetryDelaySec
	}
	if cfg.OrderHistoryLimit <= 0 {
		cfg.OrderHistoryLimit = defaultOrderHistoryLimit
	}
	if cfg.CandlePeriod == "" {
		cfg.CandlePeriod = "5m"
	}
}

// validate 检查无法用默认值弥补的配置错误
func validate(cfg *models.Config) error {
	if cfg.StockCode == "" || cfg.OperationCode == "" {
		return fmt.Errorf("配置缺少 stock_code 或 operation_code")
	}
	if cfg.TradedQuantity <= 0 {
		return fmt.Errorf("traded_quantity 必须大于0, 当前值: %v", cfg.TradedQuantity)
	}
	if cfg.AcceptableLossRate < 0 || cfg.AcceptableLossRate >= 1 {
		return fmt.Errorf("acceptable_loss_rate 必须在 [0,1) 区间内, 当前值: %v", cfg.AcceptableLossRate)
	}
	if cfg.StopLossRate <= 0 || cfg.StopLossRate >= 1 {
		return fmt.Errorf("stop_loss_rate 必须在 (0,1) 区间内, 当前值: %v", cfg.StopLossRate)
	}
	return nil
}
