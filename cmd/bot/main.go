package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/02ricardosouza/robot02-cripto/internal/bot"
	"github.com/02ricardosouza/robot02-cripto/internal/config"
	"github.com/02ricardosouza/robot02-cripto/internal/exchange"
	"github.com/02ricardosouza/robot02-cripto/internal/executor"
	"github.com/02ricardosouza/robot02-cripto/internal/logger"
	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/registry"
	"github.com/02ricardosouza/robot02-cripto/internal/reporter"
	"github.com/02ricardosouza/robot02-cripto/internal/store"
	"github.com/02ricardosouza/robot02-cripto/internal/strategy"
)

const (
	liveWSURL    = "wss://stream.binance.com:9443"
	testnetWSURL = "wss://stream.testnet.binance.vision"
)

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "live", "running mode: live or simulation")
	flag.Parse()

	// 先用默认配置初始化日志，保证加载配置阶段也有日志可用
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("未找到 .env 文件，将从系统环境变量中读取。")
	} else {
		logger.S().Info("成功从 .env 文件加载配置。")
	}

	// --- 加载 JSON 配置 ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("无法加载配置文件: %v", err)
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	simulated := false
	switch *mode {
	case "live":
	case "simulation":
		simulated = true
	default:
		logger.S().Fatalf("未知的运行模式: %s。请选择 'live' 或 'simulation'。", *mode)
	}

	// 两种模式共用同一个只读行情客户端，差别只在订单执行器
	apiKey := os.Getenv("BINANCE_API_KEY")
	secretKey := os.Getenv("BINANCE_SECRET_KEY")
	if !simulated && (apiKey == "" || secretKey == "") {
		logger.S().Fatal("错误：BINANCE_API_KEY 和 BINANCE_SECRET_KEY 环境变量必须被设置。")
	}
	client := exchange.NewLiveClient(apiKey, secretKey, cfg.IsTestnet)
	if cfg.IsTestnet {
		logger.S().Info("正在使用币安测试网...")
	}

	var exec executor.OrderExecutor
	if simulated {
		logger.S().Infof("--- 启动模拟模式 (初始资金 %.2f %s) ---", cfg.SimulationCash, cfg.QuoteCode())
		exec = executor.NewSimulatedExecutor(cfg.OperationCode, cfg.SimulationCash)
	} else {
		logger.S().Info("--- 启动实盘模式 ---")
		exec = executor.NewLiveExecutor(client, cfg.OperationCode)
	}

	// --- 初始化交易历史存储 ---
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "trade_history_db"
	}
	trades, err := store.NewBadgerStore(dbPath)
	if err != nil {
		logger.S().Fatalf("初始化交易历史数据库失败: %v", err)
	}
	defer trades.Close()

	// --- 组装策略 ---
	primaries := []strategy.Strategy{
		strategy.NewMovingAverageStrategy(cfg.VolatilityFactor),
		strategy.NewRSIStrategy(),
	}
	var fallback strategy.Strategy
	if cfg.FallbackActivated {
		fallback = strategy.NewFallbackStrategy()
	}
	strat := strategy.NewComposite(primaries, fallback)

	// 实时价格推送只用于状态展示，断开不影响决策周期
	wsBaseURL := liveWSURL
	if cfg.IsTestnet {
		wsBaseURL = testnetWSURL
	}
	feed := exchange.NewPriceFeed(wsBaseURL, cfg.OperationCode)

	// --- 注册并启动机器人 ---
	reg := registry.New()
	trader, err := bot.NewTraderBot(registry.NewID(), cfg, client, exec, trades, strat, feed, simulated)
	if err != nil {
		logger.S().Fatalf("机器人初始化失败: %v", err)
	}
	if err := reg.Register(trader); err != nil {
		logger.S().Fatalf("机器人注册失败: %v", err)
	}
	if err := reg.Start(trader.ID()); err != nil {
		logger.S().Fatalf("机器人启动失败: %v", err)
	}

	// 等待中断信号以实现优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	reg.StopAll()
	logger.S().Info("机器人已成功停止。")

	// --- 输出收尾报告 ---
	reporter.PrintBots(os.Stdout, reg.List())
	if history, err := trades.ListTrades(cfg.OperationCode); err == nil && len(history) > 0 {
		reporter.PrintTrades(os.Stdout, history)
	}
	if sim, ok := exec.(*executor.SimulatedExecutor); ok {
		cash, held := sim.Ledger()
		logger.S().Infof("模拟账本: 现金 %.8f %s, 持仓 %.8f %s", cash, cfg.QuoteCode(), held, cfg.StockCode)
	} else if balances, err := client.GetAccountBalances(); err == nil {
		reporter.PrintWallet(os.Stdout, balances)
	}
}
