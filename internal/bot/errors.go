package bot

import "errors"

var (
	// ErrInsufficientBalance 表示本地余额预检失败，订单不会发往交易所
	ErrInsufficientBalance = errors.New("余额不足，订单未发送")

	// ErrZeroQuantity 表示扣除已执行数量并按精度调整后，下单数量不为正
	ErrZeroQuantity = errors.New("扣除已执行数量后下单数量不为正，跳过本次下单")

	// ErrAlreadyRunning 表示机器人实例已经在运行
	ErrAlreadyRunning = errors.New("机器人已在运行")
)
