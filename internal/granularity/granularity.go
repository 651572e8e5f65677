// Package granularity adjusts prices and quantities to the exchange's
// minimum increments. Values are always floored, never rounded up, so an
// adjusted order can never request more than the wallet holds.
package granularity

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidStep 表示交易规则中的步长非法（<= 0），属于构造期致命错误
var ErrInvalidStep = errors.New("granularity: step must be greater than zero")

// decimalPlaces 根据步长推导小数位数, 例如 0.001 -> 3, 1 -> 0
func decimalPlaces(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func adjust(value, step float64) (decimal.Decimal, int32, error) {
	if step <= 0 {
		return decimal.Decimal{}, 0, ErrInvalidStep
	}

	s := decimal.NewFromFloat(step)
	v := decimal.NewFromFloat(value)

	// 向下取整到步长的整数倍，十进制运算避免浮点误差
	adjusted := v.Div(s).Floor().Mul(s)
	return adjusted, decimalPlaces(s), nil
}

// AdjustToStep 将 value 向下调整到 step 的整数倍
func AdjustToStep(value, step float64) (float64, error) {
	adjusted, _, err := adjust(value, step)
	if err != nil {
		return 0, err
	}
	f, _ := adjusted.Float64()
	return f, nil
}

// FormatToStep 返回调整后的定点字符串表示，小数位数与步长一致，
// 任何数量级下都不会出现科学计数法
func FormatToStep(value, step float64) (string, error) {
	adjusted, places, err := adjust(value, step)
	if err != nil {
		return "", err
	}
	return adjusted.StringFixed(places), nil
}
