package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParsePrice 交易所价格是十进制字符串，先按十进制解析再转 float64，拒绝非正价格
func ParsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("价格格式错误 %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("价格必须为正数 %q: %w", s, ErrDegenerateInput)
	}
	price, _ := d.Float64()
	return price, nil
}

// FormatPrice 按价格量级保留有效小数位，用于通知展示
func FormatPrice(price float64) string {
	d := decimal.NewFromFloat(price)
	switch {
	case price >= 1000:
		return d.StringFixed(2)
	case price >= 1:
		return d.StringFixed(4)
	default:
		return d.StringFixed(8)
	}
}
