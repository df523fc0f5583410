// Package fastparse 提供高性能的字符串解析函数。
// 避免在热路径使用 fmt，直接使用 strconv。
// 主要用于解析行情消息和 Redis hash 中以字符串表示的价格。
package fastparse

import (
	"errors"
	"math"
	"strconv"
)

// ErrInvalidPrice 价格为负数、NaN 或 Inf
var ErrInvalidPrice = errors.New("invalid price")

// ParseFloat 快速解析浮点数字符串
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParsePrice 解析价格字符串
// 空字符串视为 0（该侧无报价）；负数、NaN、Inf 返回 ErrInvalidPrice。
func ParsePrice(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// ParseInt 快速解析整数字符串
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// FormatFloat 格式化浮点数，prec=-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// FormatInt 格式化整数
func FormatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// FormatBool 格式化布尔值
func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}
