// Package venue 定义下单接口以及仅用于模拟的纸面实现。
// 重要：仅用于研究，纸面实现从不连接真实交易所。
package venue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
)

// ErrRejected 订单被拒绝
var ErrRejected = errors.New("order rejected")

// Ack 下单确认
type Ack struct {
	// OrderID 订单号
	OrderID string
	// Symbol 交易对
	Symbol string
	// Side 方向
	Side model.Side
	// Volume 下单数量（源币种）
	Volume float64
}

// Venue 下单接口（仅实盘执行模式使用）
// 失败只影响当前腿，不得导致整个更新中止。
type Venue interface {
	// SubmitMarketOrder 提交市价单
	SubmitMarketOrder(ctx context.Context, side model.Side, symbol string, volume float64) (Ack, error)
	// MinLotSize 返回交易对最小下单手数
	MinLotSize(symbol string) float64
}

// Paper 纸面下单接口：按配置返回最小手数，下单立即确认
type Paper struct {
	cfg config.VenueConfig

	// reject 需要拒绝的交易对（测试与演练用）
	reject map[string]bool
	// submitted 已确认订单数
	submitted atomic.Int64
}

// NewPaper 创建纸面下单接口
func NewPaper(cfg config.VenueConfig) *Paper {
	return &Paper{cfg: cfg, reject: make(map[string]bool)}
}

// Reject 设置拒绝某交易对的所有订单
func (p *Paper) Reject(symbol string) {
	p.reject[strings.ToUpper(symbol)] = true
}

// SubmitMarketOrder 实现 Venue
func (p *Paper) SubmitMarketOrder(_ context.Context, side model.Side, symbol string, volume float64) (Ack, error) {
	if volume <= 0 {
		return Ack{}, fmt.Errorf("%w: 数量必须为正数: %s %f", ErrRejected, symbol, volume)
	}
	if p.reject[strings.ToUpper(symbol)] {
		return Ack{}, fmt.Errorf("%w: %s", ErrRejected, symbol)
	}
	p.submitted.Add(1)
	return Ack{
		OrderID: uuid.NewString(),
		Symbol:  symbol,
		Side:    side,
		Volume:  volume,
	}, nil
}

// MinLotSize 实现 Venue
func (p *Paper) MinLotSize(symbol string) float64 {
	return p.cfg.MinLot(symbol)
}

// Submitted 返回已确认订单数
func (p *Paper) Submitted() int64 {
	return p.submitted.Load()
}
