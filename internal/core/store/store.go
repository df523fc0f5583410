// Package store 维护所有交易对的最新报价。
// 使用单写者模式避免锁和竞态条件。
package store

import (
	"context"
	"strings"

	"triarb-engine/internal/core/model"
)

// Store 最新报价缓存（单写者）
// 注意：本结构体默认由引擎主循环单 goroutine 写入和读取；
// 刷新矩阵时若开启并发行刷新，只读访问是安全的，前提是刷新期间没有 Update。
type Store struct {
	// quotes 按交易对代码（如 EURUSD）缓存最新报价
	quotes map[string]model.Quote
	// lastNs 最近一次写入的到达时间（纳秒）
	lastNs map[string]int64
}

// New 创建新的报价缓存
func New() *Store {
	return &Store{
		quotes: make(map[string]model.Quote, 128),
		lastNs: make(map[string]int64, 128),
	}
}

// Update 更新缓存
// 参数 tick: 行情事件；Symbol 为空或报价无效时忽略
// 返回: 是否写入
func (s *Store) Update(tick model.Tick) bool {
	if tick.Symbol == "" || !tick.Quote.IsValid() {
		return false
	}
	sym := strings.ToUpper(tick.Symbol)
	s.quotes[sym] = tick.Quote
	s.lastNs[sym] = tick.ArrivedAtUnixNs
	return true
}

// GetQuote 实现 model.PriceSource
// 缺少交易对返回 ok=false，从不返回错误。
func (s *Store) GetQuote(_ context.Context, symbol string) (model.Quote, bool, error) {
	q, ok := s.quotes[symbol]
	return q, ok, nil
}

// LastUpdateNs 返回交易对最近一次更新时间（纳秒），无则为 0
func (s *Store) LastUpdateNs(symbol string) int64 {
	return s.lastNs[symbol]
}

// Len 返回已缓存的交易对数量
func (s *Store) Len() int {
	return len(s.quotes)
}
