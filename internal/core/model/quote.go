package model

import (
	"context"
	"time"
)

// Quote 一个有向交易对的最优买卖价（仅 top-of-book）
// 矩阵单元 (i, j) 表示将 1 单位币种 i 兑换为币种 j 的报价。
type Quote struct {
	// Bid 买一价
	Bid float64 `json:"bid"`
	// Ask 卖一价
	Ask float64 `json:"ask"`
}

// IsEmpty 判断是否为无报价（bid 与 ask 均为 0）
func (q Quote) IsEmpty() bool {
	return q.Bid == 0 && q.Ask == 0
}

// IsValid 判断报价是否可写入缓存：价格非负且至少一侧为正
func (q Quote) IsValid() bool {
	return q.Bid >= 0 && q.Ask >= 0 && (q.Bid > 0 || q.Ask > 0)
}

// identityQuote 对角线单元的固定报价
var identityQuote = Quote{Bid: 1, Ask: 1}

// Matrix N×N 稠密报价矩阵
// 每次更新整体重建，不做增量修补；由引擎单线程独占写入。
type Matrix struct {
	n     int
	cells []Quote
}

// NewMatrix 创建 N×N 报价矩阵，对角线为 (1, 1)，其余为 (0, 0)
func NewMatrix(n int) *Matrix {
	m := &Matrix{n: n, cells: make([]Quote, n*n)}
	m.Reset()
	return m
}

// N 返回矩阵维度
func (m *Matrix) N() int {
	return m.n
}

// At 读取单元 (i, j)
func (m *Matrix) At(i, j int) Quote {
	return m.cells[i*m.n+j]
}

// Set 写入单元 (i, j)
// 对角线单元恒为 (1, 1)，写入被忽略。
func (m *Matrix) Set(i, j int, q Quote) {
	if i == j {
		return
	}
	m.cells[i*m.n+j] = q
}

// Reset 清空所有非对角线单元为 (0, 0)
func (m *Matrix) Reset() {
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if i == j {
				m.cells[i*m.n+j] = identityQuote
			} else {
				m.cells[i*m.n+j] = Quote{}
			}
		}
	}
}

// PriceSource 外部报价源
// 缺少某个交易对是正常情况（返回 ok=false），不是错误；
// error 仅表示报价源本身不可用（如网络故障）。
type PriceSource interface {
	GetQuote(ctx context.Context, symbol string) (q Quote, ok bool, err error)
}

// BatchPriceSource 支持批量查询的报价源（如 Redis pipeline）
// 返回的 map 中不包含无报价的交易对。
type BatchPriceSource interface {
	PriceSource
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// Tick 外部行情更新事件
// Symbol 为空时仅作为触发信号（报价由外部报价源直接提供）。
type Tick struct {
	// Symbol 交易对代码，如 EURUSD
	Symbol string
	// Quote 最新报价
	Quote Quote
	// ArrivedAtUnixNs 本机收到消息的时间戳（纳秒）
	ArrivedAtUnixNs int64
	// ExchTsUnixMs 上游事件时间戳（毫秒），无则为 0
	ExchTsUnixMs int64
}

// ArrivedAt 获取到达时间的 time.Time 表示
func (t Tick) ArrivedAt() time.Time {
	return time.Unix(0, t.ArrivedAtUnixNs)
}
