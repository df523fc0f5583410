// Package matrix 负责每次更新时从报价源整体重建 N×N 报价矩阵。
package matrix

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"triarb-engine/internal/core/model"
)

// Stats 单次刷新的查询统计
type Stats struct {
	// Lookups 查询的有向交易对数量（N×(N-1)）
	Lookups int
	// Found 查到有效报价的数量
	Found int
	// Missing 无报价的数量（正常情况）
	Missing int
	// Errors 报价源返回错误的数量
	Errors int
}

// Refresher 报价矩阵刷新器
// 刷新时不做反向交易对兜底；反向报价在读取腿汇率时显式检查。
type Refresher struct {
	universe *model.Universe
	src      model.PriceSource
	batch    model.BatchPriceSource
	workers  int
	logger   *zap.Logger

	// symbols 预先拼接的交易对代码，下标 i*N+j；对角线为空
	symbols []string
	// offDiag 全部非对角线交易对代码（批量查询用）
	offDiag []string
}

// NewRefresher 创建刷新器
// 参数 u: 币种集合
// 参数 src: 报价源；若实现 BatchPriceSource 则一次批量查询
// 参数 workers: 并发刷新的行数，<=1 表示串行
// 参数 logger: 日志
func NewRefresher(u *model.Universe, src model.PriceSource, workers int, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := u.Len()
	r := &Refresher{
		universe: u,
		src:      src,
		workers:  workers,
		logger:   logger.Named("matrix"),
		symbols:  make([]string, n*n),
		offDiag:  make([]string, 0, n*(n-1)),
	}
	if b, ok := src.(model.BatchPriceSource); ok {
		r.batch = b
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sym := u.PairCode(i, j)
			r.symbols[i*n+j] = sym
			r.offDiag = append(r.offDiag, sym)
		}
	}
	return r
}

// Refresh 整体重建报价矩阵
// 对角线恒为 (1, 1)；查不到或报价源出错的单元为 (0, 0)。
func (r *Refresher) Refresh(ctx context.Context, m *model.Matrix) Stats {
	m.Reset()

	if r.batch != nil {
		return r.refreshBatch(ctx, m)
	}
	if r.workers <= 1 {
		var st Stats
		for i := 0; i < m.N(); i++ {
			st = add(st, r.refreshRow(ctx, m, i))
		}
		return st
	}
	return r.refreshParallel(ctx, m)
}

func (r *Refresher) refreshBatch(ctx context.Context, m *model.Matrix) Stats {
	n := m.N()
	st := Stats{Lookups: len(r.offDiag)}

	quotes, err := r.batch.GetQuotes(ctx, r.offDiag)
	if err != nil {
		r.logger.Warn("批量查询报价失败", zap.Error(err))
		st.Errors = st.Lookups
		return st
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			q, ok := quotes[r.symbols[i*n+j]]
			if !ok || !q.IsValid() {
				st.Missing++
				continue
			}
			m.Set(i, j, q)
			st.Found++
		}
	}
	return st
}

// refreshParallel 按行并发刷新
// 每个 goroutine 只写自己那一行的单元，不同行之间没有共享写入。
func (r *Refresher) refreshParallel(ctx context.Context, m *model.Matrix) Stats {
	n := m.N()
	rows := make([]Stats, n)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			rows[i] = r.refreshRow(ctx, m, i)
			return nil
		})
	}
	_ = g.Wait()

	var st Stats
	for _, rs := range rows {
		st = add(st, rs)
	}
	return st
}

func (r *Refresher) refreshRow(ctx context.Context, m *model.Matrix, i int) Stats {
	n := m.N()
	var st Stats
	for j := 0; j < n; j++ {
		if i == j {
			continue
		}
		st.Lookups++
		sym := r.symbols[i*n+j]
		q, ok, err := r.src.GetQuote(ctx, sym)
		if err != nil {
			st.Errors++
			r.logger.Debug("查询报价失败", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		if !ok || !q.IsValid() {
			st.Missing++
			continue
		}
		m.Set(i, j, q)
		st.Found++
	}
	return st
}

func add(a, b Stats) Stats {
	return Stats{
		Lookups: a.Lookups + b.Lookups,
		Found:   a.Found + b.Found,
		Missing: a.Missing + b.Missing,
		Errors:  a.Errors + b.Errors,
	}
}
