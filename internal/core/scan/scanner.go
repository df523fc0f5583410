// Package scan 实现三角环路枚举与盈利因子计算。
package scan

import (
	"iter"

	"triarb-engine/internal/core/model"
)

// Evaluation 单个环路的评估结果
type Evaluation struct {
	// Cycle 环路 a→b→c→a
	Cycle model.Cycle
	// Legs 三条腿的有效汇率（仅 Available 时有效）
	Legs [3]model.LegRate
	// Factor 盈利因子 = 三条腿有效汇率之积（不可用时为 0）
	Factor float64
	// Available 三条腿是否都有报价
	Available bool
	// Qualifies Factor 是否严格大于最小盈利因子
	Qualifies bool
}

// Err 不可用的环路返回 model.ErrMissingQuote
func (e Evaluation) Err() error {
	if !e.Available {
		return model.ErrMissingQuote
	}
	return nil
}

// Opportunity 转换为执行候选
func (e Evaluation) Opportunity() model.Opportunity {
	return model.Opportunity{Cycle: e.Cycle, Legs: e.Legs, Factor: e.Factor}
}

// Scanner 环路扫描器
// 无状态：每次更新重新生成扫描序列，不可跨更新恢复。
type Scanner struct {
	// minProfitFactor 最小盈利因子，严格大于 1
	minProfitFactor float64
}

// NewScanner 创建扫描器
// 参数 minProfitFactor: 最小盈利因子（如 1.0001 = 1 bp）
func NewScanner(minProfitFactor float64) *Scanner {
	return &Scanner{minProfitFactor: minProfitFactor}
}

// MinProfitFactor 返回最小盈利因子
func (s *Scanner) MinProfitFactor() float64 {
	return s.minProfitFactor
}

// Scan 按 (a, b, c) 三重升序枚举全部互异有序三元组
// 序列顺序即执行优先级；N 个币种共产生 N×(N-1)×(N-2) 个评估结果。
func (s *Scanner) Scan(m *model.Matrix) iter.Seq[Evaluation] {
	return func(yield func(Evaluation) bool) {
		n := m.N()
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				if b == a {
					continue
				}
				for c := 0; c < n; c++ {
					if c == a || c == b {
						continue
					}
					if !yield(s.Evaluate(m, model.Cycle{a, b, c})) {
						return
					}
				}
			}
		}
	}
}

// Evaluate 评估单个环路
// 任一条腿无报价时 Available=false，环路静默跳过。
func (s *Scanner) Evaluate(m *model.Matrix, cyc model.Cycle) Evaluation {
	ev := Evaluation{Cycle: cyc}
	factor := 1.0
	for k := 0; k < 3; k++ {
		from, to := cyc.Leg(k)
		leg, ok := ResolveLeg(m, from, to)
		if !ok {
			return ev
		}
		ev.Legs[k] = leg
		factor *= leg.Rate()
	}
	ev.Available = true
	ev.Factor = factor
	// 严格大于：盈亏平衡的环路不执行
	ev.Qualifies = factor > s.minProfitFactor
	return ev
}

// ResolveLeg 解析 from→to 的有效汇率
// 顺序: cell(from,to).bid → Direct；cell(from,to).ask → Inverse；
// cell(to,from).ask → Inverse（反向交易对）；否则不可用。
func ResolveLeg(m *model.Matrix, from, to int) (model.LegRate, bool) {
	q := m.At(from, to)
	if q.Bid > 0 {
		return model.Direct(q.Bid, model.PairKey{From: from, To: to}), true
	}
	if q.Ask > 0 {
		return model.Inverse(q.Ask, model.PairKey{From: from, To: to}), true
	}
	if inv := m.At(to, from); inv.Ask > 0 {
		return model.Inverse(inv.Ask, model.PairKey{From: to, To: from}), true
	}
	return model.LegRate{}, false
}
