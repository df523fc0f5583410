// Package trade 汇总整个运行期间的环路评估与成交统计。
// 所有计数单调递增，运行期间从不重置。
package trade

import (
	"sort"

	"triarb-engine/internal/core/model"
	"triarb-engine/internal/core/scan"
)

// PairCount 单个有向交易对的成交次数
type PairCount struct {
	// Pair 交易对代码，如 EURUSD
	Pair string `json:"pair"`
	// Count 成交腿数
	Count int64 `json:"count"`
}

// Snapshot 统计快照（只读副本）
type Snapshot struct {
	// CyclesEvaluated 扫描访问过的有序三元组总数（不论是否满足阈值）
	CyclesEvaluated int64 `json:"cycles_evaluated"`
	// CyclesAvailable 三条腿都有报价的环路数
	CyclesAvailable int64 `json:"cycles_available"`
	// CyclesQualified 满足盈利阈值的环路数
	CyclesQualified int64 `json:"cycles_qualified"`
	// Attempted 尝试执行的环路数（含失败）
	Attempted int64 `json:"attempted"`
	// Executed 完整成交的环路数
	Executed int64 `json:"executed"`
	// Failed 下单失败中止的环路数
	Failed int64 `json:"failed"`
	// CapSkipped 因单次更新上限未执行的满足阈值环路数
	CapSkipped int64 `json:"cap_skipped"`
	// GoodTrades 好交易数（PnL > 手续费）
	GoodTrades int64 `json:"good_trades"`
	// BadTrades 坏交易数
	BadTrades int64 `json:"bad_trades"`
	// TotalCommission 累计手续费（起始币种）
	TotalCommission float64 `json:"total_commission"`
	// TotalPnL 累计 PnL（起始币种，仅完整成交的环路）
	TotalPnL float64 `json:"total_pnl"`
	// BestFactor 运行期间见过的最大盈利因子
	BestFactor float64 `json:"best_factor"`
	// BestCycle 最大盈利因子对应的环路
	BestCycle []string `json:"best_cycle,omitempty"`
	// Pairs 按交易对代码排序的成交次数
	Pairs []PairCount `json:"pairs"`
}

// PairTotal 返回所有交易对成交次数之和
func (s Snapshot) PairTotal() int64 {
	var n int64
	for _, p := range s.Pairs {
		n += p.Count
	}
	return n
}

// Tracker 运行统计（单线程写入）
type Tracker struct {
	universe *model.Universe

	cyclesEvaluated int64
	cyclesAvailable int64
	cyclesQualified int64
	attempted       int64
	executed        int64
	failed          int64
	capSkipped      int64
	good            int64
	bad             int64
	commission      float64
	pnl             float64

	bestFactor float64
	bestCycle  model.Cycle
	hasBest    bool

	// pairs 结构化键计数，避免字符串拼接键碰撞
	pairs map[model.PairKey]int64
}

// NewTracker 创建统计器
func NewTracker(u *model.Universe) *Tracker {
	return &Tracker{
		universe: u,
		pairs:    make(map[model.PairKey]int64),
	}
}

// RecordEvaluation 记录一次环路评估
// 每个被访问的有序三元组计数一次，不论是否可用或满足阈值。
func (t *Tracker) RecordEvaluation(ev scan.Evaluation) {
	t.cyclesEvaluated++
	if !ev.Available {
		return
	}
	t.cyclesAvailable++
	if ev.Qualifies {
		t.cyclesQualified++
	}
	if !t.hasBest || ev.Factor > t.bestFactor {
		t.bestFactor = ev.Factor
		t.bestCycle = ev.Cycle
		t.hasBest = true
	}
}

// RecordCapSkip 记录一个因执行上限被跳过的满足阈值环路
func (t *Tracker) RecordCapSkip() {
	t.capSkipped++
}

// Record 记录一次执行结果
// 失败的环路只累计已成交腿的手续费，不计入好/坏交易和交易对计数。
func (t *Tracker) Record(res *model.ExecutionResult) {
	if res == nil {
		return
	}
	t.attempted++
	t.commission += res.Commission

	if !res.Completed() {
		t.failed++
		return
	}

	t.executed++
	t.pnl += res.PnL
	if res.Good {
		t.good++
	} else {
		t.bad++
	}
	for k := 0; k < 3; k++ {
		t.pairs[res.Legs[k].Pair]++
	}
}

// Executed 返回完整成交的环路数
func (t *Tracker) Executed() int64 {
	return t.executed
}

// Snapshot 获取统计快照
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		CyclesEvaluated: t.cyclesEvaluated,
		CyclesAvailable: t.cyclesAvailable,
		CyclesQualified: t.cyclesQualified,
		Attempted:       t.attempted,
		Executed:        t.executed,
		Failed:          t.failed,
		CapSkipped:      t.capSkipped,
		GoodTrades:      t.good,
		BadTrades:       t.bad,
		TotalCommission: t.commission,
		TotalPnL:        t.pnl,
		Pairs:           make([]PairCount, 0, len(t.pairs)),
	}
	if t.hasBest {
		s.BestFactor = t.bestFactor
		codes := t.bestCycle.Codes(t.universe)
		s.BestCycle = codes[:]
	}
	for k, n := range t.pairs {
		s.Pairs = append(s.Pairs, PairCount{Pair: t.universe.SymbolOf(k), Count: n})
	}
	sort.Slice(s.Pairs, func(i, j int) bool { return s.Pairs[i].Pair < s.Pairs[j].Pair })
	return s
}
