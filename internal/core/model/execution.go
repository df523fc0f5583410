package model

import "errors"

var (
	// ErrMissingQuote 所需交易对双向均无报价
	ErrMissingQuote = errors.New("missing quote")
	// ErrExecutionFailure 实盘模式下某条腿下单失败
	ErrExecutionFailure = errors.New("execution failure")
	// ErrSinkWrite 日志输出无法写入
	ErrSinkWrite = errors.New("sink write failure")
)

// LegFill 单条腿的成交明细
type LegFill struct {
	// Pair 实际定价的交易对
	Pair PairKey
	// Kind 腿汇率解析方式
	Kind LegKind
	// Side 下单方向
	Side Side
	// Price 成交价（bid 或 ask）
	Price float64
	// Requested 取整前期望流出量（源币种）
	Requested float64
	// Outgoing 实际流出量（源币种，实盘模式按最小手数向下取整）
	Outgoing float64
	// Incoming 流入量（目标币种）
	Incoming float64
	// Unfilled 因手数取整滞留在源币种的数量
	Unfilled float64
	// Remainder 无滑点理论余量（源币种）
	Remainder float64
	// Commission 手续费（源币种）
	Commission float64
	// CommissionBase 手续费（折算为起始币种）
	CommissionBase float64
	// OrderID 实盘模式下的订单号
	OrderID string
}

// ExecutionResult 单个环路的执行结果（仅在一次更新内存在）
type ExecutionResult struct {
	// ID 执行唯一标识
	ID string
	// Cycle 环路
	Cycle Cycle
	// Factor 执行时的盈利因子
	Factor float64
	// Deployed 第一条腿实际投入的起始币种数量
	Deployed float64
	// FinalNotional 最后一条腿回到起始币种的数量
	FinalNotional float64
	// PnL 净盈亏（起始币种，含符号）= FinalNotional − Deployed
	PnL float64
	// Commission 三条腿手续费合计（起始币种）
	Commission float64
	// Good PnL 严格大于 Commission
	Good bool
	// Failed 是否因下单失败而中止
	Failed bool
	// FailReason 失败原因
	FailReason string
	// FilledLegs 已成交腿数
	FilledLegs int
	// Legs 三条腿明细（仅前 FilledLegs 条有效）
	Legs [3]LegFill
}

// Completed 判断三条腿是否全部成交
func (r *ExecutionResult) Completed() bool {
	return !r.Failed && r.FilledLegs == 3
}

// TradeRecord 成交日志记录（每个执行环路一行）
type TradeRecord struct {
	// TsUnixNs 记录时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// RunID 运行标识
	RunID string `json:"run_id"`
	// ExecID 执行标识
	ExecID string `json:"exec_id"`
	// Leg1 第一条腿交易对代码
	Leg1 string `json:"leg1"`
	// Leg2 第二条腿交易对代码
	Leg2 string `json:"leg2"`
	// Leg3 第三条腿交易对代码
	Leg3 string `json:"leg3"`
	// Factor 盈利因子
	Factor float64 `json:"factor"`
	// PnL 净盈亏（起始币种）
	PnL float64 `json:"pnl"`
	// Commission 手续费（起始币种）
	Commission float64 `json:"commission"`
	// Good 是否为好交易
	Good bool `json:"good"`
	// Failed 是否失败
	Failed bool `json:"failed"`
}

// LatencyRecord 时延日志记录（每次更新一行）
type LatencyRecord struct {
	// TsUnixNs 记录时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// RunID 运行标识
	RunID string `json:"run_id"`
	// ElapsedUs 本次更新耗时（微秒）
	ElapsedUs int64 `json:"elapsed_us"`
	// Label 阈值判定: pass / advisory / critical
	Label string `json:"label"`
	// Qualified 本次更新满足阈值的环路数
	Qualified int `json:"qualified"`
	// Executed 本次更新执行的环路数
	Executed int `json:"executed"`
}

// ToTradeRecord 将执行结果转换为日志记录
// 未成交的腿交易对代码为空。
func (r *ExecutionResult) ToTradeRecord(u *Universe, runID string, tsUnixNs int64) *TradeRecord {
	var legs [3]string
	for k := 0; k < r.FilledLegs && k < 3; k++ {
		legs[k] = u.SymbolOf(r.Legs[k].Pair)
	}
	return &TradeRecord{
		TsUnixNs:   tsUnixNs,
		RunID:      runID,
		ExecID:     r.ID,
		Leg1:       legs[0],
		Leg2:       legs[1],
		Leg3:       legs[2],
		Factor:     r.Factor,
		PnL:        r.PnL,
		Commission: r.Commission,
		Good:       r.Good,
		Failed:     r.Failed,
	}
}
