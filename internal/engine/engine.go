// Package engine 实现每次行情更新的处理流程：
// 交易时段门控 → 刷新报价矩阵 → 扫描环路 → 执行（受单次上限约束）→ 写日志。
// 单线程、逐次运行到完成，更新之间不重叠。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/matrix"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/core/paper"
	"triarb-engine/internal/core/scan"
	"triarb-engine/internal/core/store"
	"triarb-engine/internal/stats/latency"
	"triarb-engine/internal/stats/trade"
	"triarb-engine/internal/util/timeutil"
)

// State 单次更新所处阶段
type State int32

const (
	// StateIdle 空闲，等待下一次更新
	StateIdle State = iota
	// StateRefreshing 刷新报价矩阵
	StateRefreshing
	// StateScanning 扫描环路
	StateScanning
	// StateExecuting 执行环路
	StateExecuting
)

// String 返回阶段名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateScanning:
		return "scanning"
	case StateExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// Sink 成交与时延日志
// 在更新内同步写入，更新结束时 Flush；写入失败不影响内存统计。
type Sink interface {
	AppendTrade(rec *model.TradeRecord) error
	AppendLatency(rec *model.LatencyRecord) error
	Flush() error
	Close() error
}

type nopSink struct{}

func (nopSink) AppendTrade(*model.TradeRecord) error     { return nil }
func (nopSink) AppendLatency(*model.LatencyRecord) error { return nil }
func (nopSink) Flush() error                             { return nil }
func (nopSink) Close() error                             { return nil }

// Deps 引擎依赖
type Deps struct {
	// Universe 币种集合
	Universe *model.Universe
	// Source 报价源
	Source model.PriceSource
	// Store 最新报价缓存；非 nil 时 Run 会把带 Symbol 的 tick 写入
	Store *store.Store
	// Executor 环路执行器
	Executor *paper.Executor
	// Sink 日志；nil 表示不输出
	Sink Sink
	// Logger 日志
	Logger *zap.Logger
	// Clock 时钟；nil 使用系统时钟
	Clock timeutil.Clock
}

// Run 单次运行的上下文
// 启动时创建，贯穿每次更新，退出时汇总；运行期间从不重置。
type Run struct {
	// ID 运行标识
	ID string
	// StartedAt 启动时间
	StartedAt time.Time
	// Trades 成交统计
	Trades *trade.Tracker
	// Latency 耗时统计
	Latency *latency.Monitor

	// Updates 已处理的更新次数
	Updates int64
	// SkippedUpdates 交易时段外跳过的更新次数
	SkippedUpdates int64
	// SinkFailures 日志写入失败次数
	SinkFailures int64
	// Lookups 报价查询累计统计
	Lookups matrix.Stats
}

// UpdateResult 单次更新的结果
type UpdateResult struct {
	// Skipped 是否因交易时段被跳过
	Skipped bool
	// Refresh 矩阵刷新统计
	Refresh matrix.Stats
	// Qualified 满足阈值的环路数
	Qualified int
	// Attempted 尝试执行的环路数
	Attempted int
	// Executed 完整成交的环路数
	Executed int
	// Sample 耗时样本
	Sample latency.Sample
}

// Engine 套利引擎
type Engine struct {
	cfg      config.EngineConfig
	universe *model.Universe
	matrix   *model.Matrix

	refresher *matrix.Refresher
	scanner   *scan.Scanner
	executor  *paper.Executor
	store     *store.Store
	sink      Sink

	logger *zap.Logger
	clock  timeutil.Clock
	// window 交易时段；nil 表示不限制
	window *timeutil.Window

	run   *Run
	state atomic.Int32
}

// New 创建引擎
// 参数 cfg: 完整配置（使用 engine 与 latency 两部分）
// 参数 deps: 依赖
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if deps.Universe == nil || deps.Universe.Len() < 3 {
		return nil, errors.New("至少需要三个币种")
	}
	if deps.Source == nil {
		return nil, errors.New("缺少报价源")
	}
	if deps.Executor == nil {
		return nil, errors.New("缺少执行器")
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.SystemClock{}
	}

	e := &Engine{
		cfg:       cfg.Engine,
		universe:  deps.Universe,
		matrix:    model.NewMatrix(deps.Universe.Len()),
		refresher: matrix.NewRefresher(deps.Universe, deps.Source, cfg.Engine.RefreshWorkers, deps.Logger),
		scanner:   scan.NewScanner(cfg.Engine.MinProfitFactor),
		executor:  deps.Executor,
		store:     deps.Store,
		sink:      deps.Sink,
		logger:    deps.Logger.Named("engine"),
		clock:     deps.Clock,
	}

	if th := cfg.Engine.TradingHours; th.Enabled {
		loc := time.Local
		if th.Location != "" {
			l, err := time.LoadLocation(th.Location)
			if err != nil {
				return nil, fmt.Errorf("加载时区失败: %w", err)
			}
			loc = l
		}
		e.window = &timeutil.Window{Loc: loc, StartHour: th.StartHour, StopHour: th.StopHour}
	}

	e.run = &Run{
		ID:        uuid.NewString(),
		StartedAt: e.clock.Now(),
		Trades:    trade.NewTracker(deps.Universe),
		Latency:   latency.NewMonitor(cfg.Latency.AdvisoryThreshold(), cfg.Latency.CriticalThreshold()),
	}
	return e, nil
}

// RunID 返回运行标识
func (e *Engine) RunID() string {
	return e.run.ID
}

// State 返回当前阶段
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Matrix 返回报价矩阵（只读，仅限引擎 goroutine 使用）
func (e *Engine) Matrix() *model.Matrix {
	return e.matrix
}

// Run 消费行情事件，每个事件驱动一次完整更新
// 参数 ticks: 行情事件通道；通道关闭时返回 nil
// 返回: ctx 取消时返回 ctx.Err()；正在进行的更新总会运行到完成
func (e *Engine) Run(ctx context.Context, ticks <-chan model.Tick) error {
	updCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			if tick.Symbol != "" && e.store != nil {
				e.store.Update(tick)
			}
			e.OnUpdate(updCtx)
		}
	}
}

// OnUpdate 处理一次更新
func (e *Engine) OnUpdate(ctx context.Context) UpdateResult {
	now := e.clock.Now()
	if e.window != nil && !e.window.Contains(now) {
		e.run.SkippedUpdates++
		return UpdateResult{Skipped: true}
	}

	e.run.Updates++

	var res UpdateResult
	res.Sample = e.run.Latency.Measure(func() {
		e.process(ctx, &res)
	})

	e.run.Lookups.Lookups += res.Refresh.Lookups
	e.run.Lookups.Found += res.Refresh.Found
	e.run.Lookups.Missing += res.Refresh.Missing
	e.run.Lookups.Errors += res.Refresh.Errors

	if res.Sample.Slow() {
		e.logger.Warn("更新耗时超过阈值",
			zap.String("label", string(res.Sample.Label)),
			zap.Duration("elapsed", res.Sample.Elapsed),
			zap.Int("qualified", res.Qualified),
			zap.Int("executed", res.Executed),
		)
	}

	e.sinkErr("latency", e.sink.AppendLatency(&model.LatencyRecord{
		TsUnixNs:  e.clock.Now().UnixNano(),
		RunID:     e.run.ID,
		ElapsedUs: res.Sample.Elapsed.Microseconds(),
		Label:     string(res.Sample.Label),
		Qualified: res.Qualified,
		Executed:  res.Executed,
	}))
	e.sinkErr("flush", e.sink.Flush())

	return res
}

// process 刷新 → 扫描 → 执行
// 达到单次上限后继续扫描以完成计数，但不再执行，剩余满足阈值的环路直接放弃。
func (e *Engine) process(ctx context.Context, res *UpdateResult) {
	e.setState(StateRefreshing)
	res.Refresh = e.refresher.Refresh(ctx, e.matrix)

	e.setState(StateScanning)
	for ev := range e.scanner.Scan(e.matrix) {
		e.run.Trades.RecordEvaluation(ev)
		if !ev.Qualifies {
			continue
		}
		res.Qualified++
		if res.Attempted >= e.cfg.MaxTradesPerTick {
			e.run.Trades.RecordCapSkip()
			continue
		}

		e.setState(StateExecuting)
		result := e.executor.Execute(ctx, ev.Opportunity())
		res.Attempted++
		if result.Completed() {
			res.Executed++
		}
		e.run.Trades.Record(&result)
		e.sinkErr("trade", e.sink.AppendTrade(result.ToTradeRecord(e.universe, e.run.ID, e.clock.Now().UnixNano())))
		e.setState(StateScanning)
	}
	e.setState(StateIdle)
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// sinkErr 日志写入失败只告警并计数
func (e *Engine) sinkErr(op string, err error) {
	if err == nil {
		return
	}
	e.run.SinkFailures++
	e.logger.Warn("写入日志失败",
		zap.String("op", op),
		zap.Int64("failures", e.run.SinkFailures),
		zap.Error(fmt.Errorf("%w: %w", model.ErrSinkWrite, err)),
	)
}

// Summary 生成运行汇总
func (e *Engine) Summary() Summary {
	now := e.clock.Now()
	mode := config.ModePaper
	if e.executor.Live() {
		mode = config.ModeLive
	}
	return Summary{
		RunID:           e.run.ID,
		Mode:            mode,
		Currencies:      e.universe.Codes(),
		StartedAt:       e.run.StartedAt,
		EndedAt:         now,
		UptimeSec:       now.Sub(e.run.StartedAt).Seconds(),
		Updates:         e.run.Updates,
		SkippedUpdates:  e.run.SkippedUpdates,
		SinkFailures:    e.run.SinkFailures,
		QuoteLookups:    e.run.Lookups.Lookups,
		QuotesFound:     e.run.Lookups.Found,
		QuoteErrors:     e.run.Lookups.Errors,
		MinProfitFactor: e.scanner.MinProfitFactor(),
		Trades:          e.run.Trades.Snapshot(),
		Latency:         e.run.Latency.Summary(),
	}
}

// Close 关闭日志
func (e *Engine) Close() error {
	return e.sink.Close()
}
