// Package synthetic 生成可复现的伪随机 L1 报价流，用于离线演练和测试。
// 每个 tick 随机选取两个不同币种，mid ∈ [0.5, 1.5)，spread ∈ [5, 10) bp 绝对值。
package synthetic

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/util/timeutil"
)

// eventStepMs 相邻 tick 的模拟事件时间间隔
const eventStepMs = 200

// Generator 伪随机报价生成器（非并发安全）
// 相同种子和币种集合产生相同的报价序列。
type Generator struct {
	universe *model.Universe
	rnd      *rand.Rand
	// startMs 首个 tick 的模拟事件时间
	startMs int64
	seq     int64
}

// NewGenerator 创建生成器
// 参数 u: 币种集合
// 参数 seed: 随机种子
// 参数 startMs: 首个 tick 的模拟事件时间（毫秒）
func NewGenerator(u *model.Universe, seed int64, startMs int64) *Generator {
	return &Generator{
		universe: u,
		rnd:      rand.New(rand.NewSource(seed)),
		startMs:  startMs,
	}
}

// Next 生成下一个 tick（ArrivedAtUnixNs 由调用方填写）
func (g *Generator) Next() model.Tick {
	n := g.universe.Len()
	from := g.rnd.Intn(n)
	to := g.rnd.Intn(n - 1)
	if to >= from {
		to++
	}

	mid := 0.5 + g.rnd.Float64()
	spread := 0.0005 + g.rnd.Float64()*0.0005

	tick := model.Tick{
		Symbol:       g.universe.PairCode(from, to),
		Quote:        model.Quote{Bid: mid - spread/2, Ask: mid + spread/2},
		ExchTsUnixMs: g.startMs + g.seq*eventStepMs,
	}
	g.seq++
	return tick
}

// Feed 合成行情源
type Feed struct {
	gen      *Generator
	interval time.Duration
	// total tick 总数，0 表示不限
	total int
	ch    chan model.Tick
	log   *zap.Logger
}

// NewFeed 创建合成行情源
// 参数 u: 币种集合
// 参数 cfg: 合成行情配置
// 参数 bufferSize: tick 通道容量
func NewFeed(u *model.Universe, cfg config.SyntheticFeedConfig, bufferSize int, logger *zap.Logger) *Feed {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		gen:      NewGenerator(u, cfg.Seed, timeutil.NowNano()/1_000_000),
		interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		total:    cfg.Ticks,
		ch:       make(chan model.Tick, bufferSize),
		log:      logger.Named("synthetic"),
	}
}

// Ticks 返回 tick 通道；Run 结束时关闭
func (f *Feed) Ticks() <-chan model.Tick {
	return f.ch
}

// Run 持续产生 tick，直到达到总数或 ctx 取消
// 达到总数时返回 nil。
func (f *Feed) Run(ctx context.Context) error {
	defer close(f.ch)

	var tickC <-chan time.Time
	if f.interval > 0 {
		t := time.NewTicker(f.interval)
		defer t.Stop()
		tickC = t.C
	}

	for i := 0; f.total == 0 || i < f.total; i++ {
		if tickC != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tickC:
			}
		}

		tick := f.gen.Next()
		tick.ArrivedAtUnixNs = timeutil.NowNano()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case f.ch <- tick:
		}
	}

	f.log.Info("合成行情已全部发出", zap.Int("ticks", f.total))
	return nil
}
