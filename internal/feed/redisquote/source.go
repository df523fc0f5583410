// Package redisquote 从 Redis hash 读取外部报价。
// 每个交易对存放在 key = prefix + symbol 的 hash 中，字段 bid、ask（十进制字符串）。
package redisquote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/util/fastparse"
	"triarb-engine/internal/util/timeutil"
)

const (
	fieldBid = "bid"
	fieldAsk = "ask"
)

// Source Redis 报价源，实现 model.BatchPriceSource
type Source struct {
	rdb    *redis.Client
	prefix string
}

// New 连接 Redis 并验证连通性
// 参数 cfg: Redis 配置
// 返回: 无法 ping 通时返回错误
func New(ctx context.Context, cfg config.RedisFeedConfig) (*Source, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Source{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

func (s *Source) key(symbol string) string {
	return s.prefix + symbol
}

// GetQuote 查询单个交易对
// key 不存在或字段缺失时返回 ok=false；无法解析的价格视为源错误。
func (s *Source) GetQuote(ctx context.Context, symbol string) (model.Quote, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(symbol)).Result()
	if err != nil {
		return model.Quote{}, false, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return model.Quote{}, false, nil
	}
	q, ok, err := parseQuote(vals)
	if err != nil {
		return model.Quote{}, false, fmt.Errorf("redis: parse quote %s: %w", symbol, err)
	}
	return q, ok, nil
}

// GetQuotes 通过 pipeline 批量查询
// 不存在或无法解析的交易对不出现在结果中。
func (s *Source) GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	if len(symbols) == 0 {
		return map[string]model.Quote{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(symbols))
	for _, sym := range symbols {
		cmds[sym] = pipe.HGetAll(ctx, s.key(sym))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes pipeline: %w", err)
	}

	result := make(map[string]model.Quote, len(symbols))
	for sym, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, ok, err := parseQuote(vals)
		if err != nil || !ok {
			continue
		}
		result[sym] = q
	}
	return result, nil
}

// SetQuote 写入一个交易对的报价（供行情发布方与联调使用）
func (s *Source) SetQuote(ctx context.Context, symbol string, q model.Quote) error {
	fields := map[string]interface{}{
		fieldBid: fastparse.FormatFloat(q.Bid, -1),
		fieldAsk: fastparse.FormatFloat(q.Ask, -1),
	}
	if err := s.rdb.HSet(ctx, s.key(symbol), fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", symbol, err)
	}
	return nil
}

// Close 关闭连接
func (s *Source) Close() error {
	return s.rdb.Close()
}

// parseQuote 解析 hash 字段
// 两个字段都缺失时返回 ok=false；缺一个字段视为该方向无报价（0）。
func parseQuote(vals map[string]string) (model.Quote, bool, error) {
	bidStr, hasBid := vals[fieldBid]
	askStr, hasAsk := vals[fieldAsk]
	if !hasBid && !hasAsk {
		return model.Quote{}, false, nil
	}

	bid, err := fastparse.ParsePrice(bidStr)
	if err != nil {
		return model.Quote{}, false, fmt.Errorf("bid: %w", err)
	}
	ask, err := fastparse.ParsePrice(askStr)
	if err != nil {
		return model.Quote{}, false, fmt.Errorf("ask: %w", err)
	}

	q := model.Quote{Bid: bid, Ask: ask}
	if q.IsEmpty() {
		return model.Quote{}, false, nil
	}
	return q, true, nil
}

// Poller 按固定间隔产生触发信号（空 Symbol 的 tick）
// Redis 报价由外部持续更新，引擎每次触发时整表重新读取。
type Poller struct {
	interval time.Duration
	ch       chan model.Tick
	log      *zap.Logger
}

// NewPoller 创建轮询器
// 参数 intervalMs: 触发间隔（毫秒），须大于 0
func NewPoller(intervalMs int, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		interval: time.Duration(intervalMs) * time.Millisecond,
		ch:       make(chan model.Tick, 1),
		log:      logger.Named("redis_poller"),
	}
}

// Ticks 返回触发通道；Run 结束时关闭
func (p *Poller) Ticks() <-chan model.Tick {
	return p.ch
}

// Run 持续触发直到 ctx 取消
// 引擎处理慢于轮询间隔时丢弃多余的触发，不排队。
func (p *Poller) Run(ctx context.Context) error {
	defer close(p.ch)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	var dropped int64
	for {
		select {
		case <-ctx.Done():
			if dropped > 0 {
				p.log.Info("轮询结束", zap.Int64("dropped_triggers", dropped))
			}
			return ctx.Err()
		case <-t.C:
			select {
			case p.ch <- model.Tick{ArrivedAtUnixNs: timeutil.NowNano()}:
			default:
				dropped++
			}
		}
	}
}
