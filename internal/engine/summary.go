package engine

import (
	"time"

	"go.uber.org/zap"

	"triarb-engine/internal/stats/latency"
	"triarb-engine/internal/stats/trade"
)

// Summary 运行汇总（退出时输出一次）
type Summary struct {
	RunID           string    `json:"run_id"`
	Mode            string    `json:"mode"`
	Currencies      []string  `json:"currencies"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	UptimeSec       float64   `json:"uptime_sec"`
	Updates         int64     `json:"updates"`
	SkippedUpdates  int64     `json:"skipped_updates"`
	SinkFailures    int64     `json:"sink_failures"`
	QuoteLookups    int       `json:"quote_lookups"`
	QuotesFound     int       `json:"quotes_found"`
	QuoteErrors     int       `json:"quote_errors"`
	MinProfitFactor float64   `json:"min_profit_factor"`

	Trades  trade.Snapshot  `json:"trades"`
	Latency latency.Summary `json:"latency"`
}

// Fields 转换为 zap 日志字段
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", s.RunID),
		zap.String("mode", s.Mode),
		zap.Float64("uptime_sec", s.UptimeSec),
		zap.Int64("updates", s.Updates),
		zap.Int64("skipped_updates", s.SkippedUpdates),
		zap.Int64("cycles_evaluated", s.Trades.CyclesEvaluated),
		zap.Int64("executed", s.Trades.Executed),
		zap.Int64("failed", s.Trades.Failed),
		zap.Int64("good_trades", s.Trades.GoodTrades),
		zap.Int64("bad_trades", s.Trades.BadTrades),
		zap.Float64("total_commission", s.Trades.TotalCommission),
		zap.Float64("total_pnl", s.Trades.TotalPnL),
		zap.Float64("best_factor", s.Trades.BestFactor),
		zap.Strings("best_cycle", s.Trades.BestCycle),
		zap.Int("pairs_traded", len(s.Trades.Pairs)),
		zap.Any("pairs", s.Trades.Pairs),
		zap.Int64("latency_count", s.Latency.Count),
		zap.Float64("latency_avg_ms", s.Latency.AvgMs),
		zap.Float64("latency_min_ms", s.Latency.MinMs),
		zap.Float64("latency_max_ms", s.Latency.MaxMs),
		zap.Int64("latency_advisories", s.Latency.Advisories),
		zap.Int64("latency_criticals", s.Latency.Criticals),
		zap.Int64("sink_failures", s.SinkFailures),
	}
}
