// Package main 是三角套利引擎的入口点。
// 每次行情更新时刷新 N×N 报价矩阵，枚举全部有序三币种环路，
// 对满足最小盈利因子的环路做模拟（或按手数取整的实盘）执行，并输出成交与时延日志。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/core/paper"
	"triarb-engine/internal/core/store"
	"triarb-engine/internal/engine"
	"triarb-engine/internal/feed/redisquote"
	"triarb-engine/internal/feed/synthetic"
	"triarb-engine/internal/feed/ws"
	"triarb-engine/internal/output/csvlog"
	"triarb-engine/internal/output/jsonl"
	"triarb-engine/internal/venue"
)

// feed 行情事件来源
type feed interface {
	Run(ctx context.Context) error
	Ticks() <-chan model.Tick
}

// syntheticBufferSize 合成行情通道容量
const syntheticBufferSize = 1024

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel).Named(cfg.App.Name)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM：停止接收新的更新，正在进行的更新运行到完成
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	universe, err := model.NewUniverse(cfg.Currencies)
	if err != nil {
		logger.Error("币种集合无效", zap.Error(err))
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()

	var (
		source  model.PriceSource
		quotes  *store.Store
		src     feed
		closers []func() error
	)

	switch cfg.Feed.Source {
	case config.SourceSynthetic:
		quotes = store.New()
		source = quotes
		src = synthetic.NewFeed(universe, cfg.Feed.Synthetic, syntheticBufferSize, logger)

	case config.SourceRedis:
		rs, err := redisquote.New(startCtx, cfg.Feed.Redis)
		if err != nil {
			logger.Error("Redis 连接失败", zap.Error(err))
			os.Exit(1)
		}
		closers = append(closers, rs.Close)
		source = rs
		src = redisquote.NewPoller(cfg.Feed.Redis.PollIntervalMs, logger)

	case config.SourceWS:
		client := ws.NewClient(cfg.Feed.WS, universe, logger)
		if err := client.Connect(startCtx); err != nil {
			logger.Error("报价 WebSocket 连接失败", zap.Error(err))
			os.Exit(1)
		}
		if err := client.Subscribe(); err != nil {
			logger.Error("报价订阅失败", zap.Error(err))
			os.Exit(1)
		}
		closers = append(closers, client.Close)
		quotes = store.New()
		source = quotes
		src = client
	}

	var v venue.Venue
	if cfg.Engine.Mode == config.ModeLive {
		v = venue.NewPaper(cfg.Venue)
		logger.Warn("实盘模式使用模拟下单接口，订单按最小手数取整后提交")
	}

	executor, err := paper.NewExecutor(universe, cfg.Engine, v, logger)
	if err != nil {
		logger.Error("创建执行器失败", zap.Error(err))
		os.Exit(1)
	}

	sink, err := newSink(cfg.Output)
	if err != nil {
		logger.Error("创建输出失败", zap.Error(err))
		os.Exit(1)
	}

	eng, err := engine.New(cfg, engine.Deps{
		Universe: universe,
		Source:   source,
		Store:    quotes,
		Executor: executor,
		Sink:     sink,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("创建引擎失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("引擎启动",
		zap.String("run_id", eng.RunID()),
		zap.String("mode", cfg.Engine.Mode),
		zap.String("feed", cfg.Feed.Source),
		zap.Strings("currencies", universe.Codes()),
		zap.Float64("min_profit_factor", cfg.Engine.MinProfitFactor),
		zap.Int("max_trades_per_tick", cfg.Engine.MaxTradesPerTick),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return src.Run(gctx) })
	g.Go(func() error { return eng.Run(gctx, src.Ticks()) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("运行异常退出", zap.Error(err))
	}

	summary := eng.Summary()
	logger.Info("运行汇总", summary.Fields()...)
	if cfg.Output.SummaryEnabled {
		if err := writeSummary(cfg.Output.Dir, summary); err != nil {
			logger.Warn("写入运行汇总失败", zap.Error(err))
		}
	}

	for _, c := range closers {
		_ = c()
	}
	if err := eng.Close(); err != nil {
		logger.Warn("关闭输出失败", zap.Error(err))
	}
	logger.Info("引擎已退出")
}

// newSink 按输出格式创建日志；成交与时延都关闭时返回 nil
func newSink(cfg config.OutputConfig) (engine.Sink, error) {
	if !cfg.TradesEnabled && !cfg.LatencyEnabled {
		return nil, nil
	}
	if cfg.Format == config.FormatJSONL {
		s, err := jsonl.NewSink(cfg.Dir, cfg.TradesEnabled, cfg.LatencyEnabled)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := csvlog.NewSink(cfg.Dir, cfg.TradesEnabled, cfg.LatencyEnabled)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// writeSummary 追加一行运行汇总到 summary.jsonl
func writeSummary(dir string, s engine.Summary) error {
	w, err := jsonl.NewWriter(filepath.Join(dir, "summary.jsonl"))
	if err != nil {
		return err
	}
	if err := w.Write(s); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
