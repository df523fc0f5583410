// Package config 负责加载和验证 YAML 配置文件。
// 提供引擎所需的所有配置项，包括币种集合、执行参数、时延阈值、行情源和输出设置。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 执行模式
const (
	// ModePaper 纯模拟执行
	ModePaper = "paper"
	// ModeLive 通过下单接口执行（按最小手数取整）
	ModeLive = "live"
)

// 行情源
const (
	// SourceSynthetic 内置的合成行情流
	SourceSynthetic = "synthetic"
	// SourceRedis Redis 报价缓存
	SourceRedis = "redis"
	// SourceWS WebSocket 报价流
	SourceWS = "ws"
)

// 输出格式
const (
	// FormatCSV 逗号分隔
	FormatCSV = "csv"
	// FormatJSONL 每行一个 JSON
	FormatJSONL = "jsonl"
)

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Currencies 有序币种列表
	Currencies []string `yaml:"currencies"`
	// Engine 引擎执行参数
	Engine EngineConfig `yaml:"engine"`
	// Latency 时延监控配置
	Latency LatencyConfig `yaml:"latency"`
	// Venue 下单接口配置（仅实盘模式）
	Venue VenueConfig `yaml:"venue"`
	// Feed 行情源配置
	Feed FeedConfig `yaml:"feed"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// EngineConfig 引擎执行参数
type EngineConfig struct {
	// Mode 执行模式: paper 或 live
	Mode string `yaml:"mode"`
	// StartCapital 每个环路的起始资金（以环路起始币种计）
	StartCapital float64 `yaml:"start_capital"`
	// CommissionPerMillion 每百万名义金额的手续费
	CommissionPerMillion float64 `yaml:"commission_per_million"`
	// MinProfitFactor 最小盈利因子，必须严格大于 1（如 1.0001 = 1 bp）
	MinProfitFactor float64 `yaml:"min_profit_factor"`
	// MaxTradesPerTick 单次更新最多执行的环路数
	MaxTradesPerTick int `yaml:"max_trades_per_tick"`
	// RefreshWorkers 刷新报价矩阵的并发行数（1 表示串行）
	RefreshWorkers int `yaml:"refresh_workers"`
	// TradingHours 交易时段
	TradingHours TradingHoursConfig `yaml:"trading_hours"`
}

// TradingHoursConfig 交易时段门控
// 本地时间小时数落在 [StartHour, StopHour) 之外时整次更新跳过。
type TradingHoursConfig struct {
	// Enabled 是否启用
	Enabled bool `yaml:"enabled"`
	// Location 时区名称，如 Asia/Shanghai；为空使用本地时区
	Location string `yaml:"location"`
	// StartHour 开始小时（含）
	StartHour int `yaml:"start_hour"`
	// StopHour 结束小时（不含）
	StopHour int `yaml:"stop_hour"`
}

// LatencyConfig 时延监控配置
type LatencyConfig struct {
	// AdvisoryThresholdMs 提示阈值（毫秒），超过时输出告警但不影响处理
	AdvisoryThresholdMs float64 `yaml:"advisory_threshold_ms"`
	// CriticalThresholdMs 严重阈值（毫秒），必须不小于提示阈值
	CriticalThresholdMs float64 `yaml:"critical_threshold_ms"`
}

// VenueConfig 下单接口配置
type VenueConfig struct {
	// DefaultMinLot 默认最小下单手数
	DefaultMinLot float64 `yaml:"default_min_lot"`
	// MinLots 按交易对覆盖最小手数，key 如 EURUSD
	MinLots map[string]float64 `yaml:"min_lots"`
}

// FeedConfig 行情源配置
type FeedConfig struct {
	// Source 行情源: synthetic, redis, ws
	Source string `yaml:"source"`
	// Synthetic 合成行情配置
	Synthetic SyntheticFeedConfig `yaml:"synthetic"`
	// Redis Redis 报价缓存配置
	Redis RedisFeedConfig `yaml:"redis"`
	// WS WebSocket 报价流配置
	WS WSFeedConfig `yaml:"ws"`
}

// SyntheticFeedConfig 合成行情配置
type SyntheticFeedConfig struct {
	// Seed 随机种子
	Seed int64 `yaml:"seed"`
	// IntervalMs 两次 tick 的间隔（毫秒），0 表示不等待
	IntervalMs int `yaml:"interval_ms"`
	// Ticks 产生的 tick 总数，0 表示不限
	Ticks int `yaml:"ticks"`
}

// RedisFeedConfig Redis 报价缓存配置
type RedisFeedConfig struct {
	// Addr 地址，如 127.0.0.1:6379
	Addr string `yaml:"addr"`
	// Password 密码
	Password string `yaml:"password"`
	// DB 数据库编号
	DB int `yaml:"db"`
	// PoolSize 连接池大小
	PoolSize int `yaml:"pool_size"`
	// KeyPrefix 报价 hash 的 key 前缀，完整 key 为 prefix + symbol
	KeyPrefix string `yaml:"key_prefix"`
	// PollIntervalMs 轮询触发更新的间隔（毫秒）
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// WSFeedConfig WebSocket 报价流配置
type WSFeedConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	// BufferSize tick 通道容量
	BufferSize int `yaml:"buffer_size"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// Format 日志格式: csv 或 jsonl
	Format string `yaml:"format"`
	// TradesEnabled 是否输出成交记录
	TradesEnabled bool `yaml:"trades_enabled"`
	// LatencyEnabled 是否输出时延记录
	LatencyEnabled bool `yaml:"latency_enabled"`
	// SummaryEnabled 是否在退出时输出汇总
	SummaryEnabled bool `yaml:"summary_enabled"`
}

// ConfigurationError 配置错误（启动阶段致命）
// 汇总所有校验失败项，进程不会开始处理更新。
type ConfigurationError struct {
	// Problems 每一项校验失败的描述
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置验证错误:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Load 从文件加载配置，应用环境变量覆盖并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "triarb-engine"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Engine.Mode == "" {
		c.Engine.Mode = ModePaper
	}
	if c.Engine.StartCapital == 0 {
		c.Engine.StartCapital = 1_000_000
	}
	if c.Engine.MinProfitFactor == 0 {
		c.Engine.MinProfitFactor = 1.0001 // 1 bp
	}
	if c.Engine.MaxTradesPerTick == 0 {
		c.Engine.MaxTradesPerTick = 3
	}
	if c.Engine.RefreshWorkers == 0 {
		c.Engine.RefreshWorkers = 1
	}
	if c.Engine.TradingHours.Enabled && c.Engine.TradingHours.StopHour == 0 {
		c.Engine.TradingHours.StopHour = 24
	}

	if c.Latency.AdvisoryThresholdMs == 0 {
		c.Latency.AdvisoryThresholdMs = 5
	}
	if c.Latency.CriticalThresholdMs == 0 {
		c.Latency.CriticalThresholdMs = 10 * c.Latency.AdvisoryThresholdMs
	}

	if c.Venue.DefaultMinLot == 0 {
		c.Venue.DefaultMinLot = 1000
	}

	if c.Feed.Source == "" {
		c.Feed.Source = SourceSynthetic
	}
	if c.Feed.Synthetic.Seed == 0 {
		c.Feed.Synthetic.Seed = 42
	}
	if c.Feed.Redis.KeyPrefix == "" {
		c.Feed.Redis.KeyPrefix = "quote:"
	}
	if c.Feed.Redis.PollIntervalMs == 0 {
		c.Feed.Redis.PollIntervalMs = 200
	}
	if c.Feed.Redis.PoolSize == 0 {
		c.Feed.Redis.PoolSize = 10
	}
	if c.Feed.WS.PingIntervalMs == 0 {
		c.Feed.WS.PingIntervalMs = 15000 // 15 秒
	}
	if c.Feed.WS.ReadTimeoutMs == 0 {
		c.Feed.WS.ReadTimeoutMs = 30000 // 30 秒
	}
	if c.Feed.WS.BufferSize == 0 {
		c.Feed.WS.BufferSize = 1000
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatCSV
	}
}

// Validate 验证配置合法性
// 返回: 若配置无效则返回 *ConfigurationError
func (c *Config) Validate() error {
	var errs []string

	// 币种集合：至少三个、不可为空、不可重复
	if len(c.Currencies) < 3 {
		errs = append(errs, "currencies: 至少需要配置三个币种")
	}
	seen := make(map[string]int, len(c.Currencies))
	for i, code := range c.Currencies {
		norm := strings.ToUpper(strings.TrimSpace(code))
		if norm == "" {
			errs = append(errs, fmt.Sprintf("currencies[%d]: 币种代码不能为空", i))
			continue
		}
		if j, dup := seen[norm]; dup {
			errs = append(errs, fmt.Sprintf("currencies[%d]: 与 currencies[%d] 重复 '%s'", i, j, norm))
			continue
		}
		seen[norm] = i
	}
	// 交易对代码按币种代码拼接，不等长代码可能拼出相同的交易对
	if sym, dup := pairCodeConflict(seen); dup {
		errs = append(errs, fmt.Sprintf("currencies: 交易对代码冲突 '%s'", sym))
	}

	// 执行参数
	switch c.Engine.Mode {
	case ModePaper, ModeLive:
	default:
		errs = append(errs, fmt.Sprintf("engine.mode: 无效的执行模式 '%s'，有效值: paper, live", c.Engine.Mode))
	}
	if c.Engine.StartCapital <= 0 {
		errs = append(errs, "engine.start_capital: 起始资金必须为正数")
	}
	if c.Engine.CommissionPerMillion < 0 {
		errs = append(errs, "engine.commission_per_million: 手续费不能为负数")
	}
	if c.Engine.MinProfitFactor <= 1 {
		errs = append(errs, fmt.Sprintf("engine.min_profit_factor: 最小盈利因子必须严格大于 1，当前值: %f", c.Engine.MinProfitFactor))
	}
	if c.Engine.MaxTradesPerTick <= 0 {
		errs = append(errs, "engine.max_trades_per_tick: 单次更新执行上限必须为正数")
	}
	if c.Engine.RefreshWorkers < 1 {
		errs = append(errs, "engine.refresh_workers: 并发数不能小于 1")
	}

	// 交易时段
	th := c.Engine.TradingHours
	if th.Enabled {
		if th.StartHour < 0 || th.StartHour > 23 {
			errs = append(errs, "engine.trading_hours.start_hour: 必须在 0-23 之间")
		}
		if th.StopHour < 1 || th.StopHour > 24 {
			errs = append(errs, "engine.trading_hours.stop_hour: 必须在 1-24 之间")
		}
		if th.StartHour >= th.StopHour {
			errs = append(errs, "engine.trading_hours: start_hour 必须小于 stop_hour")
		}
		if th.Location != "" {
			if _, err := time.LoadLocation(th.Location); err != nil {
				errs = append(errs, fmt.Sprintf("engine.trading_hours.location: 无效的时区 '%s'", th.Location))
			}
		}
	}

	// 时延阈值必须单调
	if c.Latency.AdvisoryThresholdMs <= 0 {
		errs = append(errs, "latency.advisory_threshold_ms: 提示阈值必须为正数")
	}
	if c.Latency.CriticalThresholdMs < c.Latency.AdvisoryThresholdMs {
		errs = append(errs, "latency.critical_threshold_ms: 严重阈值不能小于提示阈值")
	}

	// 实盘模式需要合法的最小手数
	if c.Engine.Mode == ModeLive {
		if c.Venue.DefaultMinLot <= 0 {
			errs = append(errs, "venue.default_min_lot: 实盘模式下最小手数必须为正数")
		}
		for sym, lot := range c.Venue.MinLots {
			if lot <= 0 {
				errs = append(errs, fmt.Sprintf("venue.min_lots[%s]: 最小手数必须为正数", sym))
			}
		}
	}

	// 行情源
	switch c.Feed.Source {
	case SourceSynthetic:
		if c.Feed.Synthetic.IntervalMs < 0 || c.Feed.Synthetic.Ticks < 0 {
			errs = append(errs, "feed.synthetic: interval_ms 与 ticks 不能为负数")
		}
	case SourceRedis:
		if c.Feed.Redis.Addr == "" {
			errs = append(errs, "feed.redis.addr: Redis 地址不能为空")
		}
		if c.Feed.Redis.PollIntervalMs <= 0 {
			errs = append(errs, "feed.redis.poll_interval_ms: 轮询间隔必须为正数")
		}
	case SourceWS:
		if c.Feed.WS.URL == "" {
			errs = append(errs, "feed.ws.url: WebSocket 地址不能为空")
		}
	default:
		errs = append(errs, fmt.Sprintf("feed.source: 无效的行情源 '%s'，有效值: synthetic, redis, ws", c.Feed.Source))
	}

	// 输出
	switch c.Output.Format {
	case FormatCSV, FormatJSONL:
	default:
		errs = append(errs, fmt.Sprintf("output.format: 无效的输出格式 '%s'，有效值: csv, jsonl", c.Output.Format))
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return &ConfigurationError{Problems: errs}
	}
	return nil
}

// AdvisoryThreshold 返回提示阈值
func (l LatencyConfig) AdvisoryThreshold() time.Duration {
	return time.Duration(l.AdvisoryThresholdMs * float64(time.Millisecond))
}

// CriticalThreshold 返回严重阈值
func (l LatencyConfig) CriticalThreshold() time.Duration {
	return time.Duration(l.CriticalThresholdMs * float64(time.Millisecond))
}

// MinLot 返回交易对的最小下单手数
func (v VenueConfig) MinLot(symbol string) float64 {
	if lot, ok := v.MinLots[strings.ToUpper(symbol)]; ok && lot > 0 {
		return lot
	}
	return v.DefaultMinLot
}

// pairCodeConflict 检查全部有序币种对拼接后的交易对代码是否唯一
func pairCodeConflict(codes map[string]int) (string, bool) {
	pairs := make(map[string]struct{}, len(codes)*len(codes))
	for a := range codes {
		for b := range codes {
			if a == b {
				continue
			}
			if _, dup := pairs[a+b]; dup {
				return a + b, true
			}
			pairs[a+b] = struct{}{}
		}
	}
	return "", false
}
