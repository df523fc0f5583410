// Package config 配置模块测试
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigValidation_MinProfitFactor 测试最小盈利因子必须严格大于 1
func TestConfigValidation_MinProfitFactor(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("盈利因子不大于 1 应验证失败", prop.ForAll(
		func(f float64) bool {
			cfg := createValidConfig()
			cfg.Engine.MinProfitFactor = f
			return cfg.Validate() != nil
		},
		gen.Float64Range(-10, 1),
	))

	properties.Property("盈利因子大于 1 应通过验证", prop.ForAll(
		func(f float64) bool {
			cfg := createValidConfig()
			cfg.Engine.MinProfitFactor = f
			return cfg.Validate() == nil
		},
		gen.Float64Range(1.000001, 2),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_EngineParams 测试执行参数验证
func TestConfigValidation_EngineParams(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("起始资金非正数应验证失败", prop.ForAll(
		func(capital float64) bool {
			cfg := createValidConfig()
			cfg.Engine.StartCapital = capital
			return cfg.Validate() != nil
		},
		gen.Float64Range(-1e9, 0),
	))

	properties.Property("手续费为负数应验证失败", prop.ForAll(
		func(rate float64) bool {
			cfg := createValidConfig()
			cfg.Engine.CommissionPerMillion = rate
			return cfg.Validate() != nil
		},
		gen.Float64Range(-1000, -0.0001),
	))

	properties.Property("执行上限非正数应验证失败", prop.ForAll(
		func(n int) bool {
			cfg := createValidConfig()
			cfg.Engine.MaxTradesPerTick = n
			return cfg.Validate() != nil
		},
		gen.IntRange(-100, 0),
	))

	properties.Property("有效参数应通过验证", prop.ForAll(
		func(capital, rate float64, n, workers int) bool {
			cfg := createValidConfig()
			cfg.Engine.StartCapital = capital
			cfg.Engine.CommissionPerMillion = rate
			cfg.Engine.MaxTradesPerTick = n
			cfg.Engine.RefreshWorkers = workers
			return cfg.Validate() == nil
		},
		gen.Float64Range(1, 1e9),
		gen.Float64Range(0, 1000),
		gen.IntRange(1, 1000),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_LatencyThresholds 测试时延阈值单调性
func TestConfigValidation_LatencyThresholds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("严重阈值小于提示阈值应验证失败", prop.ForAll(
		func(advisory, gap float64) bool {
			cfg := createValidConfig()
			cfg.Latency.AdvisoryThresholdMs = advisory
			cfg.Latency.CriticalThresholdMs = advisory - gap
			return cfg.Validate() != nil
		},
		gen.Float64Range(1, 100),
		gen.Float64Range(0.001, 0.999),
	))

	properties.Property("严重阈值不小于提示阈值应通过验证", prop.ForAll(
		func(advisory, gap float64) bool {
			cfg := createValidConfig()
			cfg.Latency.AdvisoryThresholdMs = advisory
			cfg.Latency.CriticalThresholdMs = advisory + gap
			return cfg.Validate() == nil
		},
		gen.Float64Range(0.1, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_TradingHours 测试交易时段验证
func TestConfigValidation_TradingHours(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("start_hour >= stop_hour 应验证失败", prop.ForAll(
		func(start, back int) bool {
			cfg := createValidConfig()
			cfg.Engine.TradingHours = TradingHoursConfig{Enabled: true, StartHour: start, StopHour: start - back}
			return cfg.Validate() != nil
		},
		gen.IntRange(1, 23),
		gen.IntRange(0, 1),
	))

	properties.Property("合法时段应通过验证", prop.ForAll(
		func(start, span int) bool {
			stop := start + span
			if stop > 24 {
				stop = 24
			}
			cfg := createValidConfig()
			cfg.Engine.TradingHours = TradingHoursConfig{Enabled: true, Location: "UTC", StartHour: start, StopHour: stop}
			return cfg.Validate() == nil
		},
		gen.IntRange(0, 23),
		gen.IntRange(1, 24),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Currencies 测试币种集合验证
func TestConfigValidation_Currencies(t *testing.T) {
	cases := []struct {
		name  string
		codes []string
		ok    bool
	}{
		{name: "三个币种", codes: []string{"USD", "EUR", "JPY"}, ok: true},
		{name: "少于三个", codes: []string{"USD", "EUR"}, ok: false},
		{name: "空代码", codes: []string{"USD", "", "JPY"}, ok: false},
		{name: "大小写重复", codes: []string{"USD", "EUR", "usd"}, ok: false},
		{name: "交易对代码冲突", codes: []string{"US", "USD", "EUR", "DEUR"}, ok: false},
		{name: "不等长但无冲突", codes: []string{"USD", "EUR", "JPY", "USDT"}, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := createValidConfig()
			cfg.Currencies = tc.codes
			err := cfg.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate()=%v, want ok=%v", err, tc.ok)
			}
		})
	}
}

// TestConfigValidation_LiveMode 测试实盘模式的最小手数
func TestConfigValidation_LiveMode(t *testing.T) {
	cfg := createValidConfig()
	cfg.Engine.Mode = ModeLive
	cfg.Venue.DefaultMinLot = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("实盘模式最小手数为 0 应验证失败")
	}

	cfg.Venue.DefaultMinLot = 1000
	cfg.Venue.MinLots = map[string]float64{"EURUSD": -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("实盘模式负数手数应验证失败")
	}

	cfg.Venue.MinLots = map[string]float64{"EURUSD": 500}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := cfg.Venue.MinLot("eurusd"); got != 500 {
		t.Fatalf("MinLot(eurusd)=%f, want 500", got)
	}
	if got := cfg.Venue.MinLot("USDJPY"); got != 1000 {
		t.Fatalf("MinLot(USDJPY)=%f, want 1000", got)
	}
}

// TestConfigValidation_ErrorAggregation 测试所有问题汇总为一个 ConfigurationError
func TestConfigValidation_ErrorAggregation(t *testing.T) {
	cfg := createValidConfig()
	cfg.Engine.MinProfitFactor = 1
	cfg.Engine.MaxTradesPerTick = 0
	cfg.Feed.Source = "kafka"

	err := cfg.Validate()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err=%v, want *ConfigurationError", err)
	}
	if len(cerr.Problems) != 3 {
		t.Fatalf("len(Problems)=%d, want 3: %v", len(cerr.Problems), cerr.Problems)
	}
}

// createValidConfig 创建一个有效的配置用于测试
func createValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test",
			LogLevel: "info",
		},
		Currencies: []string{"USD", "EUR", "JPY", "GBP"},
		Engine: EngineConfig{
			Mode:                 ModePaper,
			StartCapital:         1_000_000,
			CommissionPerMillion: 30,
			MinProfitFactor:      1.0001,
			MaxTradesPerTick:     3,
			RefreshWorkers:       1,
		},
		Latency: LatencyConfig{
			AdvisoryThresholdMs: 5,
			CriticalThresholdMs: 50,
		},
		Venue: VenueConfig{
			DefaultMinLot: 1000,
		},
		Feed: FeedConfig{
			Source:    SourceSynthetic,
			Synthetic: SyntheticFeedConfig{Seed: 42, Ticks: 100},
		},
		Output: OutputConfig{
			Dir:    "./output",
			Format: FormatCSV,
		},
	}
}

// TestLoad_ValidFile 测试从有效文件加载配置
func TestLoad_ValidFile(t *testing.T) {
	content := `
app:
  name: test-engine
  log_level: info

currencies: [USD, EUR, JPY, GBP, AUD, CAD, CHF, NZD, CNY, SEK]

engine:
  mode: paper
  start_capital: 1000000
  commission_per_million: 30
  min_profit_factor: 1.0001
  max_trades_per_tick: 2

latency:
  advisory_threshold_ms: 5

feed:
  source: synthetic
  synthetic:
    seed: 7
    ticks: 500

output:
  dir: ./output
  format: jsonl
  trades_enabled: true
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Name != "test-engine" {
		t.Errorf("App.Name = %s, want test-engine", cfg.App.Name)
	}
	if len(cfg.Currencies) != 10 {
		t.Errorf("len(Currencies) = %d, want 10", len(cfg.Currencies))
	}
	if cfg.Engine.MaxTradesPerTick != 2 {
		t.Errorf("Engine.MaxTradesPerTick = %d, want 2", cfg.Engine.MaxTradesPerTick)
	}
	// 默认值
	if cfg.Engine.RefreshWorkers != 1 {
		t.Errorf("Engine.RefreshWorkers = %d, want 1", cfg.Engine.RefreshWorkers)
	}
	if cfg.Latency.CriticalThresholdMs != 50 {
		t.Errorf("Latency.CriticalThresholdMs = %f, want 50", cfg.Latency.CriticalThresholdMs)
	}
	if cfg.Feed.Synthetic.Seed != 7 {
		t.Errorf("Feed.Synthetic.Seed = %d, want 7", cfg.Feed.Synthetic.Seed)
	}
}

// TestLoad_EnvOverride 测试环境变量覆盖
func TestLoad_EnvOverride(t *testing.T) {
	content := `
currencies: [USD, EUR, JPY]
engine:
  min_profit_factor: 1.0001
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	t.Setenv("TRIARB_ENGINE_MAX_TRADES_PER_TICK", "7")
	t.Setenv("TRIARB_CURRENCIES", "USD, EUR, GBP, CHF")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Engine.MaxTradesPerTick != 7 {
		t.Errorf("MaxTradesPerTick = %d, want 7", cfg.Engine.MaxTradesPerTick)
	}
	if len(cfg.Currencies) != 4 || cfg.Currencies[3] != "CHF" {
		t.Errorf("Currencies = %v, want [USD EUR GBP CHF]", cfg.Currencies)
	}
}

// TestLoad_InvalidFile 测试加载无效文件
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("加载不存在的文件应返回错误")
	}
}

// TestLoad_InvalidYAML 测试加载无效 YAML
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(tmpFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	_, err := Load(tmpFile)
	if err == nil {
		t.Error("加载无效 YAML 应返回错误")
	}
}
