package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envPrefix 环境变量前缀
const envPrefix = "TRIARB_"

// applyEnvOverrides 读取 .env（若存在）和 TRIARB_* 环境变量覆盖配置
// 便于部署时注入 Redis 密码等敏感信息，不必修改 YAML 文件。
func applyEnvOverrides(cfg *Config) {
	// .env 不存在时静默忽略
	_ = godotenv.Load()

	setStr(&cfg.App.LogLevel, "LOG_LEVEL")
	setStr(&cfg.Engine.Mode, "ENGINE_MODE")
	setFloat(&cfg.Engine.StartCapital, "ENGINE_START_CAPITAL")
	setFloat(&cfg.Engine.CommissionPerMillion, "ENGINE_COMMISSION_PER_MILLION")
	setFloat(&cfg.Engine.MinProfitFactor, "ENGINE_MIN_PROFIT_FACTOR")
	setInt(&cfg.Engine.MaxTradesPerTick, "ENGINE_MAX_TRADES_PER_TICK")

	setStr(&cfg.Feed.Source, "FEED_SOURCE")
	setStr(&cfg.Feed.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Feed.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Feed.Redis.DB, "REDIS_DB")
	setStr(&cfg.Feed.WS.URL, "WS_URL")

	setStr(&cfg.Output.Dir, "OUTPUT_DIR")

	if v := os.Getenv(envPrefix + "CURRENCIES"); v != "" {
		parts := strings.Split(v, ",")
		codes := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				codes = append(codes, p)
			}
		}
		cfg.Currencies = codes
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
