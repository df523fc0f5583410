// Package timeutil 提供时间相关的工具函数。
// 主要用于更新耗时测量、记录时间戳以及交易时段判断。
package timeutil

import (
	"time"
)

var (
	// baseTime 基准时间点（包含单调时钟读数）
	baseTime = time.Now()
	// baseUnixNs 基准时间点对应的 Unix 纳秒时间戳
	baseUnixNs = baseTime.UnixNano()
)

// NowNano 获取当前时间的纳秒时间戳
// 使用“单调时钟 + 启动时 Unix 时间”组合实现，
// 系统时间跳变（NTP/手动调整）时时间差仍保持单调，不会污染耗时统计。
// 返回: 当前时间的 Unix 纳秒时间戳
func NowNano() int64 {
	return baseUnixNs + time.Since(baseTime).Nanoseconds()
}

// SinceNano 计算从指定纳秒时间戳到现在的时间差
// 参数 startNs: 开始时间（纳秒）
func SinceNano(startNs int64) time.Duration {
	return time.Duration(NowNano() - startNs)
}

// MsToNano 将毫秒时间戳转换为纳秒
func MsToNano(ms int64) int64 {
	return ms * 1_000_000
}

// NanoToTime 将纳秒时间戳转换为 time.Time
func NanoToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}

// Clock 时钟接口，便于在测试中注入固定时间
type Clock interface {
	Now() time.Time
}

// SystemClock 基于 NowNano 的系统时钟
type SystemClock struct{}

// Now 实现 Clock
func (SystemClock) Now() time.Time {
	return NanoToTime(NowNano())
}

// FixedClock 固定时间时钟（测试用）
type FixedClock struct {
	T time.Time
}

// Now 实现 Clock
func (c *FixedClock) Now() time.Time {
	return c.T
}

// Advance 推进时钟
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}

// Window 每日小时窗口 [StartHour, StopHour)
type Window struct {
	// Loc 时区；nil 表示本地时区
	Loc *time.Location
	// StartHour 开始小时（含）
	StartHour int
	// StopHour 结束小时（不含），最大 24
	StopHour int
}

// Contains 判断时间点是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	loc := w.Loc
	if loc == nil {
		loc = time.Local
	}
	h := t.In(loc).Hour()
	return h >= w.StartHour && h < w.StopHour
}
