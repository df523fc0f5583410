// Package latency 测量每次更新的处理耗时并做阈值分级。
// 只保留 sum/count/min/max 聚合值，不保留原始样本。
package latency

import (
	"sync"
	"time"

	"triarb-engine/internal/util/timeutil"
)

// Label 阈值判定结果
type Label string

const (
	// LabelPass 未超过提示阈值
	LabelPass Label = "pass"
	// LabelAdvisory 超过提示阈值
	LabelAdvisory Label = "advisory"
	// LabelCritical 超过严重阈值
	LabelCritical Label = "critical"
)

// Sample 单次更新的耗时样本
type Sample struct {
	// Elapsed 耗时
	Elapsed time.Duration
	// Label 阈值判定
	Label Label
}

// Slow 是否超过提示阈值
func (s Sample) Slow() bool {
	return s.Label != LabelPass
}

// Summary 时延汇总（毫秒）
type Summary struct {
	// Count 样本数
	Count int64 `json:"count"`
	// AvgMs 平均耗时
	AvgMs float64 `json:"avg_ms"`
	// MinMs 最小耗时
	MinMs float64 `json:"min_ms"`
	// MaxMs 最大耗时
	MaxMs float64 `json:"max_ms"`
	// Advisories 超过提示阈值（未达严重阈值）的样本数
	Advisories int64 `json:"advisories"`
	// Criticals 超过严重阈值的样本数
	Criticals int64 `json:"criticals"`
	// AdvisoryThresholdMs 提示阈值
	AdvisoryThresholdMs float64 `json:"advisory_threshold_ms"`
	// CriticalThresholdMs 严重阈值
	CriticalThresholdMs float64 `json:"critical_threshold_ms"`
}

// Monitor 更新耗时监控器
// 超过阈值只做标记，从不中止或延迟处理。
type Monitor struct {
	advisory time.Duration
	critical time.Duration

	mu         sync.Mutex
	count      int64
	sumNs      int64
	minNs      int64
	maxNs      int64
	advisories int64
	criticals  int64
}

// NewMonitor 创建监控器
// 参数 advisory: 提示阈值
// 参数 critical: 严重阈值（不小于 advisory）
func NewMonitor(advisory, critical time.Duration) *Monitor {
	if critical < advisory {
		critical = advisory
	}
	return &Monitor{advisory: advisory, critical: critical}
}

// Measure 测量 fn 的耗时并计入统计
func (m *Monitor) Measure(fn func()) Sample {
	startNs := timeutil.NowNano()
	fn()
	return m.Add(timeutil.SinceNano(startNs))
}

// Add 计入一个耗时样本
func (m *Monitor) Add(d time.Duration) Sample {
	if d < 0 {
		d = 0
	}
	label := m.Classify(d)

	m.mu.Lock()
	defer m.mu.Unlock()

	ns := d.Nanoseconds()
	if m.count == 0 || ns < m.minNs {
		m.minNs = ns
	}
	if m.count == 0 || ns > m.maxNs {
		m.maxNs = ns
	}
	m.count++
	m.sumNs += ns

	switch label {
	case LabelCritical:
		m.criticals++
	case LabelAdvisory:
		m.advisories++
	}
	return Sample{Elapsed: d, Label: label}
}

// Classify 按阈值分级（严格大于阈值才算超限）
func (m *Monitor) Classify(d time.Duration) Label {
	switch {
	case d > m.critical:
		return LabelCritical
	case d > m.advisory:
		return LabelAdvisory
	default:
		return LabelPass
	}
}

// Summary 获取汇总快照
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Summary{
		Count:               m.count,
		Advisories:          m.advisories,
		Criticals:           m.criticals,
		AdvisoryThresholdMs: toMs(m.advisory.Nanoseconds()),
		CriticalThresholdMs: toMs(m.critical.Nanoseconds()),
	}
	if m.count == 0 {
		return out
	}
	out.AvgMs = toMs(m.sumNs) / float64(m.count)
	out.MinMs = toMs(m.minNs)
	out.MaxMs = toMs(m.maxNs)
	return out
}

func toMs(ns int64) float64 {
	return float64(ns) / 1_000_000.0
}
