package jsonl

import (
	"errors"
	"path/filepath"

	"triarb-engine/internal/core/model"
)

// Sink 成交与时延日志（JSONL）
// 两类记录分别写入 trades.jsonl 和 latency.jsonl；未启用的一类为 nil。
type Sink struct {
	trades  *Writer
	latency *Writer
}

// NewSink 在目录下创建 JSONL 日志
// 参数 dir: 输出目录
// 参数 trades: 是否输出成交记录
// 参数 latency: 是否输出时延记录
func NewSink(dir string, trades, latency bool) (*Sink, error) {
	s := &Sink{}
	if trades {
		w, err := NewWriter(filepath.Join(dir, "trades.jsonl"))
		if err != nil {
			return nil, err
		}
		s.trades = w
	}
	if latency {
		w, err := NewWriter(filepath.Join(dir, "latency.jsonl"))
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.latency = w
	}
	return s, nil
}

// AppendTrade 写入一条成交记录
func (s *Sink) AppendTrade(rec *model.TradeRecord) error {
	if s.trades == nil {
		return nil
	}
	return s.trades.Write(rec)
}

// AppendLatency 写入一条时延记录
func (s *Sink) AppendLatency(rec *model.LatencyRecord) error {
	if s.latency == nil {
		return nil
	}
	return s.latency.Write(rec)
}

// Flush 刷新两个文件
func (s *Sink) Flush() error {
	var errs []error
	if s.trades != nil {
		errs = append(errs, s.trades.Flush())
	}
	if s.latency != nil {
		errs = append(errs, s.latency.Flush())
	}
	return errors.Join(errs...)
}

// Close 关闭两个文件
func (s *Sink) Close() error {
	var errs []error
	if s.trades != nil {
		errs = append(errs, s.trades.Close())
	}
	if s.latency != nil {
		errs = append(errs, s.latency.Close())
	}
	return errors.Join(errs...)
}
