// Package csvlog 实现成交与时延的 CSV 日志。
// 追加写入，一行一条记录；新文件先写表头。
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"triarb-engine/internal/core/model"
	"triarb-engine/internal/util/fastparse"
)

var (
	// TradeHeader 成交日志表头
	TradeHeader = []string{"ts_unix_ns", "run_id", "exec_id", "leg1", "leg2", "leg3", "factor", "pnl", "commission", "good", "failed"}
	// LatencyHeader 时延日志表头
	LatencyHeader = []string{"ts_unix_ns", "run_id", "elapsed_us", "label", "qualified", "executed"}
)

// file 单个 CSV 文件
type file struct {
	f  *os.File
	cw *csv.Writer
}

func openFile(path string, header []string) (*file, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("读取文件信息失败: %w", err)
	}

	out := &file{f: f, cw: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := out.cw.Write(header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}
	return out, nil
}

func (w *file) write(row []string) error {
	if err := w.cw.Write(row); err != nil {
		return fmt.Errorf("写入 CSV 行失败: %w", err)
	}
	return nil
}

func (w *file) flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

func (w *file) close() error {
	return errors.Join(w.flush(), w.f.Close())
}

// Sink CSV 日志（trades.csv 与 latency.csv）
// 单线程使用：由引擎在一次更新内同步写入，更新结束时 Flush。
type Sink struct {
	trades  *file
	latency *file
}

// NewSink 在目录下创建 CSV 日志
// 参数 dir: 输出目录
// 参数 trades: 是否输出成交记录
// 参数 latency: 是否输出时延记录
func NewSink(dir string, trades, latency bool) (*Sink, error) {
	s := &Sink{}
	if trades {
		f, err := openFile(filepath.Join(dir, "trades.csv"), TradeHeader)
		if err != nil {
			return nil, err
		}
		s.trades = f
	}
	if latency {
		f, err := openFile(filepath.Join(dir, "latency.csv"), LatencyHeader)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.latency = f
	}
	return s, nil
}

// AppendTrade 写入一条成交记录
func (s *Sink) AppendTrade(rec *model.TradeRecord) error {
	if s.trades == nil {
		return nil
	}
	return s.trades.write([]string{
		fastparse.FormatInt(rec.TsUnixNs),
		rec.RunID,
		rec.ExecID,
		rec.Leg1,
		rec.Leg2,
		rec.Leg3,
		fastparse.FormatFloat(rec.Factor, -1),
		fastparse.FormatFloat(rec.PnL, 6),
		fastparse.FormatFloat(rec.Commission, 6),
		fastparse.FormatBool(rec.Good),
		fastparse.FormatBool(rec.Failed),
	})
}

// AppendLatency 写入一条时延记录
func (s *Sink) AppendLatency(rec *model.LatencyRecord) error {
	if s.latency == nil {
		return nil
	}
	return s.latency.write([]string{
		fastparse.FormatInt(rec.TsUnixNs),
		rec.RunID,
		fastparse.FormatInt(rec.ElapsedUs),
		rec.Label,
		fastparse.FormatInt(int64(rec.Qualified)),
		fastparse.FormatInt(int64(rec.Executed)),
	})
}

// Flush 刷新两个文件
func (s *Sink) Flush() error {
	var errs []error
	if s.trades != nil {
		errs = append(errs, s.trades.flush())
	}
	if s.latency != nil {
		errs = append(errs, s.latency.flush())
	}
	return errors.Join(errs...)
}

// Close 关闭两个文件
func (s *Sink) Close() error {
	var errs []error
	if s.trades != nil {
		errs = append(errs, s.trades.close())
		s.trades = nil
	}
	if s.latency != nil {
		errs = append(errs, s.latency.close())
		s.latency = nil
	}
	return errors.Join(errs...)
}
