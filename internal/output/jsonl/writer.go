// Package jsonl 实现同步 JSONL 文件写入。
// 每条记录在调用返回前写入缓冲区，由调用方在每次更新结束时 Flush。
package jsonl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sugawarayuuta/sonnet"
)

// ErrClosed 写入器已关闭
var ErrClosed = errors.New("writer 已关闭")

// Writer JSONL 写入器（追加模式，一行一条记录）
type Writer struct {
	// path 输出文件路径
	path string

	mu     sync.Mutex
	f      *os.File
	bw     *bufio.Writer
	closed bool
	// lines 已写入行数
	lines int64
}

// NewWriter 创建 JSONL 写入器
// 参数 path: 输出文件路径，目录不存在时自动创建
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	return &Writer{
		path: path,
		f:    f,
		bw:   bufio.NewWriterSize(f, 64<<10),
	}, nil
}

// Path 返回输出文件路径
func (w *Writer) Path() string {
	return w.path
}

// Write 编码并写入一条记录
func (w *Writer) Write(v any) error {
	b, err := sonnet.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码记录失败: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines 返回已写入行数
func (w *Writer) Lines() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Flush 将缓冲区写入文件
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.bw.Flush()
}

// Close 关闭写入器（会先 flush）
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Join(w.bw.Flush(), w.f.Close())
}
