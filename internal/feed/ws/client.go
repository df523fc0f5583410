// Package ws 实现 WebSocket 报价流客户端。
// 连接后发送订阅请求（币种集合内全部有序交易对），
// 心跳使用协议层 ping/pong，断线后指数退避重连。
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"
	"go.uber.org/zap"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/util/backoff"
	"triarb-engine/internal/util/timeutil"
)

// Client WebSocket 报价流客户端
type Client struct {
	cfg      config.WSFeedConfig
	universe *model.Universe
	logger   *zap.Logger
	parser   *Parser

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁（读循环、心跳、关闭共用）
	connMu sync.Mutex

	// ticks 报价事件输出通道，Run 退出时关闭
	ticks chan model.Tick

	// pending 待转发的最新报价（按交易对合并），与触发信号分离
	pending   map[string]model.Tick
	order     []string
	pendingMu sync.Mutex
	// notify 1 槽位触发通道
	notify chan struct{}

	metrics   ConnectionMetrics
	metricsMu sync.RWMutex

	// lastMsgTime 最后消息时间（纳秒）
	lastMsgTime atomic.Int64
	// updateCount 更新计数（用于计算 QPS）
	updateCount atomic.Int64
	// backoff 重连退避，仅读循环使用
	backoff *backoff.Backoff
	closed  atomic.Bool

	// parseErrSampleCount 解析错误计数（用于采样日志）
	parseErrSampleCount atomic.Uint64
	// lastParseErrLogNs 上次解析错误日志时间（纳秒）
	lastParseErrLogNs atomic.Int64
}

// NewClient 创建客户端
// 参数 cfg: WebSocket 配置
// 参数 u: 币种集合（决定订阅哪些交易对）
func NewClient(cfg config.WSFeedConfig, u *model.Universe, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1000
	}
	return &Client{
		cfg:      cfg,
		universe: u,
		logger:   logger.Named("ws"),
		parser:   NewParser(u),
		ticks:    make(chan model.Tick, size),
		pending:  make(map[string]model.Tick),
		notify:   make(chan struct{}, 1),
		backoff:  backoff.NewDefault(),
	}
}

// Connect 建立 WebSocket 连接
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	header := http.Header{}
	header.Set("User-Agent", "triarb-engine/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("连接报价 WebSocket 失败: %w", err)
	}

	readTimeout := c.readTimeout()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		c.lastMsgTime.Store(timeutil.NowNano())
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	c.conn = conn
	c.backoff.Reset()
	c.logger.Info("报价 WebSocket 连接成功", zap.String("url", c.cfg.URL))
	return nil
}

// Subscribe 订阅币种集合内全部有序交易对
func (c *Client) Subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}

	n := c.universe.Len()
	params := make([]string, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				params = append(params, c.universe.PairCode(i, j))
			}
		}
	}

	data, err := sonnet.Marshal(SubscribeRequest{Method: "SUBSCRIBE", Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("序列化订阅请求失败: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅请求失败: %w", err)
	}

	c.logger.Info("订阅请求已发送", zap.Int("symbols", len(params)))
	return nil
}

// Run 启动客户端主循环，直到 ctx 取消或 Close
// 未连接时先建立连接；返回时关闭 Ticks 通道。
func (c *Client) Run(ctx context.Context) error {
	fwdCtx, fwdCancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.forwardLoop(fwdCtx)
	}()
	defer func() {
		fwdCancel()
		wg.Wait()
		close(c.ticks)
	}()

	go c.pingLoop(ctx)
	go c.metricsLoop(ctx)
	// ctx 取消时关闭连接，打断阻塞中的 ReadMessage
	stop := context.AfterFunc(ctx, c.closeConn)
	defer stop()
	return c.readLoop(ctx)
}

// publish 记录交易对的最新报价并触发转发
// 消费端落后时同一交易对只保留最新一条，不会丢失任何交易对的最新价格。
func (c *Client) publish(tick model.Tick) {
	c.pendingMu.Lock()
	if _, dup := c.pending[tick.Symbol]; dup {
		c.incrementMetric(func(m *ConnectionMetrics) { m.CoalescedCount++ })
	} else {
		c.order = append(c.order, tick.Symbol)
	}
	c.pending[tick.Symbol] = tick
	c.pendingMu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// takePending 取出全部待转发报价（按首次到达的交易对顺序）
func (c *Client) takePending() []model.Tick {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if len(c.order) == 0 {
		return nil
	}
	out := make([]model.Tick, 0, len(c.order))
	for _, sym := range c.order {
		out = append(out, c.pending[sym])
		delete(c.pending, sym)
	}
	c.order = c.order[:0]
	return out
}

// forwardLoop 将合并后的最新报价写入 ticks 通道
// 写入阻塞期间到达的报价继续在 pending 中合并。
func (c *Client) forwardLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.notify:
		}
		for _, tick := range c.takePending() {
			select {
			case c.ticks <- tick:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	readTimeout := c.readTimeout()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed.Load() {
			return nil
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if err := c.reconnect(ctx); err != nil {
				return err
			}
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("读取报价消息失败", zap.Error(err))
			c.incrementMetric(func(m *ConnectionMetrics) { m.ReconnectCount++ })
			c.closeConn()
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.lastMsgTime.Store(timeutil.NowNano())

		tick, ok, err := c.parser.Parse(data)
		if err != nil {
			c.incrementMetric(func(m *ConnectionMetrics) { m.ParseErrorCount++ })
			c.maybeLogParseError(err, data)
			continue
		}
		if !ok {
			continue
		}

		c.updateCount.Add(1)
		c.publish(tick)
	}
}

// reconnect 等待退避间隔后重新连接并订阅
// 返回: 仅在 ctx 取消时返回错误，连接失败留给下一轮重试
func (c *Client) reconnect(ctx context.Context) error {
	if c.backoff.Attempt() > 0 {
		c.logger.Info("准备重连", zap.Int("attempt", c.backoff.Attempt()))
	}
	if err := c.backoff.Wait(ctx); err != nil {
		return err
	}
	if c.closed.Load() {
		return nil
	}

	if err := c.Connect(ctx); err != nil {
		c.logger.Error("重连失败", zap.Error(err))
		return nil
	}
	if err := c.Subscribe(); err != nil {
		c.logger.Error("重新订阅失败", zap.Error(err))
		c.closeConn()
	}
	return nil
}

func (c *Client) pingLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.PingIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = c.readTimeout() / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.closed.Load() {
				return
			}

			c.connMu.Lock()
			conn := c.conn
			if conn == nil {
				c.connMu.Unlock()
				continue
			}
			deadline := time.Now().Add(5 * time.Second)
			err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline)
			c.connMu.Unlock()
			if err != nil {
				c.logger.Warn("发送 ping 失败", zap.Error(err))
			}
		}
	}
}

func (c *Client) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastCount int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.closed.Load() {
				return
			}

			count := c.updateCount.Load()
			qps := float64(count - lastCount)
			lastCount = count

			var ageMs int64
			if last := c.lastMsgTime.Load(); last > 0 {
				ageMs = (timeutil.NowNano() - last) / 1_000_000
			}

			c.metricsMu.Lock()
			c.metrics.UpdatesPerSec = qps
			c.metrics.LastMessageAgeMs = ageMs
			c.metricsMu.Unlock()
		}
	}
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭连接，使 Run 尽快返回
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.closeConn()
	c.logger.Info("报价 WebSocket 客户端已关闭")
	return nil
}

// Ticks 获取报价事件通道
func (c *Client) Ticks() <-chan model.Tick {
	return c.ticks
}

// Metrics 获取连接指标
func (c *Client) Metrics() ConnectionMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}

func (c *Client) incrementMetric(fn func(m *ConnectionMetrics)) {
	c.metricsMu.Lock()
	fn(&c.metrics)
	c.metricsMu.Unlock()
}

func (c *Client) readTimeout() time.Duration {
	if c.cfg.ReadTimeoutMs > 0 {
		return time.Duration(c.cfg.ReadTimeoutMs) * time.Millisecond
	}
	return 30 * time.Second
}

// maybeLogParseError 采样记录解析错误原始消息
// 每 100 次错误记录 1 条，且至少间隔 1 分钟。
func (c *Client) maybeLogParseError(err error, data []byte) {
	count := c.parseErrSampleCount.Add(1)
	if count%100 != 0 {
		return
	}

	nowNs := timeutil.NowNano()
	last := c.lastParseErrLogNs.Load()
	if last > 0 && nowNs-last < int64(time.Minute) {
		return
	}
	c.lastParseErrLogNs.Store(nowNs)

	sample := data
	if len(sample) > 200 {
		sample = sample[:200]
	}
	c.logger.Warn("解析报价消息失败（采样）", zap.Error(err), zap.ByteString("data", sample))
}
