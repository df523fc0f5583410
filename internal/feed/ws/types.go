// Package ws 定义 WebSocket 报价流消息类型。
package ws

// SubscribeRequest 订阅请求
// 形如 {"method":"SUBSCRIBE","params":["EURUSD","USDJPY"],"id":1}。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 交易对代码列表
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// QuoteUpdate 报价推送消息
// 字段映射：
// - e: 事件类型（quote）
// - E: 事件时间（毫秒） -> Tick.ExchTsUnixMs
// - s: 交易对代码（如 EURUSD）
// - b: bid（字符串）
// - a: ask（字符串）
type QuoteUpdate struct {
	EventType   string `json:"e"`
	EventTimeMs int64  `json:"E"`
	Symbol      string `json:"s"`
	Bid         string `json:"b"`
	Ask         string `json:"a"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// CoalescedCount 转发前被同交易对更新报价覆盖的 tick 数
	CoalescedCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
