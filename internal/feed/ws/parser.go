package ws

import (
	"fmt"
	"strings"

	"github.com/sugawarayuuta/sonnet"

	"triarb-engine/internal/core/model"
	"triarb-engine/internal/util/fastparse"
	"triarb-engine/internal/util/timeutil"
)

// Parser 报价消息解析器
type Parser struct {
	// universe 用于过滤不在币种集合内的交易对
	universe *model.Universe
}

// NewParser 创建解析器
func NewParser(u *model.Universe) *Parser {
	return &Parser{universe: u}
}

// Parse 解析一条报价消息
// 返回: ok=false 表示非报价消息或交易对不在币种集合内（不是错误）
func (p *Parser) Parse(data []byte) (tick model.Tick, ok bool, err error) {
	arrivedAt := timeutil.NowNano()

	var msg QuoteUpdate
	if err := sonnet.Unmarshal(data, &msg); err != nil {
		return model.Tick{}, false, fmt.Errorf("解析报价消息失败: %w", err)
	}
	if msg.EventType != "quote" {
		return model.Tick{}, false, nil
	}

	symbol := strings.ToUpper(msg.Symbol)
	if _, known := p.universe.ParsePair(symbol); !known {
		return model.Tick{}, false, nil
	}

	bid, err := fastparse.ParsePrice(msg.Bid)
	if err != nil {
		return model.Tick{}, false, fmt.Errorf("%s bid: %w", symbol, err)
	}
	ask, err := fastparse.ParsePrice(msg.Ask)
	if err != nil {
		return model.Tick{}, false, fmt.Errorf("%s ask: %w", symbol, err)
	}

	return model.Tick{
		Symbol:          symbol,
		Quote:           model.Quote{Bid: bid, Ask: ask},
		ArrivedAtUnixNs: arrivedAt,
		ExchTsUnixMs:    msg.EventTimeMs,
	}, true, nil
}
