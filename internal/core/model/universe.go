// Package model 定义套利引擎中使用的核心数据结构。
// 包含币种集合、报价矩阵、三角环路、腿汇率以及成交结果等类型。
package model

import (
	"fmt"
	"strings"
)

// Universe 固定的有序币种集合
// 启动时根据配置列表创建，运行期间不可变；索引区间为 [0, N)。
type Universe struct {
	// codes 按索引排列的币种代码
	codes []string
	// index 币种代码到索引的反向映射
	index map[string]int
}

// NewUniverse 创建币种集合
// 参数 codes: 有序币种代码列表，如 USD、EUR、JPY
// 返回: 币种集合；若存在空代码、重复代码或交易对代码冲突则返回错误
func NewUniverse(codes []string) (*Universe, error) {
	u := &Universe{
		codes: make([]string, 0, len(codes)),
		index: make(map[string]int, len(codes)),
	}
	for i, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			return nil, fmt.Errorf("currencies[%d]: 币种代码不能为空", i)
		}
		if _, dup := u.index[code]; dup {
			return nil, fmt.Errorf("currencies[%d]: 币种代码重复 '%s'", i, code)
		}
		u.index[code] = len(u.codes)
		u.codes = append(u.codes, code)
	}
	if sym, dup := pairCodeConflict(u.codes); dup {
		return nil, fmt.Errorf("currencies: 交易对代码冲突 '%s'", sym)
	}
	return u, nil
}

// pairCodeConflict 检查 N×(N-1) 个有序交易对代码是否唯一
// 例如 {US, USD, EUR, DEUR} 中 US+DEUR 与 USD+EUR 都拼成 USDEUR。
func pairCodeConflict(codes []string) (string, bool) {
	seen := make(map[string]struct{}, len(codes)*len(codes))
	for i, a := range codes {
		for j, b := range codes {
			if i == j {
				continue
			}
			sym := a + b
			if _, dup := seen[sym]; dup {
				return sym, true
			}
			seen[sym] = struct{}{}
		}
	}
	return "", false
}

// Len 返回币种数量 N
func (u *Universe) Len() int {
	return len(u.codes)
}

// Code 返回索引对应的币种代码
func (u *Universe) Code(i int) string {
	return u.codes[i]
}

// Index 返回币种代码对应的索引
func (u *Universe) Index(code string) (int, bool) {
	i, ok := u.index[strings.ToUpper(code)]
	return i, ok
}

// Codes 返回币种代码列表的拷贝
func (u *Universe) Codes() []string {
	out := make([]string, len(u.codes))
	copy(out, u.codes)
	return out
}

// PairCode 返回有向交易对代码（from + to），如 EURUSD
func (u *Universe) PairCode(from, to int) string {
	return u.codes[from] + u.codes[to]
}

// SymbolOf 返回 PairKey 对应的交易对代码
func (u *Universe) SymbolOf(k PairKey) string {
	return u.PairCode(k.From, k.To)
}

// ParsePair 将交易对代码拆分为 PairKey
// 币种代码长度不要求一致，按前缀逐个匹配。
func (u *Universe) ParsePair(symbol string) (PairKey, bool) {
	symbol = strings.ToUpper(symbol)
	for i, code := range u.codes {
		if !strings.HasPrefix(symbol, code) {
			continue
		}
		j, ok := u.index[symbol[len(code):]]
		if ok && j != i {
			return PairKey{From: i, To: j}, true
		}
	}
	return PairKey{}, false
}
