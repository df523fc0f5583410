package model

// Side 下单方向
type Side string

const (
	// SideSell 按 bid 卖出源币种
	SideSell Side = "sell"
	// SideBuy 按 ask 买入目标币种
	SideBuy Side = "buy"
)

// PairKey 有向交易对的结构化键（币种索引有序对）
// 用于按交易对计数，避免字符串拼接键的碰撞问题。
type PairKey struct {
	From int
	To   int
}

// Cycle 三角环路 a→b→c→a（三个互不相同的币种索引）
// (a,b,c)、(b,c,a)、(c,a,b) 视为不同的枚举，不做规范化去重。
type Cycle [3]int

// Leg 返回第 k 条腿的 (from, to)，k ∈ {0,1,2}
func (c Cycle) Leg(k int) (from, to int) {
	return c[k], c[(k+1)%3]
}

// IsDistinct 判断三个币种索引是否互不相同
func (c Cycle) IsDistinct() bool {
	return c[0] != c[1] && c[1] != c[2] && c[0] != c[2]
}

// Codes 返回环路的币种代码
func (c Cycle) Codes(u *Universe) [3]string {
	return [3]string{u.Code(c[0]), u.Code(c[1]), u.Code(c[2])}
}

// LegKind 腿汇率的解析方式
type LegKind uint8

const (
	// LegDirect 直接报价：有效汇率 = bid
	LegDirect LegKind = iota + 1
	// LegInverse 倒数报价：有效汇率 = 1/ask
	LegInverse
)

// String 返回可读名称
func (k LegKind) String() string {
	switch k {
	case LegDirect:
		return "direct"
	case LegInverse:
		return "inverse"
	default:
		return "unknown"
	}
}

// LegRate 单条腿的有效汇率（显式的 Direct(bid) | Inverse(ask) 变体）
// 每条腿只解析一次，执行阶段直接复用，不再依赖 bid 是否为 0 的隐式约定。
type LegRate struct {
	// Kind 解析方式
	Kind LegKind
	// Price Direct 时为 bid，Inverse 时为 ask
	Price float64
	// Pair 实际定价所用的交易对（计数键）
	Pair PairKey
}

// Direct 构造直接报价腿
func Direct(bid float64, pair PairKey) LegRate {
	return LegRate{Kind: LegDirect, Price: bid, Pair: pair}
}

// Inverse 构造倒数报价腿
func Inverse(ask float64, pair PairKey) LegRate {
	return LegRate{Kind: LegInverse, Price: ask, Pair: pair}
}

// Rate 返回有效乘数汇率
func (r LegRate) Rate() float64 {
	if r.Kind == LegInverse {
		return 1 / r.Price
	}
	return r.Price
}

// Side 返回该腿的下单方向
// Direct 视为按 bid 卖出，Inverse 视为按 ask 买入。
func (r LegRate) Side() Side {
	if r.Kind == LegInverse {
		return SideBuy
	}
	return SideSell
}

// Convert 将流出量换算为流入量
func (r LegRate) Convert(outgoing float64) float64 {
	if r.Kind == LegInverse {
		return outgoing / r.Price
	}
	return outgoing * r.Price
}

// Remainder 无滑点理论余量
// sell: incoming/bid − outgoing；buy: incoming×ask − outgoing。
func (r LegRate) Remainder(outgoing, incoming float64) float64 {
	if r.Kind == LegInverse {
		return incoming*r.Price - outgoing
	}
	return incoming/r.Price - outgoing
}

// Opportunity 通过盈利阈值的候选环路
type Opportunity struct {
	// Cycle 环路
	Cycle Cycle
	// Legs 三条腿的有效汇率（a→b, b→c, c→a）
	Legs [3]LegRate
	// Factor 盈利因子 = 三条腿有效汇率之积
	Factor float64
}
