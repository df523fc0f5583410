// Package paper 实现三角环路的逐腿模拟成交。
// 纸面模式纯计算；实盘模式按最小手数取整后通过 venue 下单。
package paper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"triarb-engine/internal/config"
	"triarb-engine/internal/core/model"
	"triarb-engine/internal/venue"
)

// commissionUnit 手续费按每百万名义金额计
const commissionUnit = 1_000_000

// Executor 环路执行器（单线程使用）
type Executor struct {
	universe *model.Universe
	// cfg 执行参数
	cfg config.EngineConfig
	// live 是否实盘模式
	live bool
	// venue 下单接口，仅实盘模式非空
	venue venue.Venue

	logger *zap.Logger
}

// NewExecutor 创建环路执行器
// 参数 u: 币种集合
// 参数 cfg: 执行参数（起始资金、手续费、模式）
// 参数 v: 下单接口；纸面模式可为 nil
// 参数 logger: 日志
func NewExecutor(u *model.Universe, cfg config.EngineConfig, v venue.Venue, logger *zap.Logger) (*Executor, error) {
	live := cfg.Mode == config.ModeLive
	if live && v == nil {
		return nil, errors.New("实盘模式需要下单接口")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		universe: u,
		cfg:      cfg,
		live:     live,
		venue:    v,
		logger:   logger.Named("executor"),
	}, nil
}

// Live 是否实盘模式
func (e *Executor) Live() bool {
	return e.live
}

// Execute 依次执行三条腿 a→b, b→c, c→a
// 起始数量为起始资金（币种 a）。实盘模式下任一腿失败即中止剩余腿，
// 已成交腿的手续费照常计入，结果标记为 Failed。
func (e *Executor) Execute(ctx context.Context, opp model.Opportunity) model.ExecutionResult {
	res := model.ExecutionResult{
		ID:     uuid.NewString(),
		Cycle:  opp.Cycle,
		Factor: opp.Factor,
	}

	notional := e.cfg.StartCapital
	// cumRate 起始币种到当前币种的累计汇率，用于把手续费折算回起始币种
	cumRate := 1.0

	for k := 0; k < 3; k++ {
		leg := opp.Legs[k]
		fill, err := e.fillLeg(ctx, leg, notional)
		if err != nil {
			res.Failed = true
			res.FailReason = err.Error()
			e.logger.Warn("腿下单失败，中止环路",
				zap.String("exec_id", res.ID),
				zap.Strings("cycle", cycleCodes(e.universe, opp.Cycle)),
				zap.Int("leg", k+1),
				zap.String("symbol", e.universe.SymbolOf(leg.Pair)),
				zap.Float64("volume", notional),
				zap.Error(err),
			)
			break
		}

		fill.CommissionBase = fill.Commission / cumRate
		res.Legs[k] = fill
		res.FilledLegs++
		res.Commission += fill.CommissionBase

		if k == 0 {
			res.Deployed = fill.Outgoing
		}
		cumRate *= leg.Rate()
		notional = fill.Incoming
	}

	if res.Failed {
		return res
	}

	res.FinalNotional = notional
	res.PnL = res.FinalNotional - res.Deployed
	// 好交易：PnL 严格大于手续费
	res.Good = res.PnL > res.Commission
	return res
}

// fillLeg 执行单条腿
// 参数 leg: 有效汇率
// 参数 requested: 期望流出量（源币种）
func (e *Executor) fillLeg(ctx context.Context, leg model.LegRate, requested float64) (model.LegFill, error) {
	symbol := e.universe.SymbolOf(leg.Pair)
	fill := model.LegFill{
		Pair:      leg.Pair,
		Kind:      leg.Kind,
		Side:      leg.Side(),
		Price:     leg.Price,
		Requested: requested,
		Outgoing:  requested,
	}

	if e.live {
		lot := e.venue.MinLotSize(symbol)
		out := RoundDownToLot(requested, lot)
		if out <= 0 {
			return fill, fmt.Errorf("%w: %s 数量 %f 不足最小手数 %f", model.ErrExecutionFailure, symbol, requested, lot)
		}
		ack, err := e.venue.SubmitMarketOrder(ctx, fill.Side, symbol, out)
		if err != nil {
			return fill, fmt.Errorf("%w: %s: %w", model.ErrExecutionFailure, symbol, err)
		}
		fill.Outgoing = out
		fill.OrderID = ack.OrderID
	}

	// 取整后的流出量同时用于下单和盈亏计算
	fill.Unfilled = requested - fill.Outgoing
	fill.Incoming = leg.Convert(fill.Outgoing)
	fill.Remainder = leg.Remainder(fill.Outgoing, fill.Incoming)
	fill.Commission = fill.Outgoing * e.cfg.CommissionPerMillion / commissionUnit
	return fill, nil
}

// RoundDownToLot 将数量向下取整到最小手数的整数倍
// floor(volume / lot) × lot；lot <= 0 时不取整。
func RoundDownToLot(volume, lot float64) float64 {
	if lot <= 0 {
		return volume
	}
	v := decimal.NewFromFloat(volume)
	l := decimal.NewFromFloat(lot)
	out, _ := v.Div(l).Floor().Mul(l).Float64()
	return out
}

func cycleCodes(u *model.Universe, c model.Cycle) []string {
	codes := c.Codes(u)
	return codes[:]
}
