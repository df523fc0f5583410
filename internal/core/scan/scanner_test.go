package scan

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"triarb-engine/internal/core/model"
)

func TestScan_EnumeratesAllOrderedTriples(t *testing.T) {
	m := model.NewMatrix(10)
	s := NewScanner(1.0001)

	seen := make(map[model.Cycle]bool)
	var prev model.Cycle
	count := 0
	for ev := range s.Scan(m) {
		if !ev.Cycle.IsDistinct() {
			t.Fatalf("重复币种: %v", ev.Cycle)
		}
		if seen[ev.Cycle] {
			t.Fatalf("重复环路: %v", ev.Cycle)
		}
		seen[ev.Cycle] = true
		if count > 0 && !less(prev, ev.Cycle) {
			t.Fatalf("枚举顺序错误: %v 之后是 %v", prev, ev.Cycle)
		}
		prev = ev.Cycle
		count++

		// 全零矩阵：任何环路都不可用
		if ev.Available || ev.Qualifies {
			t.Fatalf("全零矩阵下 %v 不应可用", ev.Cycle)
		}
	}
	if count != 720 {
		t.Fatalf("count=%d, want 720", count)
	}
}

func less(a, b model.Cycle) bool {
	for k := 0; k < 3; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

func TestScan_EarlyStop(t *testing.T) {
	m := model.NewMatrix(5)
	n := 0
	for range NewScanner(1.0001).Scan(m) {
		n++
		if n == 7 {
			break
		}
	}
	if n != 7 {
		t.Fatalf("n=%d, want 7", n)
	}
}

// scenarioMatrix USD/EUR/JPY 三币种场景
func scenarioMatrix() *model.Matrix {
	m := model.NewMatrix(3)
	m.Set(0, 1, model.Quote{Bid: 0.90, Ask: 0.9001})
	m.Set(1, 2, model.Quote{Bid: 160.0, Ask: 160.01})
	m.Set(2, 0, model.Quote{Bid: 0.0070, Ask: 0.00701})
	return m
}

func TestScan_Scenario(t *testing.T) {
	s := NewScanner(1.0001)
	ev := s.Evaluate(scenarioMatrix(), model.Cycle{0, 1, 2})
	if !ev.Available {
		t.Fatal("环路应可用")
	}
	if math.Abs(ev.Factor-1.008) > 1e-12 {
		t.Fatalf("Factor=%v, want 1.008", ev.Factor)
	}
	if !ev.Qualifies {
		t.Fatal("1.008 > 1.0001 应满足阈值")
	}
	for k, leg := range ev.Legs {
		if leg.Kind != model.LegDirect || leg.Side() != model.SideSell {
			t.Fatalf("leg%d=%+v, want direct sell", k, leg)
		}
	}
	if ev.Err() != nil {
		t.Fatalf("Err=%v", ev.Err())
	}
}

func TestEvaluate_MissingQuote(t *testing.T) {
	m := model.NewMatrix(3)
	m.Set(0, 1, model.Quote{Bid: 0.90, Ask: 0.9001})

	ev := NewScanner(1.0001).Evaluate(m, model.Cycle{0, 1, 2})
	if ev.Available || ev.Qualifies || ev.Factor != 0 {
		t.Fatalf("ev=%+v", ev)
	}
	if !errors.Is(ev.Err(), model.ErrMissingQuote) {
		t.Fatalf("Err=%v, want ErrMissingQuote", ev.Err())
	}
}

func TestResolveLeg(t *testing.T) {
	m := model.NewMatrix(3)

	// 直接 bid
	m.Set(0, 1, model.Quote{Bid: 2, Ask: 2.1})
	leg, ok := ResolveLeg(m, 0, 1)
	if !ok || leg.Kind != model.LegDirect || leg.Rate() != 2 || leg.Pair != (model.PairKey{From: 0, To: 1}) {
		t.Fatalf("direct leg=%+v ok=%v", leg, ok)
	}

	// 直接单元只有 ask：倒数
	m.Set(1, 2, model.Quote{Bid: 0, Ask: 4})
	leg, ok = ResolveLeg(m, 1, 2)
	if !ok || leg.Kind != model.LegInverse || leg.Rate() != 0.25 || leg.Pair != (model.PairKey{From: 1, To: 2}) {
		t.Fatalf("direct-ask leg=%+v ok=%v", leg, ok)
	}

	// 直接单元为 (0,0)：显式检查反向单元
	m.Set(0, 2, model.Quote{Bid: 0.5, Ask: 0.5})
	leg, ok = ResolveLeg(m, 2, 0)
	if !ok || leg.Kind != model.LegInverse || leg.Rate() != 2 || leg.Pair != (model.PairKey{From: 0, To: 2}) {
		t.Fatalf("inverse-cell leg=%+v ok=%v", leg, ok)
	}

	// 反向单元只有 ask 时 2→1 也可解析
	leg, ok = ResolveLeg(m, 2, 1)
	if !ok || leg.Kind != model.LegInverse || leg.Rate() != 0.25 || leg.Pair != (model.PairKey{From: 1, To: 2}) {
		t.Fatalf("reverse-ask leg=%+v ok=%v", leg, ok)
	}

	// 双向都无报价
	empty := model.NewMatrix(3)
	if _, ok := ResolveLeg(empty, 2, 1); ok {
		t.Fatal("无报价的腿应不可用")
	}

	// 反向单元只有 bid（ask=0）：仍不可用
	empty.Set(1, 2, model.Quote{Bid: 3})
	if _, ok := ResolveLeg(empty, 2, 1); ok {
		t.Fatal("反向单元无 ask 时腿应不可用")
	}
}

// TestScan_FactorProperties 因子严格等于三腿汇率之积，等于阈值时不执行
func TestScan_FactorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("factor 为三腿汇率之积", prop.ForAll(
		func(r1, r2, r3 float64) bool {
			m := model.NewMatrix(3)
			m.Set(0, 1, model.Quote{Bid: r1, Ask: r1})
			m.Set(1, 2, model.Quote{Bid: r2, Ask: r2})
			m.Set(2, 0, model.Quote{Bid: r3, Ask: r3})
			ev := NewScanner(1.0001).Evaluate(m, model.Cycle{0, 1, 2})
			return ev.Available && ev.Factor == r1*r2*r3
		},
		gen.Float64Range(0.001, 1000),
		gen.Float64Range(0.001, 1000),
		gen.Float64Range(0.001, 1000),
	))

	properties.Property("factor 等于阈值不满足，严格大于才满足", prop.ForAll(
		func(r1, r2, r3 float64) bool {
			m := model.NewMatrix(3)
			m.Set(0, 1, model.Quote{Bid: r1, Ask: r1})
			m.Set(1, 2, model.Quote{Bid: r2, Ask: r2})
			m.Set(2, 0, model.Quote{Bid: r3, Ask: r3})
			f := r1 * r2 * r3

			atThreshold := NewScanner(f).Evaluate(m, model.Cycle{0, 1, 2})
			below := NewScanner(math.Nextafter(f, 0)).Evaluate(m, model.Cycle{0, 1, 2})
			return !atThreshold.Qualifies && below.Qualifies
		},
		gen.Float64Range(0.5, 2),
		gen.Float64Range(0.5, 2),
		gen.Float64Range(0.5, 2),
	))

	properties.TestingRun(t)
}

// TestScan_ZeroSpreadFactorNearOne 零价差一致汇率下任意环路因子约为 1
func TestScan_ZeroSpreadFactorNearOne(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("一致汇率环路因子 ≈ 1", prop.ForAll(
		func(values []float64) bool {
			n := len(values)
			m := model.NewMatrix(n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if i != j {
						px := values[i] / values[j]
						m.Set(i, j, model.Quote{Bid: px, Ask: px})
					}
				}
			}
			for ev := range NewScanner(1.0001).Scan(m) {
				if !ev.Available || math.Abs(ev.Factor-1) > 1e-9 || ev.Qualifies {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(5, gen.Float64Range(0.01, 100)),
	))

	properties.TestingRun(t)
}
