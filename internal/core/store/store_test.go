package store

import (
	"context"
	"testing"

	"triarb-engine/internal/core/model"
)

func TestStore_UpdateAndGet(t *testing.T) {
	s := New()

	if ok := s.Update(model.Tick{Symbol: "eurusd", Quote: model.Quote{Bid: 1.08, Ask: 1.09}, ArrivedAtUnixNs: 5}); !ok {
		t.Fatal("有效报价应写入")
	}
	q, ok, err := s.GetQuote(context.Background(), "EURUSD")
	if err != nil || !ok {
		t.Fatalf("GetQuote ok=%v err=%v", ok, err)
	}
	if q.Bid != 1.08 || q.Ask != 1.09 {
		t.Fatalf("quote=%+v", q)
	}
	if s.LastUpdateNs("EURUSD") != 5 {
		t.Fatalf("LastUpdateNs=%d, want 5", s.LastUpdateNs("EURUSD"))
	}

	// 覆盖写入
	s.Update(model.Tick{Symbol: "EURUSD", Quote: model.Quote{Bid: 1.07, Ask: 1.08}, ArrivedAtUnixNs: 6})
	q, _, _ = s.GetQuote(context.Background(), "EURUSD")
	if q.Bid != 1.07 {
		t.Fatalf("Bid=%f, want 1.07", q.Bid)
	}
	if s.Len() != 1 {
		t.Fatalf("Len=%d, want 1", s.Len())
	}
}

func TestStore_IgnoresInvalid(t *testing.T) {
	s := New()

	cases := []model.Tick{
		{Symbol: "", Quote: model.Quote{Bid: 1, Ask: 1}},
		{Symbol: "EURUSD", Quote: model.Quote{}},
		{Symbol: "EURUSD", Quote: model.Quote{Bid: -1, Ask: 1}},
	}
	for _, tick := range cases {
		if s.Update(tick) {
			t.Fatalf("无效 tick 不应写入: %+v", tick)
		}
	}
	if _, ok, _ := s.GetQuote(context.Background(), "EURUSD"); ok {
		t.Fatal("缺少交易对应返回 ok=false")
	}
}
