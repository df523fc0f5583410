package timeutil

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNowNano_Monotonic(t *testing.T) {
	prev := NowNano()
	for i := 0; i < 1000; i++ {
		now := NowNano()
		if now < prev {
			t.Fatalf("NowNano 回退: %d < %d", now, prev)
		}
		prev = now
	}
}

func TestWindow_Contains(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("小时在 [start, stop) 内当且仅当 Contains", prop.ForAll(
		func(start, span, hour int) bool {
			stop := start + span
			if stop > 24 {
				stop = 24
			}
			w := Window{Loc: time.UTC, StartHour: start, StopHour: stop}
			ts := time.Date(2024, 3, 1, hour, 30, 0, 0, time.UTC)
			want := hour >= start && hour < stop
			return w.Contains(ts) == want
		},
		gen.IntRange(0, 23),
		gen.IntRange(1, 24),
		gen.IntRange(0, 23),
	))

	properties.TestingRun(t)
}

func TestWindow_Location(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	w := Window{Loc: loc, StartHour: 9, StopHour: 17}

	// UTC 02:00 = UTC+8 10:00
	if !w.Contains(time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC)) {
		t.Fatal("UTC+8 10:00 应在窗口内")
	}
	// UTC 10:00 = UTC+8 18:00
	if w.Contains(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("UTC+8 18:00 应在窗口外")
	}
}

func TestFixedClock_Advance(t *testing.T) {
	c := &FixedClock{T: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c.Advance(90 * time.Minute)
	if got := c.Now().Hour(); got != 1 {
		t.Fatalf("Hour=%d, want 1", got)
	}
}
