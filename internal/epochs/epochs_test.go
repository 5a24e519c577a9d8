package epochs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		epoch uint64
		want  string
	}{
		{896, "2025-12-16"},
		{900, "2025-12-24"},
		{904, "2026-01-01"},
	}

	for _, tc := range cases {
		if got := Date(tc.epoch); got != tc.want {
			t.Errorf("Date(%d) = %q, want %q", tc.epoch, got, tc.want)
		}
	}
}

func TestSOL(t *testing.T) {
	t.Parallel()

	if got := SOL(1_000_000_000); got != 1.0 {
		t.Errorf("SOL(1e9) = %v, want 1", got)
	}

	if got := SOL(5000); got != 0.000005 {
		t.Errorf("SOL(5000) = %v, want 0.000005", got)
	}
}

func TestEpochTimeProperties(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(nil)

	properties.Property("consecutive epochs are one epoch duration apart", prop.ForAll(
		func(epoch uint64) bool {
			return Time(epoch+1).Sub(Time(epoch)) == EpochDuration
		},
		gen.UInt64Range(0, 100_000),
	))

	properties.Property("epoch start times are monotonically increasing", prop.ForAll(
		func(a, b uint64) bool {
			if a == b {
				return Time(a).Equal(Time(b))
			}
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			return Time(lo).Before(Time(hi))
		},
		gen.UInt64Range(0, 100_000),
		gen.UInt64Range(0, 100_000),
	))

	properties.TestingRun(t)
}
