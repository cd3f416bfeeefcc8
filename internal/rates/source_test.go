package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"41,35", "41.35", true},
		{"41.35", "41.35", true},
		{"41,35\nпродаж 41,80", "41.35", true},
		{"  41,35  ", "41.35", true},
		{"", "", false},
		{"курс", "", false},
		{"0", "", false},
		{"-5", "", false},
	}
	for i, tc := range cases {
		got, err := parseRate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q): expected ok, got %v", i, tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d (%q): expected error", i, tc.in)
		}
		if tc.ok && got.String() != tc.want {
			t.Fatalf("case %d: got %s, want %s", i, got.String(), tc.want)
		}
	}
}

func TestConvertRoundsToCents(t *testing.T) {
	cases := []struct {
		uah, rate, want string
	}{
		{"100", "41.35", "2.42"},   // 2.4184...
		{"1369", "41.35", "33.11"}, // 33.1076...
		{"1", "3", "0.33"},
		{"0", "41.35", "0"},
	}
	for i, tc := range cases {
		got := Convert(decimal.RequireFromString(tc.uah), decimal.RequireFromString(tc.rate))
		if got.String() != tc.want {
			t.Fatalf("case %d: Convert(%s, %s) = %s, want %s", i, tc.uah, tc.rate, got, tc.want)
		}
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	src := WithTimeout(SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		return decimal.RequireFromString("41.35"), nil
	}), time.Second)

	rate, err := src.Rate(context.Background())
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if rate.String() != "41.35" {
		t.Fatalf("got %s", rate)
	}
}

func TestWithTimeoutCutsOffSlowLookup(t *testing.T) {
	src := WithTimeout(SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		select {
		case <-time.After(time.Second):
			return decimal.RequireFromString("41.35"), nil
		case <-ctx.Done():
			return decimal.Decimal{}, ctx.Err()
		}
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := src.Rate(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout was not enforced")
	}
}

func TestWithTimeoutConvertsErrors(t *testing.T) {
	src := WithTimeout(SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		return decimal.Decimal{}, errors.New("browser crashed")
	}), time.Second)

	_, err := src.Rate(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("internal errors must collapse to ErrUnavailable, got %v", err)
	}
}

func TestCachedMemoizesSuccess(t *testing.T) {
	calls := 0
	src := NewCached(SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		calls++
		return decimal.RequireFromString("41.35"), nil
	}), time.Minute)

	for i := 0; i < 3; i++ {
		rate, err := src.Rate(context.Background())
		if err != nil {
			t.Fatalf("lookup %d failed: %v", i, err)
		}
		if rate.String() != "41.35" {
			t.Fatalf("lookup %d got %s", i, rate)
		}
	}
	if calls != 1 {
		t.Fatalf("inner source called %d times, want 1", calls)
	}
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	calls := 0
	src := NewCached(SourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		calls++
		if calls == 1 {
			return decimal.Decimal{}, ErrUnavailable
		}
		return decimal.RequireFromString("41.35"), nil
	}), time.Minute)

	if _, err := src.Rate(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	rate, err := src.Rate(context.Background())
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if rate.String() != "41.35" || calls != 2 {
		t.Fatalf("failure must not be cached (rate=%s calls=%d)", rate, calls)
	}
}
