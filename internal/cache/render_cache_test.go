package cache

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func ptr(v float64) *float64 { return &v }

func TestKey(t *testing.T) {
	base := chart.OverlayQuery{OAT: 15, AltitudeFt: 300}
	k := Key("v1", base)
	if k != "v1|15|300|-|-|" {
		t.Errorf("key = %q", k)
	}

	variants := []chart.OverlayQuery{
		{OAT: 15.5, AltitudeFt: 300},
		{OAT: 15, AltitudeFt: 301},
		{OAT: 15, AltitudeFt: 300, WindSpeed: ptr(10)},
		{OAT: 15, AltitudeFt: 300, WindSpeed: ptr(10), BenefitPercent: ptr(50)},
		{OAT: 15, AltitudeFt: 300, Unit: perf.UnitLb},
	}
	seen := map[string]bool{k: true}
	for _, q := range variants {
		vk := Key("v1", q)
		if seen[vk] {
			t.Errorf("key collision for %+v: %q", q, vk)
		}
		seen[vk] = true
	}
	if Key("v2", base) == k {
		t.Error("dataset version must change the key")
	}
}

// TestRenderCache tests basic cache operations: miss, render, hit.
func TestRenderCache(t *testing.T) {
	c := NewRenderCache(Config{TTL: time.Minute}, testLogger())

	calls := 0
	render := func() ([]byte, error) {
		calls++
		return []byte("png"), nil
	}

	frame, hit, err := c.GetOrRender("k", render)
	if err != nil || hit || string(frame) != "png" {
		t.Fatalf("first call: frame=%q hit=%v err=%v", frame, hit, err)
	}
	frame, hit, err = c.GetOrRender("k", render)
	if err != nil || !hit || string(frame) != "png" {
		t.Fatalf("second call: frame=%q hit=%v err=%v", frame, hit, err)
	}
	if calls != 1 {
		t.Errorf("render called %d times, want 1", calls)
	}

	stats := c.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v", stats)
	}

	c.Flush()
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after flush")
	}
}

func TestRenderCache_ErrorNotCached(t *testing.T) {
	c := NewRenderCache(Config{TTL: time.Minute}, testLogger())
	boom := errors.New("boom")

	_, _, err := c.GetOrRender("k", func() ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Stats().Entries != 0 {
		t.Error("failed render must not be cached")
	}
}

func TestRenderCache_MaxEntries(t *testing.T) {
	c := NewRenderCache(Config{TTL: time.Minute, MaxEntries: 2}, testLogger())
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	stats := c.Stats()
	if stats.Entries != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 2 entries 1 skipped", stats)
	}
	if _, ok := c.Get("c"); ok {
		t.Error("frame stored past the entry limit")
	}
}

func TestRenderCache_Expiry(t *testing.T) {
	c := NewRenderCache(Config{TTL: 20 * time.Millisecond}, testLogger())
	c.Set("k", []byte("png"))
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}
