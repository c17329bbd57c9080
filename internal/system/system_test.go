package system

import (
	"testing"
)

func TestRecommendedWorkers(t *testing.T) {
	if got := RecommendedWorkers(3); got != 3 {
		t.Errorf("explicit request: expected 3, got %d", got)
	}
	if got := RecommendedWorkers(0); got < 1 {
		t.Errorf("auto: expected at least 1 worker, got %d", got)
	}
	if got := RecommendedWorkers(-5); got < 1 {
		t.Errorf("negative: expected at least 1 worker, got %d", got)
	}
}

func TestRaisedLimit(t *testing.T) {
	tests := []struct {
		name      string
		cur, hard uint64
		want      uint64
	}{
		{"low soft limit is raised", 256, 1 << 20, 2048},
		{"high soft limit is kept", 1 << 20, 1 << 20, 1 << 20},
		{"exactly the target", 2048, 4096, 2048},
		{"hard limit caps the raise", 256, 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := raisedLimit(tt.cur, tt.hard); got != tt.want {
				t.Errorf("raisedLimit(%d, %d) = %d, want %d", tt.cur, tt.hard, got, tt.want)
			}
		})
	}
}

func TestScratchPool(t *testing.T) {
	buf := GetScratch(64)
	if len(buf) != 64 {
		t.Fatalf("expected len 64, got %d", len(buf))
	}
	for i := range buf {
		buf[i] = 1
	}
	PutScratch(buf)

	other := GetScratch(16)
	if len(other) != 16 {
		t.Fatalf("expected len 16, got %d", len(other))
	}
	PutScratch(other)
	PutScratch(nil)

	again := GetScratch(64)
	if len(again) != 64 {
		t.Fatalf("expected len 64 after reuse, got %d", len(again))
	}
}
