package backoff

import (
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	p := New(1*time.Second, 30*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s capped
		{6, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_DelayMonotonic(t *testing.T) {
	p := New(500*time.Millisecond, time.Minute)

	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestPolicy_DelayClampsLowAttempts(t *testing.T) {
	p := New(1*time.Second, 30*time.Second)

	for _, attempt := range []int{0, -1, -100} {
		if got := p.Delay(attempt); got != p.Delay(1) {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, p.Delay(1))
		}
	}
}

func TestPolicy_DelayOverflow(t *testing.T) {
	p := New(1*time.Second, 30*time.Second)

	// Huge attempt numbers must hit the cap, never wrap negative.
	for _, attempt := range []int{62, 63, 64, 1 << 20} {
		if got := p.Delay(attempt); got != 30*time.Second {
			t.Errorf("Delay(%d) = %v, want cap", attempt, got)
		}
	}
}
