package audio_test

import (
	"testing"

	"github.com/superfeelapi/goLiveBridge/foundation/audio"
)

func TestQueueFIFOAcrossWrap(t *testing.T) {
	q := audio.NewQueue(16)

	var next, expect int16
	for round := 0; round < 50; round++ {
		for i := 0; i < 7; i++ {
			q.Push(next)
			next++
		}
		for _, s := range q.PopFront(5) {
			if s != expect {
				t.Fatalf("round %d: got %d, want %d", round, s, expect)
			}
			expect++
		}
	}

	if q.Len() != 100 {
		t.Fatalf("len %d, want 100", q.Len())
	}
	for _, s := range q.PopFront(1000) {
		if s != expect {
			t.Fatalf("got %d, want %d", s, expect)
		}
		expect++
	}
	if q.Len() != 0 {
		t.Fatalf("len %d after draining", q.Len())
	}
}

func TestQueueClear(t *testing.T) {
	q := audio.NewQueue(0)
	q.Push(1, 2, 3)

	if n := q.Clear(); n != 3 {
		t.Fatalf("cleared %d, want 3", n)
	}
	if q.Len() != 0 || q.PopFront(1) != nil {
		t.Fatal("queue should be empty after Clear")
	}
}

func TestFadeOutTail(t *testing.T) {
	q := audio.NewQueue(0)
	for i := 0; i < 32; i++ {
		q.Push(1000)
	}
	audio.FadeOutTail(q, 16)

	out := q.PopFront(32)
	if out[15] != 1000 {
		t.Fatalf("sample before the ramp changed: %d", out[15])
	}
	if out[31] != 0 {
		t.Fatalf("last sample %d, want 0", out[31])
	}
	if out[20] >= 1000 || out[20] <= 0 {
		t.Fatalf("ramp sample %d should be attenuated", out[20])
	}
}
