package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ashford-digital/docvault/pkg/telemetry"
)

func TestCounterIdentity(t *testing.T) {
	reg := telemetry.New()

	reg.Counter("uploads").Add(2)
	reg.Counter("uploads").Add(3)

	if got := reg.Counter("uploads").Value(); got != 5 {
		t.Errorf("Value = %d, want 5", got)
	}
	if got := reg.Counter("other").Value(); got != 0 {
		t.Errorf("fresh counter Value = %d, want 0", got)
	}
}

func TestTimer(t *testing.T) {
	reg := telemetry.New()

	reg.Timer("stream").Observe(100 * time.Millisecond)
	reg.Timer("stream").Observe(50 * time.Millisecond)

	if got := reg.Timer("stream").Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := reg.Timer("stream").Total(); got != 150*time.Millisecond {
		t.Errorf("Total = %v, want 150ms", got)
	}
}

func TestCounterConcurrent(t *testing.T) {
	reg := telemetry.New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Counter("c").Add(1)
		}()
	}
	wg.Wait()

	if got := reg.Counter("c").Value(); got != 50 {
		t.Errorf("Value = %d, want 50", got)
	}
}
