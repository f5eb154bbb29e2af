package renderer

import (
	"sync"
	"testing"
	"time"
)

func TestCountersSnapshot(t *testing.T) {
	var cnt counters
	cnt.rays.Add(100)
	cnt.activeRays.Add(80)
	cnt.samplesQueried.Add(6400)
	cnt.samplesFiltered.Add(1600)
	cnt.chunks.Add(2)

	stats := cnt.snapshot(3 * time.Second)
	if stats.Rays != 100 || stats.ActiveRays != 80 {
		t.Errorf("Rays = %d active %d, expected 100 and 80", stats.Rays, stats.ActiveRays)
	}
	if stats.SamplesQueried != 6400 || stats.SamplesFiltered != 1600 {
		t.Errorf("Samples = %d queried %d filtered, expected 6400 and 1600", stats.SamplesQueried, stats.SamplesFiltered)
	}
	if stats.Chunks != 2 {
		t.Errorf("Chunks = %d, expected 2", stats.Chunks)
	}
	if stats.Elapsed != 3*time.Second {
		t.Errorf("Elapsed = %v, expected 3s", stats.Elapsed)
	}
}

func TestCountersConcurrentAdd(t *testing.T) {
	var cnt counters
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				cnt.rays.Add(1)
				cnt.chunks.Add(1)
			}
		}()
	}
	wg.Wait()

	stats := cnt.snapshot(0)
	if stats.Rays != 8000 || stats.Chunks != 8000 {
		t.Errorf("Rays = %d chunks %d after concurrent adds, expected 8000 each", stats.Rays, stats.Chunks)
	}
}
