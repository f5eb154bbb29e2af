package renderer

import (
	"sync/atomic"
	"time"
)

// RenderStats contains statistics about one render call.
type RenderStats struct {
	Rays            int           // rays generated from pixel batches
	ActiveRays      int           // rays whose range survived box clipping
	SamplesQueried  int           // field samples actually evaluated
	SamplesFiltered int           // samples skipped by the spatial filter
	Chunks          int           // pixel chunks rendered
	Elapsed         time.Duration // wall-clock render time
}

// counters accumulates statistics across concurrent chunk workers.
type counters struct {
	rays            atomic.Int64
	activeRays      atomic.Int64
	samplesQueried  atomic.Int64
	samplesFiltered atomic.Int64
	chunks          atomic.Int64
}

// snapshot folds the counters into a RenderStats.
func (c *counters) snapshot(elapsed time.Duration) RenderStats {
	return RenderStats{
		Rays:            int(c.rays.Load()),
		ActiveRays:      int(c.activeRays.Load()),
		SamplesQueried:  int(c.samplesQueried.Load()),
		SamplesFiltered: int(c.samplesFiltered.Load()),
		Chunks:          int(c.chunks.Load()),
		Elapsed:         elapsed,
	}
}
