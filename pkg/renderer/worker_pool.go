package renderer

import (
	"runtime"
	"sync"

	"github.com/df07/go-radiance/pkg/core"
)

// chunkTask is one pixel chunk to render.
type chunkTask struct {
	pixels *core.PixelBatch
}

// chunkPool runs pixel-chunk renders on a fixed set of workers. Every chunk
// writes a disjoint range of the shared output maps, so workers scatter
// their results directly without further coordination. The pool keeps the
// first error and drains remaining tasks, since a submitter may still be
// feeding the queue when a chunk fails.
type chunkPool struct {
	tasks  chan chunkTask
	render func(chunkTask) error
	wg     sync.WaitGroup

	mu  sync.Mutex
	err error
}

// newChunkPool starts numWorkers workers running render. A non-positive
// count uses one worker per CPU.
func newChunkPool(numWorkers int, render func(chunkTask) error) *chunkPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	p := &chunkPool{
		tasks:  make(chan chunkTask, numWorkers),
		render: render,
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// run is the main worker loop.
func (p *chunkPool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.failed() {
			continue
		}
		if err := p.render(task); err != nil {
			p.fail(err)
		}
	}
}

// submit queues one chunk.
func (p *chunkPool) submit(task chunkTask) {
	p.tasks <- task
}

// close waits for all queued chunks and returns the first render error.
func (p *chunkPool) close() error {
	close(p.tasks)
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *chunkPool) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *chunkPool) failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err != nil
}
