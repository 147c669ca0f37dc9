package world

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/ersanchez/laguna/components"
	"github.com/ersanchez/laguna/systems"
)

// parallelThreshold is the minimum animal count to use parallel decisions.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// entitySnapshot captures read-only state for the decision phase. Every
// decision sees the same pre-tick world regardless of worker scheduling.
type entitySnapshot struct {
	Entity ecs.Entity
	Pos    components.Position
	Vel    components.Velocity
	Vit    components.Vitals
	Org    components.Organism
}

// intent captures a computed movement to apply after the decision phase.
type intent struct {
	VelX, VelY float32
	PosX, PosY float32
	State      components.State
	TargetID   uint32
	Faulted    bool // non-finite result, position held and velocity zeroed
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Neighbors []systems.Neighbor
}

// workChunk is a range of snapshot indices plus the tick's multipliers.
type workChunk struct {
	start, end int
	dt         float32
	moveMult   float32
	simTime    float64
}

// parallelState holds the persistent worker pool for decision computation.
// Workers write only into their own index range of intents, so no locking
// is needed and results are identical to a single-threaded pass.
type parallelState struct {
	snapshots  []entitySnapshot
	intents    []intent
	scratches  []workerScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].Neighbors = make([]systems.Neighbor, 0, 64)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
		snapshots:  make([]entitySnapshot, 0, 256),
		intents:    make([]intent, 0, 256),
	}
}

func (p *parallelState) startWorkers(w *World) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(w, i)
	}
}

func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(w *World, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			w.computeChunk(chunk, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// dispatch splits n snapshots across the pool and blocks until all
// chunks are done.
func (p *parallelState) dispatch(w *World, n int, chunk workChunk) {
	if !p.running {
		p.startWorkers(w)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for i := 0; i < p.numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		c := chunk
		c.start, c.end = start, end
		p.workChan <- c
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
