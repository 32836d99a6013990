package voice

import (
	"golang.org/x/sync/errgroup"
)

// WorkerPool is the optional §4.5.5 SIMD-batch voice worker pool. Real SIMD
// intrinsics have no Go analog, so a "batch" here is a contiguous slice of
// the voice array processed by one goroutine. Each ProcessBatched call
// starts its goroutines through an errgroup.Group and waits for them; no
// workers persist between calls and no channel carries batch indices.
// Disabled by default; when disabled everything runs inline on the audio
// thread via Manager.ProcessSample. The two modes agree up to float32
// rounding: a batch sums its voices in index order, but the per-batch
// partial sums are added together afterwards, so the grouping of the
// additions differs from the serial scan.
type WorkerPool struct {
	batchSize int
	workers   int
}

// NewWorkerPool creates a pool sized for batchSize voices per batch
// (8, matching the original's AVX2 lane width) across workers goroutines.
func NewWorkerPool(batchSize, workers int) *WorkerPool {
	if batchSize < 1 {
		batchSize = 8
	}
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{batchSize: batchSize, workers: workers}
}

// ProcessBatched sums active voices in batches of p.batchSize concurrently,
// using golang.org/x/sync/errgroup (an indirect dependency of the teacher
// via ebiten, promoted to direct) to bound concurrency at p.workers. The
// goroutines never return an error and the result of Wait is ignored. Each
// batch sums its slots in index order and the partial sums are then added
// in batch order, so the result matches Manager.ProcessSample's serial scan
// up to float32 rounding, not bit for bit.
func (p *WorkerPool) ProcessBatched(m *Manager) float32 {
	n := len(m.slots)
	batches := (n + p.batchSize - 1) / p.batchSize
	partial := make([]float32, batches)

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for b := 0; b < batches; b++ {
		b := b
		g.Go(func() error {
			start := b * p.batchSize
			end := start + p.batchSize
			if end > n {
				end = n
			}
			var sum float32
			for i := start; i < end; i++ {
				s := &m.slots[i]
				if !s.active {
					continue
				}
				sum += s.src.Render()
				if s.src.Done() {
					s.active = false
					s.src = nil
				}
			}
			partial[b] = sum
			return nil
		})
	}
	_ = g.Wait()

	var total float32
	for _, v := range partial {
		total += v
	}
	total += m.processFadesInline()
	return total
}

// processFadesInline handles the small fading-tail list serially even in
// batched mode — at most 8 entries, not worth splitting across workers.
func (m *Manager) processFadesInline() float32 {
	var sum float32
	for i := range m.fades {
		f := &m.fades[i]
		if f.src == nil || f.gain <= 0 {
			continue
		}
		sum += f.src.Render() * f.gain
		f.gain -= f.step
		if f.gain <= 0 || f.src.Done() {
			f.src = nil
		}
	}
	return sum
}
