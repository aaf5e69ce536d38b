package bot

import (
	"context"
	"sync"
)

// workerPool manages a fixed set of goroutines that drain ready chats.
type workerPool struct {
	size int
	wg   sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = defaultWorkers
	}
	return &workerPool{size: size}
}

// start launches workers that consume chat keys from ready until it is closed.
func (p *workerPool) start(ctx context.Context, ready <-chan string, drain func(context.Context, string)) {
	for range p.size {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for key := range ready {
				drain(ctx, key)
			}
		}()
	}
}

// wait blocks until all workers have exited.
func (p *workerPool) wait() {
	p.wg.Wait()
}
