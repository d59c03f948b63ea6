package jxl

import (
	"runtime"
	"sync"
)

// ThreadPool runs independent tasks of one decode step in parallel. Run must
// not return before every task has finished.
type ThreadPool interface {
	Run(count int, task func(i int) error) error
}

// workerPool runs tasks on a fixed number of goroutines
type workerPool struct {
	workers int
}

// NewThreadPool creates a pool with the given number of workers. workers <= 0
// uses one worker per CPU.
func NewThreadPool(workers int) ThreadPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &workerPool{workers: workers}
}

// Run calls task for every i in [0, count) and returns the first error
func (p *workerPool) Run(count int, task func(i int) error) error {
	if count <= 0 {
		return nil
	}
	workers := p.workers
	if workers > count {
		workers = count
	}
	if workers == 1 {
		return runSerial(count, task)
	}

	jobs := make(chan int, count)
	for i := 0; i < count; i++ {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := task(i); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func runSerial(count int, task func(i int) error) error {
	for i := 0; i < count; i++ {
		if err := task(i); err != nil {
			return err
		}
	}
	return nil
}

// RunOnPool runs the tasks on pool, or serially when pool is nil
func RunOnPool(pool ThreadPool, count int, task func(i int) error) error {
	if pool == nil {
		return runSerial(count, task)
	}
	return pool.Run(count, task)
}
