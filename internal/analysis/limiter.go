package analysis

import "sync"

// limiter bounds the number of concurrently running workers.
type limiter struct {
	wg   sync.WaitGroup
	pool chan struct{}
}

func newLimiter(n int) *limiter {
	return &limiter{pool: make(chan struct{}, max(n, 1))}
}

// Go runs fn once a slot is free.
func (l *limiter) Go(fn func()) {
	l.wg.Add(1)
	l.pool <- struct{}{}
	go func() {
		defer func() {
			<-l.pool
			l.wg.Done()
		}()
		fn()
	}()
}

func (l *limiter) Wait() { l.wg.Wait() }
