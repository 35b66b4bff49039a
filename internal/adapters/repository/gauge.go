package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/gazecluster/pkg/metrics"
)

// sessionGauge publishes the session count at a fixed interval until it is
// closed or its context ends.
type sessionGauge struct {
	wg       sync.WaitGroup
	stopChan chan struct{}
	once     sync.Once
}

func (g *sessionGauge) start(ctx context.Context, interval time.Duration, count func(context.Context) int) {
	g.stopChan = make(chan struct{})
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-g.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateSessionCount(count(ctx))
			}
		}
	}()
}

func (g *sessionGauge) close() {
	g.once.Do(func() {
		if g.stopChan != nil {
			close(g.stopChan)
		}
	})
	g.wg.Wait()
}
