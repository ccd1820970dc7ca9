package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Schedule queues an alert and returns at once. A full queue drops the alert.
func (n *Notifier) Schedule(a Alert) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.Warn("notifier closed, alert dropped", zap.String("product", a.Product))
		return
	}
	select {
	case n.queue <- a:
	default:
		n.log.Warn("alert queue full, alert dropped",
			zap.String("product", a.Product),
			zap.Int("queue_size", cap(n.queue)))
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for a := range n.queue {
		select {
		case <-n.stop:
			n.log.Info("alert dropped on shutdown", zap.String("product", a.Product))
			continue
		default:
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-n.stop:
				cancel()
			case <-ctx.Done():
			}
		}()
		// Throttle between sends to stay under the provider's rate limit.
		if n.sleep(ctx, n.cfg.Delay) {
			n.NotifyLowStock(ctx, a.Product, a.Stock, a.Store, a.Email)
		} else {
			n.log.Info("alert dropped on shutdown", zap.String("product", a.Product))
		}
		cancel()
	}
}

// Close stops accepting alerts. With DrainOnShutdown it waits for queued
// alerts to be sent; otherwise pending ones are dropped. ctx bounds the wait.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	if !n.cfg.DrainOnShutdown {
		close(n.stop)
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if n.cfg.DrainOnShutdown {
			close(n.stop)
		}
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
