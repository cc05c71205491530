package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Marga-Ghale/ora-kanban-backend/internal/metrics"
)

// Dispatcher runs best-effort side effects (email, notifications) off the
// request path. Failures and panics are logged and counted, never returned.
type Dispatcher struct {
	wg      sync.WaitGroup
	timeout time.Duration
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

func NewDispatcher(timeout time.Duration, m *metrics.Metrics, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{timeout: timeout, metrics: m, logger: logger}
}

// Go runs fn in the background with a context bounded by the dispatcher timeout.
func (d *Dispatcher) Go(effect string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithFields(logrus.Fields{"effect": effect, "panic": r}).Error("side effect panicked")
				d.metrics.SideEffectFailed(effect)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.WithError(err).WithField("effect", effect).Warn("side effect failed")
			d.metrics.SideEffectFailed(effect)
		}
	}()
}

// Wait blocks until every dispatched effect has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
