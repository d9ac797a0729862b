package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vigilhq/vigil/internal/domain"
)

// Integration delivers one check outcome to a third-party service.
// Delivery is best effort, at-most-once-attempted.
type Integration interface {
	Name() string
	// Configured reports whether the monitor carries the settings this
	// integration needs.
	Configured(m domain.Monitor) bool
	Notify(ctx context.Context, m domain.Monitor, out domain.CheckOutcome) error
}

const notifyTimeout = 10 * time.Second

// Dispatcher fires integrations as detached background work. Errors are
// logged and swallowed; they never reach the batch result.
type Dispatcher struct {
	Logger       *zap.Logger
	Integrations []Integration

	wg sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, integrations ...Integration) *Dispatcher {
	return &Dispatcher{Logger: logger, Integrations: integrations}
}

// Dispatch pairs each outcome with its monitor and launches one
// goroutine per configured integration. It returns without waiting.
func (d *Dispatcher) Dispatch(monitors []domain.Monitor, outcomes []domain.CheckOutcome) {
	byID := make(map[domain.MonitorID]domain.Monitor, len(monitors))
	for _, m := range monitors {
		byID[m.ID] = m
	}

	for _, out := range outcomes {
		m, ok := byID[out.MonitorID]
		if !ok {
			continue
		}
		for _, ig := range d.Integrations {
			if ig == nil || !ig.Configured(m) {
				continue
			}
			d.wg.Add(1)
			go d.send(ig, m, out)
		}
	}
}

func (d *Dispatcher) send(ig Integration, m domain.Monitor, out domain.CheckOutcome) {
	defer d.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := ig.Notify(ctx, m, out); err != nil {
		d.Logger.Warn("notify_failed",
			zap.String("integration", ig.Name()),
			zap.String("monitor_id", string(m.ID)),
			zap.String("kind", string(out.Kind)),
			zap.Error(err),
		)
	}
}

// Wait blocks until all in-flight deliveries finish. Used by tests and
// graceful shutdown; batch runs never call it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
