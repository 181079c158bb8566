package mail

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/metrics"
	"golang.org/x/sync/errgroup"
)

// Composer renders the email for a confirmation request.
type Composer interface {
	Compose(req ConfirmationRequest) (Message, error)
}

// Dispatcher delivers confirmation emails in the background. Enqueue never
// blocks the caller; a full queue drops the request. Delivery failures are
// logged and counted, not retried. Once Run has returned, Enqueue refuses
// new requests.
type Dispatcher struct {
	mu      sync.RWMutex
	stopped bool

	queue    chan ConfirmationRequest
	composer Composer
	mailer   Mailer
	workers  int
	timeout  time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(composer Composer, mailer Mailer, workers, queueSize int, timeout time.Duration,
	logger logging.Logger, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{
		queue:    make(chan ConfirmationRequest, queueSize),
		composer: composer,
		mailer:   mailer,
		workers:  workers,
		timeout:  timeout,
		logger:   logger.With("module", "mail"),
		metrics:  m,
	}
}

// Enqueue schedules req and reports whether it was accepted.
func (d *Dispatcher) Enqueue(req ConfirmationRequest) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(req, "mail dispatcher stopped, dropping confirmation email")
		return false
	}

	select {
	case d.queue <- req:
		return true
	default:
		d.drop(req, "mail queue full, dropping confirmation email")
		return false
	}
}

func (d *Dispatcher) drop(req ConfirmationRequest, msg string) {
	d.metrics.Email(metrics.EmailDropped)
	d.logger.Warn(context.Background(), msg, "to", req.Email)
}

// Run starts the workers and blocks until ctx is cancelled and the queue
// has been drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	g := &errgroup.Group{}
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			d.work(ctx)
			return nil
		})
	}
	err := g.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	// requests accepted between the workers' drain and the stop flag
	d.drain(ctx)

	return err
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return
		case req := <-d.queue:
			d.deliver(ctx, req)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case req := <-d.queue:
			d.deliver(ctx, req)
		default:
			return
		}
	}
}

// deliver sends one email. The send outlives cancellation of ctx (bounded by
// the per-message timeout) so queued mail is not lost on shutdown.
func (d *Dispatcher) deliver(ctx context.Context, req ConfirmationRequest) {
	sendCtx := context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, d.timeout)
		defer cancel()
	}

	msg, err := d.composer.Compose(req)
	if err != nil {
		d.metrics.Email(metrics.EmailFailed)
		d.logger.Error(sendCtx, "compose confirmation email", "to", req.Email, "error", err)
		return
	}

	if err := d.mailer.Send(sendCtx, msg); err != nil {
		d.metrics.Email(metrics.EmailFailed)
		d.logger.Error(sendCtx, "send confirmation email", "to", req.Email, "error", err)
		return
	}

	d.metrics.Email(metrics.EmailSent)
	d.logger.Info(sendCtx, "confirmation email sent", "to", req.Email)
}
