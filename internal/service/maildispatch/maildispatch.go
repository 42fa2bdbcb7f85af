package maildispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/mailer"
	"github.com/nkiryanov/bazario/internal/metrics"
)

const (
	defaultCountWorkers = 4                // Number of workers to deliver mails
	defaultQueueSize    = 100              // Mails waiting for delivery; more are dropped
	defaultSendTimeout  = 30 * time.Second // Timeout for one mail delivery
)

var ErrQueueFull = errors.New("mail queue is full")

type Config struct {
	CountWorkers int
	QueueSize    int
	SendTimeout  time.Duration
	Logger       logger.Logger
	Metrics      metrics.Recorder
}

// Dispatcher delivers mails in background with a pool of workers.
// Send never blocks: when queue is full the mail is dropped.
type Dispatcher struct {
	countWorkers int
	sendTimeout  time.Duration

	queue  chan mailer.Message
	sender mailer.Sender

	logger  logger.Logger
	metrics metrics.Recorder
}

func New(sender mailer.Sender, cfg Config) *Dispatcher {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}

	return &Dispatcher{
		countWorkers: cfg.CountWorkers,
		sendTimeout:  cfg.SendTimeout,
		queue:        make(chan mailer.Message, cfg.QueueSize),
		sender:       sender,
		logger:       cfg.Logger.With("component", "maildispatch"),
		metrics:      cfg.Metrics,
	}
}

// Put mail to queue. Request context is not used for delivery
func (d *Dispatcher) Send(_ context.Context, msg mailer.Message) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Warn("Mail dropped, queue is full", "subject", msg.Subject)
		return ErrQueueFull
	}
}

// Start workers. Returned channel closed when all workers stopped
func (d *Dispatcher) Process(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < d.countWorkers; i++ {
		wg.Add(1)
		go func() {
			d.worker(ctx)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		d.logger.Debug("Mail dispatcher stopped", "pending", len(d.queue))
	}()

	return idleStopped
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-d.queue:
			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			err := d.sender.Send(sendCtx, msg)
			cancel()

			if err != nil {
				d.logger.Error("Failed to send mail", "error", err, "subject", msg.Subject)
				d.metrics.MailFailure("delivery")
				continue
			}
			d.logger.Debug("Mail sent", "subject", msg.Subject)
		}
	}
}
