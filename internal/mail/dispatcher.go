// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/adminkit/adminkit/pkg/errutil"
)

// Dispatcher defaults.
const (
	DefaultPollInterval = time.Second
	DefaultRetryCap     = 5 * time.Minute
)

// Config tunes the delivery worker.
type Config struct {
	// PollInterval is how often the worker looks for due messages.
	PollInterval time.Duration

	// QueueCapacity bounds the queue. Zero means unbounded.
	QueueCapacity int

	// RetryCap caps the exponential backoff between attempts.
	RetryCap time.Duration

	// MaxAttempts moves a message to the dead-letter list after this many
	// failed attempts. Zero retries forever.
	MaxAttempts int

	// DryRun logs and discards messages instead of sending them.
	DryRun bool
}

// Dispatcher queues messages and delivers them from a single background worker.
type Dispatcher struct {
	transport Transport
	policy    *Policy
	cfg       Config
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time

	mu          sync.Mutex
	queue       []*Message
	deadLetters []*Message

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records dispatcher activity in m.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock overrides the time source used for retry scheduling.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a Dispatcher. The worker does not run until Start.
func NewDispatcher(transport Transport, policy *Policy, cfg Config, opts ...DispatcherOption) (*Dispatcher, error) {
	if transport == nil {
		return nil, oops.Errorf("mail transport is required")
	}
	if policy == nil {
		return nil, oops.Errorf("mail policy is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.QueueCapacity < 0 || cfg.MaxAttempts < 0 {
		return nil, oops.Code("MAIL_INVALID_CONFIG").
			With("queue_capacity", cfg.QueueCapacity).
			With("max_attempts", cfg.MaxAttempts).
			Errorf("queue capacity and max attempts cannot be negative")
	}

	d := &Dispatcher{
		transport: transport,
		policy:    policy,
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Submit composes a message under the dispatcher's policy and enqueues it.
func (d *Dispatcher) Submit(to, subject, body string, contentType ContentType) (bool, error) {
	msg, err := d.policy.Compose(to, subject, body, contentType)
	if err != nil {
		return false, err
	}
	return d.Enqueue(msg), nil
}

// Enqueue appends msg to the tail of the queue. It returns false only when a
// bounded queue is full.
func (d *Dispatcher) Enqueue(msg *Message) bool {
	d.mu.Lock()
	if d.cfg.QueueCapacity > 0 && len(d.queue) >= d.cfg.QueueCapacity {
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.Rejected.Inc()
		}
		d.logger.Warn("mail queue full, message rejected",
			"message_id", msg.ID.String(),
			"capacity", d.cfg.QueueCapacity)
		return false
	}
	d.queue = append(d.queue, msg)
	depth := len(d.queue)
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.Enqueued.Inc()
		d.metrics.QueueDepth.Set(float64(depth))
	}
	return true
}

// Len returns the number of queued messages, including those waiting to retry.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// DeadLetters returns a snapshot of abandoned messages.
func (d *Dispatcher) DeadLetters() []*Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Message, len(d.deadLetters))
	copy(out, d.deadLetters)
	return out
}

// Start launches the worker. Calling Start on a running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(ctx, d.done)
	d.logger.Info("mail dispatcher started",
		"poll_interval", d.cfg.PollInterval,
		"dry_run", d.cfg.DryRun)
}

// Stop cancels the worker and waits for it to exit. Messages still queued are
// kept and are delivered if the dispatcher is started again.
func (d *Dispatcher) Stop() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.done == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	d.logger.Info("mail dispatcher stopped", "pending", d.Len())
}

func (d *Dispatcher) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, msg := range d.takeDue() {
				if ctx.Err() != nil {
					d.requeue(msg)
					continue
				}
				d.deliver(ctx, msg)
			}
		}
	}
}

// takeDue removes every message whose next attempt time has passed, keeping
// the order of both the taken and the remaining messages.
func (d *Dispatcher) takeDue() []*Message {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	var due []*Message
	remaining := d.queue[:0]
	for _, msg := range d.queue {
		if msg.nextAttempt.After(now) {
			remaining = append(remaining, msg)
			continue
		}
		due = append(due, msg)
	}
	for i := len(remaining); i < len(d.queue); i++ {
		d.queue[i] = nil
	}
	d.queue = remaining
	if d.metrics != nil {
		d.metrics.QueueDepth.Set(float64(len(d.queue)))
	}
	return due
}

func (d *Dispatcher) deliver(ctx context.Context, msg *Message) {
	logger := d.logger.With("message_id", msg.ID.String(), "to", msg.To)

	if d.cfg.DryRun {
		logger.Info("dry run, discarding email", "subject", msg.Subject)
		if d.metrics != nil {
			d.metrics.DryRun.Inc()
		}
		return
	}

	if err := d.transport.Send(ctx, msg); err != nil {
		d.handleFailure(logger, msg, err)
		return
	}

	logger.Info("email sent", "attempts", msg.attempts+1)
	if d.metrics != nil {
		d.metrics.Delivered.Inc()
	}
}

func (d *Dispatcher) handleFailure(logger *slog.Logger, msg *Message, err error) {
	msg.attempts++
	if d.metrics != nil {
		d.metrics.Failed.Inc()
	}

	if msg.backoff == nil {
		msg.backoff = d.newBackoff()
	}
	delay, stop := msg.backoff.Next()
	if stop {
		d.mu.Lock()
		d.deadLetters = append(d.deadLetters, msg)
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.DeadLettered.Inc()
		}
		errutil.LogError(logger, "email abandoned after repeated failures", err)
		return
	}

	msg.nextAttempt = d.now().Add(delay)
	logger.Warn("email delivery failed, requeued",
		"error", err,
		"attempts", msg.attempts,
		"retry_in", delay)
	d.requeue(msg)
}

// requeue puts a message back at the tail. Capacity is not enforced for
// messages that were already accepted.
func (d *Dispatcher) requeue(msg *Message) {
	d.mu.Lock()
	d.queue = append(d.queue, msg)
	depth := len(d.queue)
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.QueueDepth.Set(float64(depth))
	}
}

func (d *Dispatcher) newBackoff() retry.Backoff {
	b := retry.NewExponential(d.cfg.PollInterval)
	if d.cfg.RetryCap > 0 {
		b = retry.WithCappedDuration(d.cfg.RetryCap, b)
	}
	if d.cfg.MaxAttempts > 0 {
		b = retry.WithMaxRetries(uint64(d.cfg.MaxAttempts-1), b)
	}
	return b
}
