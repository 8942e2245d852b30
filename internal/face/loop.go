package face

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/dokzlo13/watchface/internal/event"
	"github.com/dokzlo13/watchface/internal/metrics"
)

// ErrLoopClosed is returned when work is submitted to a closed loop.
var ErrLoopClosed = errors.New("face loop closed")

// Work runs on the loop goroutine with exclusive access to the controller.
type Work func(ctx context.Context, c *Controller)

// Loop is the face run loop. Producers on any goroutine publish events or
// queue work; a single goroutine executes them in order, so the controller
// and the state it owns are never touched concurrently.
type Loop struct {
	controller *Controller
	metrics    *metrics.Metrics
	queue      chan Work
	dropped    atomic.Int64

	// Shutdown signaling - closing this channel signals senders to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// NewLoop creates a loop around c. The controller's Schedule hook is pointed
// at the loop so redraws are queued behind the event that caused them.
func NewLoop(c *Controller, queueSize int, m *metrics.Metrics) *Loop {
	l := &Loop{
		controller: c,
		metrics:    m,
		queue:      make(chan Work, queueSize),
		closing:    make(chan struct{}),
	}
	c.opts.Schedule = l.schedule
	return l
}

// Publish queues an event without blocking. Events are dropped when the
// queue is full or the loop is closing.
func (l *Loop) Publish(ev event.Event) {
	l.Do(func(_ context.Context, c *Controller) { c.Dispatch(ev) })
}

func (l *Loop) schedule(ev event.Event) bool {
	return l.Do(func(_ context.Context, c *Controller) { c.Dispatch(ev) })
}

// Do queues work without blocking and reports whether it was accepted.
func (l *Loop) Do(work Work) bool {
	select {
	case <-l.closing:
		return false
	default:
	}

	select {
	case l.queue <- work:
		return true
	default:
		l.dropped.Inc()
		l.metrics.DroppedEvent()
		log.Warn().Msg("Face loop queue full, dropping work")
		return false
	}
}

// DoSync queues work, waits for it to run and returns its error.
func (l *Loop) DoSync(ctx context.Context, work func(ctx context.Context, c *Controller) error) error {
	done := make(chan error, 1)
	wrapped := Work(func(ctx context.Context, c *Controller) {
		done <- work(ctx, c)
	})

	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case l.queue <- wrapped:
	}

	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Dropped returns how many items were dropped on a full queue.
func (l *Loop) Dropped() int64 {
	return l.dropped.Load()
}

// Run executes queued work until ctx is cancelled or Close is called,
// then drains what is left.
func (l *Loop) Run(ctx context.Context) {
	log.Debug().Int("queue_size", cap(l.queue)).Msg("Face loop started")
	for {
		select {
		case <-ctx.Done():
			l.drain(ctx)
			return
		case <-l.closing:
			l.drain(ctx)
			return
		case work := <-l.queue:
			l.execute(ctx, work)
			// Retry a redraw that found the queue full.
			l.controller.scheduleRedraw()
		}
	}
}

// Close stops accepting work.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closing)
		if n := l.Dropped(); n > 0 {
			log.Warn().Int64("dropped", n).Msg("Face loop dropped work while running")
		}
	})
}

func (l *Loop) drain(ctx context.Context) {
	for {
		select {
		case work := <-l.queue:
			l.execute(ctx, work)
		default:
			return
		}
	}
}

func (l *Loop) execute(ctx context.Context, work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Face work panicked - loop continuing")
		}
	}()
	work(ctx, l.controller)
}
