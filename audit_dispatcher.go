package goVerify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/goVerify/notify"
)

// dispatcher drains a bounded queue on one goroutine. Audit events and
// outbound notifications both go through it so neither can stall a
// verification.
type dispatcher[T any] struct {
	handle     func(ctx context.Context, item T)
	dropIfFull bool
	ch         chan T
	done       chan struct{}
	wg         sync.WaitGroup
	dropped    atomic.Uint64
	closed     atomic.Bool
	closeOnce  sync.Once
}

func newDispatcher[T any](buffer int, dropIfFull bool, handle func(ctx context.Context, item T)) *dispatcher[T] {
	if buffer <= 0 {
		buffer = 1
	}

	d := &dispatcher[T]{
		handle:     handle,
		dropIfFull: dropIfFull,
		ch:         make(chan T, buffer),
		done:       make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *dispatcher[AuditEvent] {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	return newDispatcher(cfg.BufferSize, cfg.DropIfFull, sink.Emit)
}

func newDeliveryDispatcher(cfg DeliveryConfig, n notify.Notifier, logger *slog.Logger) *dispatcher[notify.Message] {
	if !cfg.Enabled || n == nil {
		return nil
	}
	return newDispatcher(cfg.QueueSize, cfg.DropIfFull, func(ctx context.Context, msg notify.Message) {
		if err := n.Deliver(ctx, msg); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "notification delivery failed",
				slog.String("message_id", msg.ID),
				slog.String("channel", string(msg.Channel)),
				slog.String("kind", msg.Kind),
				slog.String("error", err.Error()),
			)
		}
	})
}

func (d *dispatcher[T]) run() {
	defer d.wg.Done()

	for {
		select {
		case item := <-d.ch:
			d.handle(context.Background(), item)
		case <-d.done:
			for {
				select {
				case item := <-d.ch:
					d.handle(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

// Emit queues item. With dropIfFull a full queue drops and counts the item;
// otherwise Emit blocks until there is room, ctx ends or the dispatcher
// closes.
func (d *dispatcher[T]) Emit(ctx context.Context, item T) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.ch <- item:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- item:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close drains queued items and stops the worker. Safe to call twice.
func (d *dispatcher[T]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *dispatcher[T]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
