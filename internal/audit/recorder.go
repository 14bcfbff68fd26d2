package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit/entity"
)

// Sink persists audit events. *repo.AuditRepo is the Postgres implementation.
type Sink interface {
	SaveAuditLog(ctx context.Context, e *entity.AuditLog) error
	SaveLoginAttempt(ctx context.Context, a *entity.LoginAttempt) error
}

type event struct {
	log     *entity.AuditLog
	attempt *entity.LoginAttempt
}

// Recorder is a fire-and-forget writer for audit records. Events are handed
// to a buffered channel and drained by a single background goroutine, so a
// slow or failing audit write never blocks or fails the request that queued
// it. Write failures are logged and counted, not surfaced.
type Recorder struct {
	sink   Sink
	logger *zap.SugaredLogger
	ch     chan event
	done   chan struct{}
	wg     sync.WaitGroup

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewRecorder(sink Sink, logger *zap.SugaredLogger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		sink:   sink,
		logger: logger,
		ch:     make(chan event, buffer),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.ch:
			r.write(ev)
		case <-r.done:
			// drain whatever is still buffered before exiting
			for {
				select {
				case ev := <-r.ch:
					r.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(ev event) {
	var err error
	if ev.log != nil {
		err = r.sink.SaveAuditLog(context.Background(), ev.log)
	} else if ev.attempt != nil {
		err = r.sink.SaveLoginAttempt(context.Background(), ev.attempt)
	}
	if err != nil && r.logger != nil {
		r.logger.Warnw("audit write failed", "err", err)
	}
}

// Record enqueues one audit log entry. Non-blocking: when the buffer is full
// the event is dropped and counted rather than stalling the request.
func (r *Recorder) Record(e *entity.AuditLog) {
	r.enqueue(event{log: e})
}

// RecordLoginAttempt enqueues one login attempt record.
func (r *Recorder) RecordLoginAttempt(a *entity.LoginAttempt) {
	r.enqueue(event{attempt: a})
}

func (r *Recorder) enqueue(ev event) {
	if r == nil || r.closed.Load() {
		return
	}
	select {
	case r.ch <- ev:
	case <-r.done:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because of a full buffer.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close stops the recorder after draining buffered events.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
		r.wg.Wait()
	})
}
