package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit/entity"
)

type captureSink struct {
	mu       sync.Mutex
	logs     []entity.AuditLog
	attempts []entity.LoginAttempt
	err      error
	block    chan struct{}
}

func (c *captureSink) SaveAuditLog(_ context.Context, e *entity.AuditLog) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.logs = append(c.logs, *e)
	return nil
}

func (c *captureSink) SaveLoginAttempt(_ context.Context, a *entity.LoginAttempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.attempts = append(c.attempts, *a)
	return nil
}

func TestRecorderDrainsOnClose(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, zap.NewNop().Sugar(), 64)

	for i := 0; i < 10; i++ {
		rec.Record(&entity.AuditLog{Action: entity.ActionView, EntityName: "Contract"})
	}
	rec.RecordLoginAttempt(&entity.LoginAttempt{Username: "alice", Successful: true})
	rec.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.logs, 10)
	require.Len(t, sink.attempts, 1)
	require.Zero(t, rec.Dropped())
}

func TestRecorderDropsWhenFull(t *testing.T) {
	sink := &captureSink{block: make(chan struct{})}
	rec := NewRecorder(sink, zap.NewNop().Sugar(), 2)

	// the worker is stuck in the first write; overfill the buffer
	for i := 0; i < 10; i++ {
		rec.Record(&entity.AuditLog{Action: entity.ActionView})
	}
	require.Positive(t, rec.Dropped())

	close(sink.block)
	rec.Close()
}

func TestRecorderSwallowsWriteErrors(t *testing.T) {
	sink := &captureSink{err: errors.New("db down")}
	rec := NewRecorder(sink, zap.NewNop().Sugar(), 8)

	// must not panic or block the caller
	rec.Record(&entity.AuditLog{Action: entity.ActionCreate})
	rec.Close()
	require.Zero(t, rec.Dropped())
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, zap.NewNop().Sugar(), 8)
	rec.Close()

	rec.Record(&entity.AuditLog{Action: entity.ActionCreate})
	time.Sleep(10 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Empty(t, sink.logs)
}

func TestContextQueueOverwrites(t *testing.T) {
	ctx := WithQueue(context.Background())

	Queue(ctx, Event{Action: entity.ActionCreate, EntityName: "First"})
	Queue(ctx, Event{Action: entity.ActionUpdate, EntityName: "Second"})

	ev := Take(ctx)
	require.NotNil(t, ev)
	require.Equal(t, entity.ActionUpdate, ev.Action)
	require.Equal(t, "Second", ev.EntityName)

	// a second take yields nothing
	require.Nil(t, Take(ctx))
}

func TestQueueWithoutSlotIsNoop(t *testing.T) {
	ctx := context.Background()
	Queue(ctx, Event{Action: entity.ActionCreate})
	require.Nil(t, Take(ctx))
}
