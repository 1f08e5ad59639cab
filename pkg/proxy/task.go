package proxy

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
)

// ConnTask is a pool task that serves one client connection. It owns conn
// from the moment it is handed to the pool.
type ConnTask struct {
	h    *Handler
	ctx  context.Context
	conn net.Conn
}

// Task wraps conn for submission to a worker pool.
func (h *Handler) Task(ctx context.Context, conn net.Conn) *ConnTask {
	return &ConnTask{h: h, ctx: ctx, conn: conn}
}

// Run serves the connection.
func (t *ConnTask) Run() {
	t.h.Serve(t.ctx, t.conn)
}

// Discard closes a connection the pool dropped without running it.
func (t *ConnTask) Discard() {
	rec := Record{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr(t.conn),
		Outcome:    OutcomeDiscarded,
		Start:      time.Now(),
	}
	if err := t.conn.Close(); err != nil {
		t.h.logger.Debug("closing discarded connection", "remote_addr", rec.RemoteAddr, "error", err)
	}
	t.h.observers.ObserveConnection(rec)
}
