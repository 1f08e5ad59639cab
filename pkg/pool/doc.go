// Package pool provides a bounded worker pool with admission control.
//
// A Pool owns a fixed number of worker goroutines and a fixed-size FIFO ring
// buffer of tasks. Submit never blocks: when the ring is full it returns
// ErrQueueFull and the caller keeps ownership of the task (the acceptor closes
// the connection it was about to hand over). Idle workers wait on a condition
// variable, so an empty pool costs nothing.
//
// # Shutdown
//
// Shutdown sets the shutdown flag, closes the Done channel and wakes every
// worker. What happens to tasks still queued is an explicit choice:
//
//   - DropPending (default): a worker that wakes up and sees the flag exits
//     without taking another task. Leftover tasks are discarded and, if they
//     implement Discarder, told so.
//   - DrainPending: workers keep taking tasks until the queue is empty.
//
// Tasks already running always finish. Shutdown returns only after every
// worker goroutine has exited.
package pool
