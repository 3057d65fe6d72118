package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	ierrors "github.com/scip-clang-go/scip-clang-go/internal/errors"
)

// SocketPath maps a queue name (DriverToWorkerQueueName /
// WorkerToDriverQueueName) onto the Unix domain socket path backing it.
func SocketPath(baseDir, queueName string) string {
	return filepath.Join(baseDir, queueName+".sock")
}

// Listener accepts the one connection a queue name's peer will make.
type Listener struct {
	path string
	ln   net.Listener
}

// Listen creates the Unix domain socket for queueName, removing any stale
// socket file left behind by a crashed previous run.
func Listen(baseDir, queueName string) (*Listener, error) {
	path := SocketPath(baseDir, queueName)
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.IpcError, "ipc", fmt.Sprintf("listen on %s", path), err)
	}
	return &Listener{path: path, ln: ln}, nil
}

// Accept blocks for the next incoming connection.
func (l *Listener) Accept() (net.Conn, error) {
	return l.ln.Accept()
}

// Close stops accepting and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	return err
}

// Dial connects to a queue whose Listener has already been created
// (or will be shortly; Dial retries until dialTimeout elapses).
func Dial(ctx context.Context, baseDir, queueName string, dialTimeout time.Duration) (net.Conn, error) {
	path := SocketPath(baseDir, queueName)
	deadline := time.Now().Add(dialTimeout)
	var lastErr error
	for {
		d := net.Dialer{}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, ierrors.Wrap(ierrors.IpcError, "ipc", fmt.Sprintf("dial %s", path), lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// sendBufferCapacity bounds how many unsent messages a Sender will buffer
// before Send reports ErrQueueFull (spec §4.1's "bounded" queue).
const sendBufferCapacity = 64

// WorkerTransport is what one worker process holds: a Receiver for
// requests addressed to it, and a Sender for responses back to the
// driver's shared inbound queue.
type WorkerTransport struct {
	Recv *Receiver
	Send *Sender
}

// DialWorker connects a worker's transport: it dials its own recv queue
// (the driver must already be listening on it) and the driver's shared
// send queue.
func DialWorker(ctx context.Context, baseDir, driverID string, workerID uint32, dialTimeout time.Duration) (*WorkerTransport, error) {
	recvConn, err := Dial(ctx, baseDir, DriverToWorkerQueueName(driverID, workerID), dialTimeout)
	if err != nil {
		return nil, err
	}
	sendConn, err := Dial(ctx, baseDir, WorkerToDriverQueueName(driverID), dialTimeout)
	if err != nil {
		recvConn.Close()
		return nil, err
	}
	return &WorkerTransport{
		Recv: NewReceiver(recvConn),
		Send: NewSender(sendConn, sendBufferCapacity),
	}, nil
}

// Close shuts down both directions.
func (t *WorkerTransport) Close() error {
	sendErr := t.Send.Shutdown()
	recvErr := t.Recv.Close()
	if sendErr != nil {
		return sendErr
	}
	return recvErr
}

// DriverWorkerHandle is the driver's view of one worker: a Sender for
// dispatching requests to it, and that worker's own id for correlating
// inbound responses.
type DriverWorkerHandle struct {
	WorkerID uint32
	Send     *Sender

	listener *Listener
}

// ListenForWorker opens the recv queue a worker with the given id will
// dial, before that worker process is spawned.
func ListenForWorker(baseDir, driverID string, workerID uint32) (*Listener, error) {
	return Listen(baseDir, DriverToWorkerQueueName(driverID, workerID))
}

// AcceptWorker completes a driver-side handle once the worker has dialed
// the queue a prior ListenForWorker call opened.
func AcceptWorker(listener *Listener, workerID uint32) (*DriverWorkerHandle, error) {
	conn, err := listener.Accept()
	if err != nil {
		return nil, err
	}
	return &DriverWorkerHandle{
		WorkerID: workerID,
		Send:     NewSender(conn, sendBufferCapacity),
		listener: listener,
	}, nil
}

// Close shuts down the driver's sending half for this worker and its
// listener.
func (h *DriverWorkerHandle) Close() error {
	err := h.Send.Shutdown()
	if cerr := h.listener.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// ResponseInbox is the driver's single shared queue for every worker's
// responses (WorkerToDriverQueueName is not per-worker).
type ResponseInbox struct {
	listener *Listener
}

// ListenForResponses opens the shared response queue, before any worker
// is spawned.
func ListenForResponses(baseDir, driverID string) (*ResponseInbox, error) {
	listener, err := Listen(baseDir, WorkerToDriverQueueName(driverID))
	if err != nil {
		return nil, err
	}
	return &ResponseInbox{listener: listener}, nil
}

// AcceptWorkerConnection completes one worker's half of the shared
// response queue once that worker has dialed in, returning a Receiver
// scoped to that one worker's connection.
func (i *ResponseInbox) AcceptWorkerConnection() (*Receiver, error) {
	conn, err := i.listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewReceiver(conn), nil
}

// Close stops accepting new worker connections.
func (i *ResponseInbox) Close() error {
	return i.listener.Close()
}
