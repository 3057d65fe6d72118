package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
)

func TestQueueNames(t *testing.T) {
	if got, want := DriverToWorkerQueueName("d1", 3), "scip-clang-d1-worker-3-recv"; got != want {
		t.Errorf("DriverToWorkerQueueName = %q, want %q", got, want)
	}
	if got, want := WorkerToDriverQueueName("d1"), "scip-clang-d1-worker-send"; got != want {
		t.Errorf("WorkerToDriverQueueName = %q, want %q", got, want)
	}
}

func TestIndexJobRoundTripsSemanticAnalysis(t *testing.T) {
	details := SemanticAnalysisJobDetails{Command: compdb.CompileCommand{
		Directory: "/proj",
		File:      "a.cc",
		Arguments: []string{"clang++", "-c", "a.cc"},
	}}
	job, err := NewSemanticAnalysisJob(details)
	if err != nil {
		t.Fatalf("NewSemanticAnalysisJob: %v", err)
	}
	if job.Kind != SemanticAnalysis {
		t.Fatalf("Kind = %q, want %q", job.Kind, SemanticAnalysis)
	}
	got, err := job.AsSemanticAnalysis()
	if err != nil {
		t.Fatalf("AsSemanticAnalysis: %v", err)
	}
	if got.Command.File != "a.cc" {
		t.Errorf("Command.File = %q, want a.cc", got.Command.File)
	}
	if _, err := job.AsEmitIndex(); err == nil {
		t.Error("AsEmitIndex on a SemanticAnalysis job should fail")
	}
}

func TestSendReceiveOverUnixSocket(t *testing.T) {
	dir := t.TempDir()
	ln, err := Listen(dir, "test-queue")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var clientConnErr error
	connCh := make(chan struct{})
	go func() {
		defer close(connCh)
		conn, err := Dial(ctx, dir, "test-queue", time.Second)
		if err != nil {
			clientConnErr = err
			return
		}
		sender := NewSender(conn, 4)
		if sendErr := sender.Send(IpcTestMessage{Content: "hello"}); sendErr != nil {
			clientConnErr = sendErr
		}
		sender.Shutdown()
	}()

	serverConn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	receiver := NewReceiver(serverConn)

	var msg IpcTestMessage
	status, err := receiver.Receive(time.Second, &msg)
	<-connCh
	if clientConnErr != nil {
		t.Fatalf("client: %v", clientConnErr)
	}
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if status != OK {
		t.Fatalf("status = %v, want OK", status)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want hello", msg.Content)
	}

	status, err = receiver.Receive(time.Second, &msg)
	if err != nil {
		t.Fatalf("Receive after shutdown: %v", err)
	}
	if status != Shutdown {
		t.Errorf("status after peer shutdown = %v, want Shutdown", status)
	}
}

func TestReceiveTimesOutWhenNoMessageArrives(t *testing.T) {
	dir := t.TempDir()
	ln, err := Listen(dir, "timeout-queue")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		conn, err := Dial(ctx, dir, "timeout-queue", time.Second)
		if err == nil {
			defer conn.Close()
			time.Sleep(200 * time.Millisecond)
		}
	}()

	serverConn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	receiver := NewReceiver(serverConn)

	var msg IpcTestMessage
	status, err := receiver.Receive(20*time.Millisecond, &msg)
	<-clientDone
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if status != Timeout {
		t.Errorf("status = %v, want Timeout", status)
	}
}

func TestSendReportsQueueFullWhenBufferSaturated(t *testing.T) {
	dir := t.TempDir()
	ln, err := Listen(dir, "full-queue")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := Dial(ctx, dir, "full-queue", time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	sender := NewSender(conn, 1)
	// Never Accept() on the listener side, so the OS socket buffer plus
	// our capacity-1 channel will eventually saturate.
	var sawFull bool
	for i := 0; i < 10000; i++ {
		if sendErr := sender.Send(IpcTestMessage{Content: "x"}); sendErr == ErrQueueFull {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Error("expected ErrQueueFull once the buffer and OS socket saturate")
	}
}
