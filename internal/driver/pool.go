package driver

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/scip-clang-go/scip-clang-go/internal/compdb"
	"github.com/scip-clang-go/scip-clang-go/internal/ipc"
	"github.com/scip-clang-go/scip-clang-go/internal/jobid"
)

// slot is the driver's view of one worker index across however many
// process lifetimes it goes through (a crash-and-respawn keeps the same
// slot index and queue names, per spec §4.4's "the same worker that did
// Phase A must do Phase B" requirement).
type slot struct {
	index uint32

	mu             sync.Mutex
	handle         *ipc.DriverWorkerHandle
	cmd            *exec.Cmd
	generation     int
	lastGenForTask map[uint32]int
}

// workerPool owns every worker slot plus the driver's shared response
// inbox, and gives run a blocking request/response call (dispatch) that
// hides respawn-on-crash and Phase-A-replay-on-respawn from the protocol
// logic in driver.go.
type workerPool struct {
	opts  Options
	inbox *ipc.ResponseInbox
	slots []*slot

	mu            sync.Mutex
	pending       map[uint64]chan ipc.IndexJobResult
	timedOutTasks map[uint32]bool
}

func newWorkerPool(ctx context.Context, opts Options) (*workerPool, error) {
	inbox, err := ipc.ListenForResponses(opts.SocketBaseDir, opts.DriverID)
	if err != nil {
		return nil, err
	}
	p := &workerPool{
		opts:          opts,
		inbox:         inbox,
		pending:       make(map[uint64]chan ipc.IndexJobResult),
		timedOutTasks: make(map[uint32]bool),
	}
	p.slots = make([]*slot, opts.NumWorkers)
	for i := range p.slots {
		p.slots[i] = &slot{index: uint32(i), lastGenForTask: make(map[uint32]int)}
		if err := p.spawnSlot(ctx, p.slots[i]); err != nil {
			p.shutdown()
			return nil, err
		}
	}
	go p.acceptLoop()
	return p, nil
}

// spawnSlot (re)starts the worker process backing s: it opens s's recv
// queue, invokes opts.Spawn to build the command line, starts the
// process, and blocks until that process dials in.
func (p *workerPool) spawnSlot(ctx context.Context, s *slot) error {
	ln, err := ipc.ListenForWorker(p.opts.SocketBaseDir, p.opts.DriverID, s.index)
	if err != nil {
		return err
	}
	cmd, err := p.opts.Spawn(ctx, s.index)
	if err != nil {
		ln.Close()
		return err
	}
	if err := cmd.Start(); err != nil {
		ln.Close()
		return err
	}
	handle, err := ipc.AcceptWorker(ln, s.index)
	if err != nil {
		_ = cmd.Process.Kill()
		return err
	}
	s.mu.Lock()
	s.handle = handle
	s.cmd = cmd
	s.generation++
	s.mu.Unlock()
	return nil
}

// respawn kills whatever is left of s's current process and starts a
// fresh one in its place, keeping the same slot index (spec §4.4's
// fault-tolerance scenarios S1-S4).
func (p *workerPool) respawn(ctx context.Context, s *slot) {
	s.mu.Lock()
	cmd := s.cmd
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()
	if handle != nil {
		_ = handle.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = p.spawnSlot(ctx, s)
}

func (p *workerPool) ensureAlive(ctx context.Context, s *slot) bool {
	s.mu.Lock()
	alive := s.handle != nil
	s.mu.Unlock()
	if alive {
		return true
	}
	return p.spawnSlot(ctx, s) == nil
}

// acceptLoop accepts every worker connection to the shared response
// queue for the lifetime of the pool; a respawned worker process dials a
// fresh connection, so this keeps accepting rather than stopping after
// opts.NumWorkers connections.
func (p *workerPool) acceptLoop() {
	for {
		recv, err := p.inbox.AcceptWorkerConnection()
		if err != nil {
			return
		}
		go p.readLoop(recv)
	}
}

func (p *workerPool) readLoop(recv *ipc.Receiver) {
	for {
		var resp ipc.IndexJobResponse
		status, err := recv.Receive(p.opts.JobTimeout, &resp)
		switch status {
		case ipc.Shutdown:
			return
		case ipc.Timeout:
			continue
		case ipc.MalformedMessage:
			_ = err
			continue
		case ipc.OK:
			p.deliver(resp)
		}
	}
}

func (p *workerPool) deliver(resp ipc.IndexJobResponse) {
	key := resp.JobID.To64Bit()
	p.mu.Lock()
	ch, ok := p.pending[key]
	p.mu.Unlock()
	if ok {
		ch <- resp.Result
	}
}

// dispatch sends one request for taskID to its assigned slot (taskID
// modulo the worker count, fixed across both phases) and blocks for its
// response, retrying on timeout/crash/malformed-message up to
// opts.MaxRetries times. Before an EmitIndex request it replays the
// task's SemanticAnalysis request if the slot's worker process has
// restarted since that task's last successful Phase A, since a fresh
// process has no cached compile command for it (spec §4.4 step 6, worker
// re-parse/replay model documented in internal/worker).
func (p *workerPool) dispatch(ctx context.Context, taskID uint32, cmd compdb.CompileCommand, buildReq func() (ipc.IndexJobRequest, error)) (ipc.IndexJobResult, bool) {
	s := p.slots[taskID%uint32(len(p.slots))]
	for attempt := 0; attempt <= p.opts.MaxRetries; attempt++ {
		if !p.ensureAlive(ctx, s) {
			continue
		}
		req, err := buildReq()
		if err != nil {
			return ipc.IndexJobResult{}, false
		}
		if req.Job.Kind == ipc.EmitIndex && !p.ensureWarm(ctx, s, taskID, cmd) {
			p.markTimedOut(taskID)
			p.respawn(ctx, s)
			continue
		}
		result, ok := p.send(ctx, s, req)
		if ok {
			if req.Job.Kind == ipc.SemanticAnalysis {
				s.mu.Lock()
				s.lastGenForTask[taskID] = s.generation
				s.mu.Unlock()
			}
			return result, true
		}
		p.markTimedOut(taskID)
		p.respawn(ctx, s)
	}
	return ipc.IndexJobResult{}, false
}

// ensureWarm replays taskID's SemanticAnalysis job against s if no
// generation of s's current process has run it yet.
func (p *workerPool) ensureWarm(ctx context.Context, s *slot, taskID uint32, cmd compdb.CompileCommand) bool {
	s.mu.Lock()
	warm := s.lastGenForTask[taskID] == s.generation
	s.mu.Unlock()
	if warm {
		return true
	}
	job, err := ipc.NewSemanticAnalysisJob(ipc.SemanticAnalysisJobDetails{Command: cmd})
	if err != nil {
		return false
	}
	req := ipc.IndexJobRequest{ID: jobid.New(taskID, jobid.SemanticAnalysisSubtask), Job: job}
	if _, ok := p.send(ctx, s, req); !ok {
		return false
	}
	s.mu.Lock()
	s.lastGenForTask[taskID] = s.generation
	s.mu.Unlock()
	return true
}

// send transmits req to s and blocks for its correlated response, up to
// opts.JobTimeout.
func (p *workerPool) send(ctx context.Context, s *slot, req ipc.IndexJobRequest) (ipc.IndexJobResult, bool) {
	key := req.ID.To64Bit()
	ch := make(chan ipc.IndexJobResult, 1)
	p.mu.Lock()
	p.pending[key] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, key)
		p.mu.Unlock()
	}()

	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle == nil {
		return ipc.IndexJobResult{}, false
	}
	if err := handle.Send.Send(req); err != nil {
		return ipc.IndexJobResult{}, false
	}

	select {
	case result := <-ch:
		return result, true
	case <-time.After(p.opts.JobTimeout):
		return ipc.IndexJobResult{}, false
	case <-ctx.Done():
		return ipc.IndexJobResult{}, false
	}
}

func (p *workerPool) markTimedOut(taskID uint32) {
	p.mu.Lock()
	p.timedOutTasks[taskID] = true
	p.mu.Unlock()
}

func (p *workerPool) timedOut(taskID uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timedOutTasks[taskID]
}

// shutdown signals every worker to exit and waits (with a grace period)
// for their processes, then stops accepting response connections (spec
// §4.4 step 7).
func (p *workerPool) shutdown() {
	for _, s := range p.slots {
		if s == nil {
			continue
		}
		s.mu.Lock()
		handle := s.handle
		cmd := s.cmd
		s.mu.Unlock()
		if handle != nil {
			_ = handle.Close()
		}
		if cmd != nil && cmd.Process != nil {
			done := make(chan struct{})
			go func() {
				_ = cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				_ = cmd.Process.Kill()
			}
		}
	}
	_ = p.inbox.Close()
}
