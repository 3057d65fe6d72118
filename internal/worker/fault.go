package worker

import "sync/atomic"

// Fault names one synthetic failure a worker process can be told to inject
// via --worker-fault, exercising the driver's failure-handling paths
// (crash/timeout/malformed-message retry, spec §4.4 step 6 and the
// closed-taxonomy fault scenarios) without a real compiler bug. Grounded
// on Worker.h's Worker::triggerFaultIfApplicable.
type Fault string

const (
	FaultNone             Fault = "none"
	FaultCrashOnce        Fault = "crash-once"
	FaultCrashAlways      Fault = "crash-always"
	FaultHang             Fault = "hang"
	FaultMalformedMessage Fault = "malformed-message"
)

// ParseFault validates a --worker-fault flag value; "" is accepted as
// FaultNone.
func ParseFault(s string) (Fault, bool) {
	if s == "" {
		return FaultNone, true
	}
	switch Fault(s) {
	case FaultNone, FaultCrashOnce, FaultCrashAlways, FaultHang, FaultMalformedMessage:
		return Fault(s), true
	default:
		return "", false
	}
}

// FaultInjector applies a configured Fault once per job. It tracks
// whether a crash-once fault has already fired in this process, so only
// the first job a worker process receives crashes; a respawned worker
// process starts with a fresh injector, and the flag does not carry over.
type FaultInjector struct {
	fault Fault
	fired atomic.Bool
	exit  func(int)
}

// NewFaultInjector builds an injector for fault, calling os.Exit on crash
// faults by default; tests may substitute exit.
func NewFaultInjector(fault Fault, exit func(int)) *FaultInjector {
	return &FaultInjector{fault: fault, exit: exit}
}

// MaybeCrash terminates the process if the configured fault demands a
// crash for this job.
func (f *FaultInjector) MaybeCrash() {
	switch f.fault {
	case FaultCrashAlways:
		f.exit(1)
	case FaultCrashOnce:
		if f.fired.CompareAndSwap(false, true) {
			f.exit(1)
		}
	}
}

// ShouldHang reports whether this job should hang forever instead of
// responding, so the driver's per-job timeout must fire.
func (f *FaultInjector) ShouldHang() bool {
	return f.fault == FaultHang
}

// ShouldCorrupt reports whether the outgoing response for this job should
// be corrupted so the driver's receive reports MalformedMessage.
func (f *FaultInjector) ShouldCorrupt() bool {
	return f.fault == FaultMalformedMessage
}
