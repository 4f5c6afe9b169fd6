package service

import "sync/atomic"

const (
	readinessUnset int32 = iota
	readinessReady
	readinessFailed
)

// Readiness records whether ingestion completed successfully. It is written
// at most once per process lifetime and read by every query; injected into
// the Searcher rather than held as a process global so tests can set it
// deterministically.
type Readiness struct {
	state atomic.Int32
}

// NewReadiness returns an unset readiness flag.
func NewReadiness() *Readiness { return &Readiness{} }

// Set records the ingestion outcome. Only the first call has effect.
func (r *Readiness) Set(ok bool) {
	target := readinessFailed
	if ok {
		target = readinessReady
	}
	r.state.CompareAndSwap(readinessUnset, target)
}

// Ready reports whether ingestion completed successfully.
func (r *Readiness) Ready() bool {
	return r.state.Load() == readinessReady
}
