// Package clock provides a deterministic clock abstraction for Hardstop.
//
// GUARDRAIL: core operator packages MUST NOT call time.Now() directly.
// Every operator accepts a Clock. In strict mode the provenance kernel
// fails a RunRecord's Finalize when the operator recorded best-effort
// metadata; it does not inspect serialized time.Time values. Inject a
// fixed clock in tests to get reproducible timestamps.
package clock

import "time"

// Clock provides the current time. Core logic depends on this interface,
// never on time.Now().
type Clock interface {
	Now() time.Time
}

// Real returns the actual system time. Use only at cmd/ entry points.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Use for deterministic tests and
// pinned (non-live) runs.
type Fixed struct {
	T time.Time
}

// Now returns the fixed time.
func (c Fixed) Now() time.Time { return c.T }

// Func wraps a function as a Clock, useful for tests that need to advance
// time between operator invocations.
type Func func() time.Time

// Now calls the wrapped function.
func (f Func) Now() time.Time { return f() }

// NewReal returns a Clock backed by the real system clock.
func NewReal() Clock { return Real{} }

// NewFixed returns a Clock that always reports t (converted to UTC).
func NewFixed(t time.Time) Clock { return Fixed{T: t.UTC()} }

// NewFunc returns a Clock backed by f.
func NewFunc(f func() time.Time) Clock { return Func(f) }

var (
	_ Clock = Real{}
	_ Clock = Fixed{}
	_ Clock = Func(nil)
)
