// Package session is the request orchestrator for OEE analyses. A
// Session owns the mutable analysis state: the current input, the
// calculation toggles, and a four-phase lifecycle (idle, loading,
// succeeded, failed). Calculations run as at most two round-trips to
// the compute boundary; an epoch counter gives last-write-wins
// semantics so stale in-flight responses are discarded after a newer
// Calculate or a Reset.
package session
