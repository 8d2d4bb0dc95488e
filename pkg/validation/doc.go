// Package validation checks the mathematical consistency of an OEE
// input and produces severity-ranked advisory issues. It validates
// arithmetic, not business plausibility (see pkg/policy for the latter),
// and it never blocks submission: the engine is a calculator, not a
// system of record. All rules are pure functions of the input with no
// I/O, so they remain correct when the compute boundary is unavailable.
package validation
