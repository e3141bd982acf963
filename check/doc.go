// Package check contains the individual, independently testable stages of
// the verification pipeline. Each stage is a small struct exposing one
// decision method (Check, IsDisposable, Resolve, Classify, IsWellKnown or
// Probe); the fixed decision order that composes them lives in the
// root verifier package, not here.
package check
