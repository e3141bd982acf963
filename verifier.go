// Package verifier answers a single operational question about an email
// address: is there a deliverable mailbox behind it, and if not, why
// not? It runs a fixed pipeline of increasingly expensive checks —
// syntax, disposable-domain membership, DNS existence, MX presence,
// mailbox-type classification, a well-known-provider shortcut, and
// finally a live SMTP RCPT probe — and returns a VerificationResult with
// enough technical detail to explain the verdict.
//
// Basic usage:
//
//	p := verifier.New(verifier.DefaultConfig(), nil)
//	result, err := p.Verify(ctx, "user@example.com")
package verifier

import "github.com/astromail/verifier/types"

// VerificationResult is a re-export of types.VerificationResult so
// callers don't need to import the types package directly.
type VerificationResult = types.VerificationResult

// Re-exported status constants.
const (
	StatusValid    = types.StatusValid
	StatusInvalid  = types.StatusInvalid
	StatusCatchAll = types.StatusCatchAll
)
