package verifier

import "errors"

// ErrEmptyAddress is returned by Verify when called with an empty or
// whitespace-only string. Unlike every other outcome, this is a programmer error, not a
// verification verdict, so it is surfaced as a Go error rather than
// folded into a VerificationResult.
var ErrEmptyAddress = errors.New("verifier: address must not be empty")
