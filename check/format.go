package check

import (
	"strings"

	"github.com/astromail/verifier/internal/parse"
	"github.com/astromail/verifier/types"
)

// maxLocalLength and maxDomainLength are the RFC 5321 bounds this stage
// enforces on top of parse.Email's own well-formedness check.
const (
	maxLocalLength  = 64
	maxDomainLength = 253
)

// FormatStage is the pipeline's first, cheapest stage: exactly one '@',
// a non-empty local part, a domain with at least one '.', no whitespace,
// and the length bounds above. It never touches the network.
type FormatStage struct{}

// Check reports whether e parses as a well-formed address. A zero-value
// parse.Email (Valid=false) is rejected outright.
func (FormatStage) Check(e parse.Email) types.SyntaxFormat {
	if !e.Valid {
		return types.SyntaxInvalid
	}
	if len(e.Local) > maxLocalLength {
		return types.SyntaxInvalid
	}
	if len(e.Domain) > maxDomainLength {
		return types.SyntaxInvalid
	}
	if strings.ContainsAny(e.Local, " \t\r\n\v\f") || strings.ContainsAny(e.Domain, " \t\r\n\v\f") {
		return types.SyntaxInvalid
	}
	if strings.Contains(e.Local, "@") || strings.Contains(e.Domain, "@") {
		return types.SyntaxInvalid
	}
	if !hasDot(e.Domain) {
		return types.SyntaxInvalid
	}
	return types.SyntaxValid
}

func hasDot(domain string) bool {
	for _, r := range domain {
		if r == '.' {
			return true
		}
	}
	return false
}
