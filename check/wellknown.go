package check

import "strings"

// wellKnownProviders are large consumer mail providers taken on faith as
// deliverable without an SMTP probe.
var wellKnownProviders = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com",
	"icloud.com", "protonmail.com", "proton.me", "zoho.com", "mail.com",
	"gmx.com", "yandex.com", "microsoft.com", "googlemail.com", "live.com",
}

// WellKnownStage shortcuts the SMTP probe for large consumer providers
// whose deliverability is assumed.
type WellKnownStage struct {
	providers []string
}

func NewWellKnownStage() *WellKnownStage {
	return &WellKnownStage{providers: wellKnownProviders}
}

// IsWellKnown reports whether domain equals or is a subdomain of one of
// the fixed providers.
func (s *WellKnownStage) IsWellKnown(domain string) bool {
	for _, p := range s.providers {
		if domain == p || strings.HasSuffix(domain, "."+p) {
			return true
		}
	}
	return false
}
