package check

import (
	"context"

	"github.com/astromail/verifier/internal/dnsprobe"
)

// DomainExistsStage checks A/AAAA existence for a domain via the shared
// DNS prober.
type DomainExistsStage struct {
	Prober *dnsprobe.Prober
}

func NewDomainExistsStage(p *dnsprobe.Prober) *DomainExistsStage {
	return &DomainExistsStage{Prober: p}
}

func (s *DomainExistsStage) Check(ctx context.Context, domain string) bool {
	return s.Prober.Exists(ctx, domain)
}
