package check

import (
	"context"

	"github.com/astromail/verifier/internal/dnsprobe"
	"github.com/astromail/verifier/types"
)

// MXStage resolves and ranks MX hosts for a domain via the shared DNS
// prober.
type MXStage struct {
	Prober *dnsprobe.Prober
}

func NewMXStage(p *dnsprobe.Prober) *MXStage {
	return &MXStage{Prober: p}
}

// Resolve returns the domain's MX hosts in priority-ascending order. An
// empty, nil-error result means the domain genuinely has none (DNSProbe
// already folded the A/AAAA fallback into its own HasMX semantics; here
// the pipeline wants the concrete host list to hand to the SMTP stage).
func (s *MXStage) Resolve(ctx context.Context, domain string) ([]types.MxHost, error) {
	return s.Prober.ResolveMX(ctx, domain)
}
