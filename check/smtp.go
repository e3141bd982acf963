package check

import (
	"context"

	"github.com/astromail/verifier/internal/smtp"
	"github.com/astromail/verifier/types"
)

// SMTPStage wraps the SMTP probing engine for the pipeline's final,
// most expensive stage.
type SMTPStage struct {
	Prober *smtp.Prober
}

func NewSMTPStage(p *smtp.Prober) *SMTPStage {
	return &SMTPStage{Prober: p}
}

// Probe runs the RCPT conversation against mxHosts and reports whether
// the mailbox looks deliverable and whether the domain is catch-all.
func (s *SMTPStage) Probe(ctx context.Context, domain, local string, mxHosts []types.MxHost) (smtpValid, catchAll bool) {
	return s.Prober.Probe(ctx, domain, local, mxHosts)
}
