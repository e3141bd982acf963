package check

import (
	"github.com/astromail/verifier/internal/webmail"
	"github.com/astromail/verifier/types"
)

// MailboxTypeStage classifies a domain as Webmail or Professional. The
// disposable path is already short-circuited earlier in the pipeline, so
// by the time this stage runs a Webmail verdict means only "a known
// consumer mail provider".
type MailboxTypeStage struct {
	Classifier *webmail.Classifier
}

func NewMailboxTypeStage(c *webmail.Classifier) *MailboxTypeStage {
	return &MailboxTypeStage{Classifier: c}
}

func (s *MailboxTypeStage) Classify(domain string) types.MailboxType {
	if s.Classifier.IsWebmail(domain) {
		return types.MailboxWebmail
	}
	return types.MailboxProfessional
}
