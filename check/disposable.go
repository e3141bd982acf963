package check

import (
	"github.com/sirupsen/logrus"

	"github.com/astromail/verifier/internal/disposable"
	"github.com/astromail/verifier/internal/rolebased"
)

// DisposableStage rejects throwaway-mail domains. It also flags
// role-style local parts (admin@, support@, ...) at debug level: the
// decision tree never branches on this, but logging it gives an
// operator visibility into why a "professional" mailbox might still
// bounce in practice.
type DisposableStage struct {
	Log *logrus.Logger
}

func NewDisposableStage(log *logrus.Logger) *DisposableStage {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DisposableStage{Log: log}
}

// IsDisposable reports whether domain (ASCII form) is a known throwaway
// provider.
func (s *DisposableStage) IsDisposable(domain string) bool {
	disp := disposable.IsDisposable(domain)
	if disp {
		s.Log.WithField("domain", domain).Debug("check: disposable domain rejected")
	}
	return disp
}

// NoteRoleBasedLocal logs when local is a role-style mailbox. Purely
// informational; never affects the verdict.
func (s *DisposableStage) NoteRoleBasedLocal(local, domain string) {
	if rolebased.IsRoleBased(local) {
		s.Log.WithField("local", local).WithField("domain", domain).Debug("check: role-based local part")
	}
}
