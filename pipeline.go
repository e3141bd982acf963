package verifier

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/astromail/verifier/check"
	"github.com/astromail/verifier/internal/dnsprobe"
	"github.com/astromail/verifier/internal/parse"
	"github.com/astromail/verifier/internal/smtp"
	"github.com/astromail/verifier/internal/webmail"
	"github.com/astromail/verifier/types"
)

// Pipeline runs a fixed, short-circuiting decision tree against a single
// address: format, disposable check, domain existence, MX presence,
// mailbox-type classification, a well-known-provider shortcut, and
// finally an SMTP probe. Every stage is mandatory and always runs in the
// same order — the tree itself is not configurable, only its timeouts
// and identity strings are (via Config).
type Pipeline struct {
	log          *logrus.Logger
	disposable   *check.DisposableStage
	format       check.FormatStage
	dns          *dnsprobe.Prober
	domainExists *check.DomainExistsStage
	mx           *check.MXStage
	mailboxType  *check.MailboxTypeStage
	wellKnown    *check.WellKnownStage
	smtpStage    *check.SMTPStage

	workers int
}

// New builds a Pipeline from cfg. Passing a nil logger falls back to
// logrus's standard logger.
func New(cfg Config, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dns := dnsprobe.New(cfg.DNS.toProbeConfig(), log)
	prober := smtp.New(cfg.SMTP.toProberConfig(), log)
	return newWithDependencies(cfg, log, dns, prober)
}

// newWithResolverAndDial is a test-oriented constructor that injects a
// fake DNS resolver and SMTP dial function instead of touching the
// network, keeping dialing injectable for tests.
func newWithResolverAndDial(cfg Config, log *logrus.Logger, resolver dnsprobe.Resolver, dial func(string, string, time.Duration) (net.Conn, error)) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dns := dnsprobe.NewWithResolver(cfg.DNS.toProbeConfig(), log, resolver)
	smtpCfg := cfg.SMTP.toProberConfig()
	smtpCfg.Dial = dial
	prober := smtp.New(smtpCfg, log)
	return newWithDependencies(cfg, log, dns, prober)
}

func newWithDependencies(cfg Config, log *logrus.Logger, dns *dnsprobe.Prober, prober *smtp.Prober) *Pipeline {
	classifier := webmail.New(cfg.WebmailDomainsPath, log)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	return &Pipeline{
		log:          log,
		disposable:   check.NewDisposableStage(log),
		dns:          dns,
		domainExists: check.NewDomainExistsStage(dns),
		mx:           check.NewMXStage(dns),
		mailboxType:  check.NewMailboxTypeStage(classifier),
		wellKnown:    check.NewWellKnownStage(),
		smtpStage:    check.NewSMTPStage(prober),
		workers:      workers,
	}
}

// Verify walks the fixed decision tree against address, short-circuiting
// at the first stage that reaches a verdict. It never returns a non-nil
// error for a network or protocol outcome — those are folded into the
// result's TechnicalDetails — error is reserved for programmer mistakes
// such as an empty address.
func (p *Pipeline) Verify(ctx context.Context, address string) (types.VerificationResult, error) {
	if strings.TrimSpace(address) == "" {
		return types.VerificationResult{}, ErrEmptyAddress
	}

	email := parse.NewEmail(address)
	result := types.VerificationResult{
		EmailAddress:        address,
		Domain:              email.DomainOriginal,
		MailboxServerStatus: types.ServerStatusInvalid,
	}

	// Step 1: format.
	result.EmailSyntaxFormat = p.format.Check(email)
	if result.EmailSyntaxFormat == types.SyntaxInvalid {
		result.EmailStatus = types.StatusInvalid
		return result, nil
	}

	// Step 2: punycode normalization already happened inside parse.NewEmail;
	// email.Domain is the ASCII form every downstream stage operates on.
	domain := email.Domain

	p.disposable.NoteRoleBasedLocal(email.Local, domain)

	// Step 3: disposable.
	result.TechnicalDetails.Disposable = p.disposable.IsDisposable(domain)
	if result.TechnicalDetails.Disposable {
		result.EmailStatus = types.StatusInvalid
		return result, nil
	}

	// Step 4: domain existence.
	result.TechnicalDetails.DomainExists = p.domainExists.Check(ctx, domain)
	if !result.TechnicalDetails.DomainExists {
		result.EmailStatus = types.StatusInvalid
		return result, nil
	}

	// Step 5: MX presence.
	mxHosts, err := p.mx.Resolve(ctx, domain)
	if err != nil {
		p.log.WithError(err).WithField("domain", domain).Debug("verifier: MX resolution failed")
	}
	if len(mxHosts) == 0 && p.dns.HasMX(ctx, domain) {
		// HasMX fell back to A/AAAA: no MX records exist, but the domain
		// itself accepts mail on its own address. Treat it as the only
		// implicit MX host so the SMTP stage has somewhere to connect.
		mxHosts = []types.MxHost{{Exchange: domain, Priority: 0}}
	}
	result.TechnicalDetails.HasMxRecord = len(mxHosts) > 0
	if !result.TechnicalDetails.HasMxRecord {
		result.EmailStatus = types.StatusInvalid
		return result, nil
	}

	// Step 6: mailbox-type classification.
	result.MailboxType = p.mailboxType.Classify(domain)

	// Step 7: well-known-provider shortcut.
	if p.wellKnown.IsWellKnown(domain) {
		result.TechnicalDetails.SmtpValid = true
		result.MailboxServerStatus = types.ServerStatusValid
		result.EmailStatus = types.StatusValid
		return result, nil
	}

	// Step 8: SMTP probe.
	smtpValid, catchAll := p.smtpStage.Probe(ctx, domain, email.Local, mxHosts)
	result.TechnicalDetails.SmtpValid = smtpValid
	result.TechnicalDetails.CatchAll = catchAll

	switch {
	case catchAll:
		result.EmailStatus = types.StatusCatchAll
	case smtpValid:
		result.EmailStatus = types.StatusValid
	default:
		result.EmailStatus = types.StatusInvalid
	}
	if smtpValid {
		result.MailboxServerStatus = types.ServerStatusValid
	} else {
		result.MailboxServerStatus = types.ServerStatusInvalid
	}

	return result, nil
}

// VerifyManyOptions configures VerifyMany's concurrency.
type VerifyManyOptions struct {
	// Workers is the number of concurrent goroutines. Defaults to the
	// Pipeline's configured Workers.
	Workers int
}

// VerifyMany verifies multiple addresses concurrently, preserving input
// order in the result slice. Addresses are grouped by domain before
// dispatch so that DNS- and catch-all-cache hits land on the same
// goroutine wave, improving DNS- and catch-all-cache hit rates.
func (p *Pipeline) VerifyMany(ctx context.Context, addresses []string, opts ...VerifyManyOptions) ([]types.VerificationResult, error) {
	workers := p.workers
	if len(opts) > 0 && opts[0].Workers > 0 {
		workers = opts[0].Workers
	}

	type job struct {
		idx     int
		address string
		domain  string
	}

	jobs := make([]job, len(addresses))
	for i, addr := range addresses {
		domain := ""
		if at := strings.LastIndex(addr, "@"); at >= 0 {
			domain = strings.ToLower(addr[at+1:])
		}
		jobs[i] = job{idx: i, address: addr, domain: domain}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].domain < jobs[j].domain })

	queue := make(chan job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	results := make([]types.VerificationResult, len(addresses))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				res, err := p.Verify(ctx, j.address)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("verifying %q: %w", j.address, err)
					}
					mu.Unlock()
					continue
				}
				results[j.idx] = res
			}
		}()
	}
	wg.Wait()

	return results, firstErr
}
