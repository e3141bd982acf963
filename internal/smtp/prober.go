// Package smtp drives a live SMTP conversation with a remote mail server
// to determine whether it would accept a RCPT for a given address,
// without transmitting a message. It is the engine behind the
// verification pipeline's most expensive check: connect, parse
// line-oriented replies, opportunistically upgrade to TLS, run the
// EHLO/HELO/MAIL FROM/RCPT TO sequence, detect catch-all domains with a
// probe for a fixed dummy local part, and cache the per-server verdict.
package smtp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/astromail/verifier/types"
)

// Config tunes probe identity and network behavior. Zero value is not
// usable directly; use DefaultConfig().
type Config struct {
	HeloHost           string        // EHLO/HELO hostname
	MailFrom           string        // envelope sender
	DummyLocal         string        // local part used for the catch-all probe
	Ports              []string      // attempted in order; default 25, 587, 465
	ConnectTimeout     time.Duration // per-port TCP connect timeout
	CommandTimeout     time.Duration // per-command response timeout
	InsecureSkipVerify bool          // skip MX certificate validation; most MX certs are self-signed or expired

	// Dial is injectable for testing. Defaults to net.DialTimeout.
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// DefaultConfig returns the default probe identity and timeouts.
func DefaultConfig() Config {
	return Config{
		HeloHost:           "getastromail.com",
		MailFrom:           "relja@getastromail.com",
		DummyLocal:         "gibberishasdfasdf",
		Ports:              []string{"25", "587", "465"},
		ConnectTimeout:     10 * time.Second,
		CommandTimeout:     10 * time.Second,
		InsecureSkipVerify: true,
		Dial:               net.DialTimeout,
	}
}

// Prober runs RCPT probes against a domain's MX hosts.
type Prober struct {
	cfg   Config
	log   *logrus.Logger
	cache *catchAllCache
}

// New creates a Prober. cfg.Dial defaults to net.DialTimeout if nil.
func New(cfg Config, log *logrus.Logger) *Prober {
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	if len(cfg.Ports) == 0 {
		cfg.Ports = DefaultConfig().Ports
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Prober{cfg: cfg, log: log, cache: newCatchAllCache()}
}

// Probe iterates mxHosts in priority order (the caller is responsible for
// sorting them), and within each host tries the configured ports in
// order. The first host that produces a decisive RCPT reply (2xx or 5xx)
// terminates the probe. Hosts that produce only transport errors, 4xx
// replies, or protocol violations are skipped. Exhaustion of every MX
// host yields {false, false}. This function never panics and never
// returns an error: it is designed to be the last, most expensive stage
// of a pipeline that must never crash on a single address.
func (p *Prober) Probe(ctx context.Context, domain, local string, mxHosts []types.MxHost) (smtpValid, catchAll bool) {
	for _, host := range mxHosts {
		decided, valid, ca, err := p.probeHost(ctx, domain, local, host.Exchange)
		if err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{"domain": domain, "mxHost": host.Exchange}).
				Debug("smtp: mx host skipped")
			continue
		}
		if decided {
			return valid, ca
		}
	}
	return false, false
}

// probeHost tries each configured port against one MX host, returning
// the first decisive outcome. A non-nil error (or decided=false) means
// the host should be skipped.
func (p *Prober) probeHost(ctx context.Context, domain, local, mxHost string) (decided, smtpValid, catchAll bool, err error) {
	var lastErr error
	for _, port := range p.cfg.Ports {
		decided, smtpValid, catchAll, err = p.probePort(ctx, domain, local, mxHost, port)
		if err == nil {
			return decided, smtpValid, catchAll, nil
		}
		lastErr = err
	}
	return false, false, false, lastErr
}

func (p *Prober) probePort(ctx context.Context, domain, local, mxHost, port string) (decided, smtpValid, catchAll bool, err error) {
	address := net.JoinHostPort(mxHost, port)
	conn, err := p.cfg.Dial("tcp", address, p.cfg.ConnectTimeout)
	if err != nil {
		return false, false, false, fmt.Errorf("connect to %s: %w", address, err)
	}

	implicitTLS := port == "465"
	sess := newSession(conn, p.cfg.CommandTimeout, false)
	defer func() {
		sess.Quit()
		_ = sess.Close()
	}()

	if implicitTLS {
		if upErr := sess.Upgrade(ctx, mxHost, p.cfg.InsecureSkipVerify); upErr != nil {
			return false, false, false, fmt.Errorf("implicit TLS handshake with %s: %w", mxHost, upErr)
		}
	}

	decided, smtpValid, catchAll, convErr := p.converse(ctx, sess, mxHost, domain, local)
	if convErr != nil {
		return false, false, false, convErr
	}
	return decided, smtpValid, catchAll, nil
}

// converse runs the EHLO/STARTTLS/MAIL FROM/RCPT TO sequence on an
// already-connected session. A non-nil error means the session hit a
// transport error, protocol violation, or a non-decisive reply (including
// a 4xx transient reply to RCPT) and its MX host should be skipped.
func (p *Prober) converse(ctx context.Context, sess *Session, mxHost, domain, local string) (decided, smtpValid, catchAll bool, err error) {
	greet, err := sess.ReadReply()
	if err != nil {
		return false, false, false, fmt.Errorf("read greeting: %w", err)
	}
	if greet.Code != 220 {
		return false, false, false, fmt.Errorf("unexpected greeting code %d", greet.Code)
	}

	secure := sess.Secure()
	ehloOK, err := p.ehlo(ctx, sess, mxHost, &secure)
	if err != nil {
		return false, false, false, fmt.Errorf("EHLO: %w", err)
	}
	if !ehloOK {
		helo, err := sess.Command(fmt.Sprintf("HELO %s\r\n", p.cfg.HeloHost))
		if err != nil {
			return false, false, false, fmt.Errorf("HELO: %w", err)
		}
		if helo.Code != 250 {
			return false, false, false, fmt.Errorf("HELO rejected: %d %s", helo.Code, helo.Text)
		}
	}

	mailFrom, err := sess.Command(fmt.Sprintf("MAIL FROM:<%s>\r\n", p.cfg.MailFrom))
	if err != nil {
		return false, false, false, fmt.Errorf("MAIL FROM: %w", err)
	}
	if mailFrom.Code != 250 {
		return false, false, false, fmt.Errorf("MAIL FROM rejected: %d %s", mailFrom.Code, mailFrom.Text)
	}

	return p.rcptPhase(sess, mxHost, domain, local)
}

// ehlo sends EHLO and, if the response advertises STARTTLS and the
// session is not already secure, performs the upgrade and re-sends EHLO
// (mandatory after a successful upgrade). Returns whether EHLO ultimately
// succeeded; false means the caller should fall back to HELO.
func (p *Prober) ehlo(ctx context.Context, sess *Session, mxHost string, secure *bool) (bool, error) {
	reply, err := sess.Command(fmt.Sprintf("EHLO %s\r\n", p.cfg.HeloHost))
	if err != nil {
		return false, err
	}
	if reply.Code != 250 {
		return false, nil
	}
	if *secure || !strings.Contains(strings.ToUpper(reply.Text), "STARTTLS") {
		return true, nil
	}

	ttls, err := sess.Command("STARTTLS\r\n")
	if err != nil {
		return false, err
	}
	if ttls.Code != 220 {
		// STARTTLS refused: proceed without TLS, original EHLO still stands.
		return true, nil
	}

	if upErr := sess.Upgrade(ctx, mxHost, p.cfg.InsecureSkipVerify); upErr != nil {
		p.log.WithError(upErr).WithField("mxHost", mxHost).Warn("smtp: STARTTLS handshake failed, continuing in plaintext")
		return true, nil
	}
	*secure = true

	reply2, err := sess.Command(fmt.Sprintf("EHLO %s\r\n", p.cfg.HeloHost))
	if err != nil {
		return false, err
	}
	return reply2.Code == 250, nil
}

// rcptPhase implements the catch-all probe and the real RCPT TO decision:
// a cache hit that already knows the domain is catch-all short-circuits
// without sending any RCPT; a cache miss sends a dummy probe first
// (short-circuiting as catch-all if it succeeds) and then decides the
// real probe on its own reply code; a cache hit that is not catch-all
// skips the dummy probe and decides by comparing reply text.
func (p *Prober) rcptPhase(sess *Session, mxHost, domain, local string) (decided, smtpValid, catchAll bool, err error) {
	entry, hit := p.cache.get(domain, mxHost)

	if hit && entry.isCatchAll {
		return true, true, true, nil
	}

	if !hit {
		dummyReply, err := sess.Command(fmt.Sprintf("RCPT TO:<%s@%s>\r\n", p.cfg.DummyLocal, domain))
		if err != nil {
			return false, false, false, fmt.Errorf("dummy RCPT TO: %w", err)
		}
		if dummyReply.Code == 250 {
			p.cache.setCatchAll(domain, mxHost)
			return true, true, true, nil
		}
		p.cache.setText(domain, mxHost, dummyReply.Text)

		realReply, err := sess.Command(fmt.Sprintf("RCPT TO:<%s@%s>\r\n", local, domain))
		if err != nil {
			return false, false, false, fmt.Errorf("RCPT TO: %w", err)
		}
		if realReply.Family() == 4 {
			return false, false, false, fmt.Errorf("transient RCPT response %d %s", realReply.Code, realReply.Text)
		}
		return true, realReply.Code == 250, false, nil
	}

	// Cache hit, non-catch-all: skip the dummy probe, compare text.
	realReply, err := sess.Command(fmt.Sprintf("RCPT TO:<%s@%s>\r\n", local, domain))
	if err != nil {
		return false, false, false, fmt.Errorf("RCPT TO: %w", err)
	}
	if realReply.Family() == 4 {
		return false, false, false, fmt.Errorf("transient RCPT response %d %s", realReply.Code, realReply.Text)
	}
	return true, realReply.Text != entry.text, false, nil
}
