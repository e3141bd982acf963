package verifier

import (
	"time"

	"github.com/astromail/verifier/internal/dnsprobe"
	"github.com/astromail/verifier/internal/smtp"
)

// DNSOptions configures DNSProbe retry/backoff and cache behavior.
type DNSOptions struct {
	LookupTimeout    time.Duration
	Retries          int
	RetryFactor      float64
	RetryMinTimeout  time.Duration
	RetryMaxTimeout  time.Duration
	PositiveCacheTTL time.Duration
	NegativeCacheTTL time.Duration
}

func defaultDNSOptions() DNSOptions {
	d := dnsprobe.DefaultConfig()
	return DNSOptions{
		LookupTimeout:    d.LookupTimeout,
		Retries:          d.ExistsRetries,
		RetryFactor:      d.ExistsRetryFactor,
		RetryMinTimeout:  d.ExistsRetryMinWait,
		RetryMaxTimeout:  d.ExistsRetryMaxWait,
		PositiveCacheTTL: d.PositiveCacheTTL,
		NegativeCacheTTL: d.NegativeCacheTTL,
	}
}

func (o DNSOptions) toProbeConfig() dnsprobe.Config {
	return dnsprobe.Config{
		LookupTimeout:      o.LookupTimeout,
		ExistsRetries:      o.Retries,
		ExistsRetryFactor:  o.RetryFactor,
		ExistsRetryMinWait: o.RetryMinTimeout,
		ExistsRetryMaxWait: o.RetryMaxTimeout,
		MXRetries:          2,
		PositiveCacheTTL:   o.PositiveCacheTTL,
		NegativeCacheTTL:   o.NegativeCacheTTL,
	}
}

// SMTPOptions configures the probe identity and network behavior of the
// SMTP engine.
type SMTPOptions struct {
	HeloHost           string
	MailFrom           string
	DummyLocal         string
	Ports              []string
	ConnectTimeout     time.Duration
	CommandTimeout     time.Duration
	InsecureSkipVerify bool
}

func defaultSMTPOptions() SMTPOptions {
	d := smtp.DefaultConfig()
	return SMTPOptions{
		HeloHost:           d.HeloHost,
		MailFrom:           d.MailFrom,
		DummyLocal:         d.DummyLocal,
		Ports:              d.Ports,
		ConnectTimeout:     d.ConnectTimeout,
		CommandTimeout:     d.CommandTimeout,
		InsecureSkipVerify: d.InsecureSkipVerify,
	}
}

func (o SMTPOptions) toProberConfig() smtp.Config {
	return smtp.Config{
		HeloHost:           o.HeloHost,
		MailFrom:           o.MailFrom,
		DummyLocal:         o.DummyLocal,
		Ports:              o.Ports,
		ConnectTimeout:     o.ConnectTimeout,
		CommandTimeout:     o.CommandTimeout,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}

// Config is the full set of knobs for a Pipeline. Zero value is not
// usable directly; use DefaultConfig().
type Config struct {
	DNS    DNSOptions
	SMTP   SMTPOptions
	// WebmailDomainsPath points at the domain->bool JSON mapping consumed
	// by the mailbox-type classifier. Overridable via WEBMAIL_DOMAINS_PATH.
	WebmailDomainsPath string
	// Workers is the default concurrency for VerifyMany.
	Workers int
}

// DefaultConfig returns a ready-to-use configuration with sensible
// defaults for every knob.
func DefaultConfig() Config {
	return Config{
		DNS:                defaultDNSOptions(),
		SMTP:               defaultSMTPOptions(),
		WebmailDomainsPath: webmailDomainsDefaultPath,
		Workers:            5,
	}
}
