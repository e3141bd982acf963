// Package dnsprobe answers the two DNS questions the verification
// pipeline needs: does a domain have any reachable host (A/AAAA), and
// does it advertise mail exchangers (MX, falling back to A/AAAA). Both
// answers are TTL-cached with singleflight-style deduplication, and
// transient resolver errors are retried with backoff before the
// pipeline is told "no".
package dnsprobe

import (
	"context"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/astromail/verifier/types"
)

// Config tunes retry behavior and cache lifetimes. Zero value is not
// usable directly; use DefaultConfig().
type Config struct {
	LookupTimeout time.Duration // per-query timeout, default 5s

	// Exists() retry policy: exponential backoff.
	ExistsRetries      int           // default 2
	ExistsRetryFactor  float64       // default 2
	ExistsRetryMinWait time.Duration // default 1s
	ExistsRetryMaxWait time.Duration // default 5s

	// ResolveMX()/HasMX() MX-query retry policy: linear backoff (1s * attempt).
	// The A/AAAA fallback in HasMX goes through Exists() and its policy above.
	MXRetries int // default 2

	PositiveCacheTTL time.Duration // default 5m
	NegativeCacheTTL time.Duration // default 1m
}

// DefaultConfig returns the default retry/backoff and cache knobs.
func DefaultConfig() Config {
	return Config{
		LookupTimeout:      5 * time.Second,
		ExistsRetries:      2,
		ExistsRetryFactor:  2,
		ExistsRetryMinWait: time.Second,
		ExistsRetryMaxWait: 5 * time.Second,
		MXRetries:          2,
		PositiveCacheTTL:   5 * time.Minute,
		NegativeCacheTTL:   1 * time.Minute,
	}
}

// Prober performs and caches DNS existence/MX lookups.
type Prober struct {
	cfg      Config
	log      *logrus.Logger
	resolver Resolver

	existsCache *ttlCache[bool]
	mxCache     *ttlCache[[]types.MxHost]
}

// New creates a Prober using the standard library resolver.
func New(cfg Config, log *logrus.Logger) *Prober {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return NewWithResolver(cfg, log, &net.Resolver{})
}

// NewWithResolver creates a Prober with an injected resolver (for testing).
func NewWithResolver(cfg Config, log *logrus.Logger, r Resolver) *Prober {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Prober{
		cfg:         cfg,
		log:         log,
		resolver:    r,
		existsCache: newTTLCache[bool](),
		mxCache:     newTTLCache[[]types.MxHost](),
	}
}

// Exists reports whether domain resolves to at least one A or AAAA
// record. NXDOMAIN and empty answers are decisive negatives, not errors;
// any other transport error is retried with exponential backoff and,
// after exhaustion, treated as a conservative negative.
func (p *Prober) Exists(ctx context.Context, domain string) bool {
	v, _ := p.existsCache.getOrLoad(domain, p.ttlFor, func() (bool, error) {
		return p.queryExists(ctx, domain), nil
	})
	return v
}

func (p *Prober) queryExists(ctx context.Context, domain string) bool {
	for _, network := range []string{"ip4", "ip6"} {
		if p.lookupIPWithRetry(ctx, domain, network) {
			return true
		}
	}
	return false
}

func (p *Prober) lookupIPWithRetry(ctx context.Context, domain, network string) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.ExistsRetryMinWait
	b.Multiplier = p.cfg.ExistsRetryFactor
	b.MaxInterval = p.cfg.ExistsRetryMaxWait
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.ExistsRetries)), ctx)

	found := false
	operation := func() error {
		qCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
		defer cancel()

		ips, err := p.resolver.LookupIP(qCtx, network, domain)
		if err == nil {
			found = len(ips) > 0
			return nil
		}

		negative, transient := classify(err)
		if negative {
			found = false
			return nil // decisive, don't retry
		}
		if transient {
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, bo); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"domain": domain, "network": network}).
			Debug("dnsprobe: existence query exhausted retries, treating as negative")
		return false
	}
	return found
}

// HasMX reports whether domain advertises at least one MX record,
// falling back to A then AAAA existence when MX is empty or ENODATA.
func (p *Prober) HasMX(ctx context.Context, domain string) bool {
	hosts, _ := p.ResolveMX(ctx, domain)
	if len(hosts) > 0 {
		return true
	}
	return p.Exists(ctx, domain)
}

// ResolveMX returns the MX hosts for domain, sorted by priority ascending
// (ties broken by resolver enumeration order), using the cache when
// possible. An empty result with no error means "no MX records"; the
// caller decides whether to fall back to A/AAAA.
func (p *Prober) ResolveMX(ctx context.Context, domain string) ([]types.MxHost, error) {
	return p.mxCache.getOrLoad(domain, p.ttlForMX, func() ([]types.MxHost, error) {
		return p.queryMX(ctx, domain)
	})
}

func (p *Prober) queryMX(ctx context.Context, domain string) ([]types.MxHost, error) {
	var records []*net.MX
	var err error

	for attempt := 0; attempt <= p.cfg.MXRetries; attempt++ {
		qCtx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
		records, err = p.resolver.LookupMX(qCtx, domain)
		cancel()

		if err == nil {
			break
		}
		negative, transient := classify(err)
		if negative {
			return nil, nil // NXDOMAIN/ENODATA: decisive, no MX
		}
		if !transient || attempt == p.cfg.MXRetries {
			break
		}
		// linear backoff: 1s * attempt number
		wait := time.Duration(attempt+1) * time.Second
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		p.log.WithError(err).WithField("domain", domain).Debug("dnsprobe: MX lookup failed after retries")
		return nil, nil // conservative: treat as "no MX", let the caller fall back
	}

	hosts := make([]types.MxHost, 0, len(records))
	for _, r := range records {
		hosts = append(hosts, types.MxHost{
			Exchange: strings.TrimSuffix(r.Host, "."),
			Priority: r.Pref,
		})
	}
	sort.SliceStable(hosts, func(i, j int) bool {
		return hosts[i].Priority < hosts[j].Priority
	})
	return hosts, nil
}

func (p *Prober) ttlFor(exists bool, _ error) time.Duration {
	if exists {
		return p.cfg.PositiveCacheTTL
	}
	return p.cfg.NegativeCacheTTL
}

func (p *Prober) ttlForMX(hosts []types.MxHost, _ error) time.Duration {
	if len(hosts) > 0 {
		return p.cfg.PositiveCacheTTL
	}
	return p.cfg.NegativeCacheTTL
}
