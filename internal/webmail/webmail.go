// Package webmail classifies a domain as belonging to a large shared
// consumer mail provider (Webmail) as opposed to an organization's own
// mail system (Professional). The mapping is a read-only domain->bool
// JSON file loaded once at first use and cached for the process lifetime.
package webmail

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultPath is the conventional location of the webmail domain mapping,
// resolved relative to the process working directory.
const DefaultPath = "webmail_domains.json"

// Classifier performs domain -> bool lookups against the webmail mapping.
// Zero value is usable; call New to set a non-default path or logger.
type Classifier struct {
	once   sync.Once
	path   string
	log    *logrus.Logger
	domain map[string]bool
}

// New creates a Classifier that will lazily load path on first lookup.
// An empty path falls back to DefaultPath. A nil logger falls back to
// logrus's standard logger.
func New(path string, log *logrus.Logger) *Classifier {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Classifier{path: path, log: log}
}

// IsWebmail reports whether domain belongs to a known webmail provider.
// On load failure the mapping behaves as empty, so this never fails the
// verification pipeline; it just classifies everything as Professional.
func (c *Classifier) IsWebmail(domain string) bool {
	c.once.Do(c.load)
	return c.domain[normalize(domain)]
}

func (c *Classifier) load() {
	c.domain = make(map[string]bool)
	if c.path == "" {
		c.path = DefaultPath
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		c.log.WithError(err).WithField("path", c.path).Warn("webmail: mapping file unavailable, classifying everything as professional")
		return
	}

	var loaded map[string]bool
	if err := json.Unmarshal(raw, &loaded); err != nil {
		c.log.WithError(err).WithField("path", c.path).Warn("webmail: mapping file is not valid JSON")
		return
	}

	for domain, isWebmail := range loaded {
		c.domain[normalize(domain)] = isWebmail
	}
}

func normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
