package verifier

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// webmailDomainsDefaultPath is the filename DefaultConfig expects relative
// to the process working directory.
const webmailDomainsDefaultPath = "webmail_domains.json"

// LoadConfigFromEnv builds a Config from environment variables, falling
// back to DefaultConfig's values for anything unset. If a .env file is
// present in the working directory it is loaded first (godotenv); its
// absence is not an error.
func LoadConfigFromEnv(log *logrus.Logger) Config {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug("verifier: .env present but could not be loaded")
	}

	cfg := DefaultConfig()

	cfg.DNS.Retries = envInt("DNS_RETRIES", cfg.DNS.Retries)
	cfg.DNS.RetryFactor = envFloat("DNS_RETRY_FACTOR", cfg.DNS.RetryFactor)
	cfg.DNS.RetryMinTimeout = envMillis("DNS_RETRY_MIN_TIMEOUT", cfg.DNS.RetryMinTimeout)
	cfg.DNS.RetryMaxTimeout = envMillis("DNS_RETRY_MAX_TIMEOUT", cfg.DNS.RetryMaxTimeout)

	cfg.SMTP.CommandTimeout = envMillis("SMTP_COMMAND_TIMEOUT", cfg.SMTP.CommandTimeout)
	cfg.SMTP.ConnectTimeout = envMillis("SMTP_CONNECT_TIMEOUT", cfg.SMTP.ConnectTimeout)
	cfg.SMTP.HeloHost = envString("SMTP_HELO_HOST", cfg.SMTP.HeloHost)
	cfg.SMTP.MailFrom = envString("SMTP_MAIL_FROM", cfg.SMTP.MailFrom)
	cfg.SMTP.DummyLocal = envString("SMTP_DUMMY_LOCAL", cfg.SMTP.DummyLocal)

	cfg.WebmailDomainsPath = envString("WEBMAIL_DOMAINS_PATH", cfg.WebmailDomainsPath)

	return cfg
}

// ListenPort reports the TCP port a caller-provided HTTP surface should
// listen on, even though this module does not run a listener itself.
func ListenPort() int {
	return envInt("PORT", 3001)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
