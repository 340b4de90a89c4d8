package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender belongs to a trusted domain. Trusted mail
// is relayed without classification.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker. Domains match themselves and
// their subdomains.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Domains returns the normalized whitelist.
func (c *Checker) Domains() []string {
	return append([]string(nil), c.domains...)
}

// IsWhitelisted reports whether the sender's domain is trusted. from may be
// a bare address or a full "Name <addr>" header value.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	if domain == "" {
		return false
	}

	for _, whitelisted := range c.domains {
		if domain == whitelisted || strings.HasSuffix(domain, "."+whitelisted) {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return true
		}
	}
	return false
}

func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], ".>"))
}
