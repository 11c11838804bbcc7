package domain

import (
	"net"
	"strings"

	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// DomainName is a validated, normalized (lowercase, no trailing dot) DNS name.
// Parsing is the only way to obtain a non-zero value, so every component that
// holds a DomainName can rely on the syntax invariants below.
type DomainName string

// maxDomainNameLength is the RFC 1035 limit on a full domain name.
const maxDomainNameLength = 253

// ParseDomainName validates raw as a registrable custom domain.
//
// Invariants enforced: lowercase form, at most one trailing dot stripped,
// total length <= 253, at least two labels, each label 1-63 chars of
// [a-z0-9-] with no edge hyphens, no IP literals, and never localhost.
func ParseDomainName(raw string) (DomainName, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimSuffix(name, ".")

	if name == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain must not be empty")
	}
	if len(name) > maxDomainNameLength {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "domain exceeds %d characters", maxDomainNameLength)
	}
	if net.ParseIP(name) != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ip literals cannot be registered as custom domains")
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain must contain at least two labels")
	}
	if labels[len(labels)-1] == "localhost" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "localhost cannot be registered as a custom domain")
	}
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return "", err
		}
	}
	if isAllDigits(labels[len(labels)-1]) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "top-level label must not be numeric")
	}

	return DomainName(name), nil
}

// ParseHostHeader normalizes an inbound Host header into a DomainName,
// stripping any port. Loopback hosts and IP literals fail validation, which
// is how the request path knows to skip them.
func ParseHostHeader(raw string) (DomainName, error) {
	host := strings.TrimSpace(raw)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if host == "localhost" || net.ParseIP(host) != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "local and ip hosts are not custom domains")
	}
	return ParseDomainName(host)
}

// NormalizeDNSTarget prepares a resolver answer for exact comparison:
// lowercase with the trailing dot removed. Resolvers return fully qualified
// names ("acme.platform.io."), stored targets do not.
func NormalizeDNSTarget(target string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(target)), ".")
}

func (d DomainName) String() string { return string(d) }

func (d DomainName) IsZero() bool { return d == "" }

func validateLabel(label string) error {
	if label == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "domain contains an empty label")
	}
	if len(label) > 63 {
		return dErrors.New(dErrors.CodeInvalidInput, "domain label exceeds 63 characters")
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return dErrors.New(dErrors.CodeInvalidInput, "domain label must not start or end with a hyphen")
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return dErrors.New(dErrors.CodeInvalidInput, "domain contains invalid characters")
	}
	return nil
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
