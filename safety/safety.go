// Package safety classifies URLs as safe or unsafe before any fetch.
//
// This check is the consumer's SSRF boundary: a task argument is attacker
// controlled, so every URL is validated before the execution backend may
// touch the network. The check resolves the full address set for the host:
// a name that round-robins between a public and a private address is unsafe.
// Validation fails closed: any unexpected fault becomes an unsafe verdict.
package safety

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// Verdict is the result of a safety check.
type Verdict struct {
	Safe   bool
	Reason string
}

// unsafe builds a negative verdict.
func unsafe(reason string) Verdict {
	return Verdict{Safe: false, Reason: reason}
}

// LookupFunc resolves a hostname to its full address set.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// Checker validates URLs against the SSRF policy.
type Checker struct {
	lookup LookupFunc
}

// Option configures a Checker.
type Option func(*Checker)

// WithLookup overrides the DNS lookup, for tests or custom resolvers.
func WithLookup(fn LookupFunc) Option {
	return func(c *Checker) {
		c.lookup = fn
	}
}

// NewChecker creates a Checker using the system resolver by default.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		lookup: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check validates a raw URL. Rules are applied in order and the first
// failing rule wins. The only network side effect is DNS resolution.
func (c *Checker) Check(ctx context.Context, rawURL string) (v Verdict) {
	// This gate must never propagate a fault to the caller.
	defer func() {
		if r := recover(); r != nil {
			v = unsafe(fmt.Sprintf("URL validation error: %v", r))
		}
	}()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return unsafe("invalid URL format")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return unsafe("protocol not allowed")
	}

	host := parsed.Hostname()
	if host == "" {
		return unsafe("invalid URL format")
	}

	// Literal addresses skip DNS.
	if addr, err := netip.ParseAddr(host); err == nil {
		if blocked(addr) {
			return unsafe(blockedReason(addr))
		}
		return Verdict{Safe: true, Reason: "URL is safe"}
	}

	addrs, err := c.lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		return unsafe("could not resolve hostname: " + host)
	}

	// Every resolved address must be public.
	for _, addr := range addrs {
		if blocked(addr) {
			return unsafe(blockedReason(addr))
		}
	}

	return Verdict{Safe: true, Reason: "URL is safe"}
}

// blocked reports whether an address belongs to a range the consumer must
// never fetch from.
func blocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

// blockedReason names the offending address in the verdict.
func blockedReason(addr netip.Addr) string {
	return "access to internal network addresses is not allowed: " + addr.Unmap().String()
}
