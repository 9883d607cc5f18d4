package safety

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
)

// staticLookup returns a fixed address set for every host.
func staticLookup(addrs ...string) LookupFunc {
	parsed := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		parsed = append(parsed, netip.MustParseAddr(a))
	}
	return func(ctx context.Context, host string) ([]netip.Addr, error) {
		return parsed, nil
	}
}

func TestSchemeRejected(t *testing.T) {
	c := NewChecker(WithLookup(staticLookup("93.184.216.34")))

	cases := []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"gopher://example.com",
		"javascript:alert(1)",
	}

	for _, raw := range cases {
		v := c.Check(context.Background(), raw)
		if v.Safe {
			t.Errorf("%s: expected unsafe", raw)
		}
		if v.Reason != "protocol not allowed" {
			t.Errorf("%s: expected reason %q, got %q", raw, "protocol not allowed", v.Reason)
		}
	}
}

func TestMissingHost(t *testing.T) {
	c := NewChecker(WithLookup(staticLookup("93.184.216.34")))

	v := c.Check(context.Background(), "http://")
	if v.Safe || v.Reason != "invalid URL format" {
		t.Errorf("expected invalid URL format, got %+v", v)
	}
}

func TestResolutionFailure(t *testing.T) {
	c := NewChecker(WithLookup(func(ctx context.Context, host string) ([]netip.Addr, error) {
		return nil, errors.New("no such host")
	}))

	v := c.Check(context.Background(), "http://does-not-exist.invalid/")
	if v.Safe {
		t.Fatal("expected unsafe on resolution failure")
	}
	if v.Reason != "could not resolve hostname: does-not-exist.invalid" {
		t.Errorf("unexpected reason %q", v.Reason)
	}
}

func TestPrivateAddressesBlocked(t *testing.T) {
	cases := []string{
		"10.0.0.5",
		"172.16.1.1",
		"192.168.1.10",
		"127.0.0.1",
		"169.254.169.254",
		"0.0.0.0",
		"::1",
		"fe80::1",
		"fd00::1",
	}

	for _, addr := range cases {
		c := NewChecker(WithLookup(staticLookup(addr)))
		v := c.Check(context.Background(), "http://internal.example/")
		if v.Safe {
			t.Errorf("%s: expected unsafe", addr)
			continue
		}
		if !strings.Contains(v.Reason, addr) {
			t.Errorf("%s: expected offending address in reason, got %q", addr, v.Reason)
		}
	}
}

func TestMixedAddressSetBlocked(t *testing.T) {
	// A host that round-robins between public and private must be unsafe
	// regardless of where the private address sits in the set.
	orders := [][]string{
		{"10.0.0.5", "93.184.216.34"},
		{"93.184.216.34", "10.0.0.5"},
		{"93.184.216.34", "1.1.1.1", "10.0.0.5"},
	}

	for _, set := range orders {
		c := NewChecker(WithLookup(staticLookup(set...)))
		v := c.Check(context.Background(), "https://rebind.example/")
		if v.Safe {
			t.Errorf("set %v: expected unsafe", set)
		}
		if !strings.Contains(v.Reason, "10.0.0.5") {
			t.Errorf("set %v: expected 10.0.0.5 in reason, got %q", set, v.Reason)
		}
	}
}

func TestIPv4MappedIPv6Blocked(t *testing.T) {
	c := NewChecker(WithLookup(staticLookup("::ffff:127.0.0.1")))
	v := c.Check(context.Background(), "http://mapped.example/")
	if v.Safe {
		t.Fatal("expected IPv4-mapped loopback to be blocked")
	}
}

func TestLiteralAddressHost(t *testing.T) {
	// No DNS lookup for literal hosts; the lookup func must not be consulted.
	called := false
	c := NewChecker(WithLookup(func(ctx context.Context, host string) ([]netip.Addr, error) {
		called = true
		return nil, errors.New("unexpected lookup")
	}))

	v := c.Check(context.Background(), "http://192.168.0.1/admin")
	if v.Safe {
		t.Fatal("expected private literal blocked")
	}
	if called {
		t.Error("lookup should not run for literal addresses")
	}

	v = c.Check(context.Background(), "http://93.184.216.34/")
	if !v.Safe {
		t.Errorf("expected public literal allowed, got %q", v.Reason)
	}
}

func TestPublicHostAllowed(t *testing.T) {
	c := NewChecker(WithLookup(staticLookup("93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946")))
	v := c.Check(context.Background(), "https://example.com/page?q=1")
	if !v.Safe {
		t.Errorf("expected safe, got %q", v.Reason)
	}
}

func TestFailClosedOnPanic(t *testing.T) {
	c := NewChecker(WithLookup(func(ctx context.Context, host string) ([]netip.Addr, error) {
		panic("resolver crashed")
	}))

	v := c.Check(context.Background(), "http://example.com/")
	if v.Safe {
		t.Fatal("expected unsafe verdict when validation faults")
	}
	if !strings.Contains(v.Reason, "URL validation error") {
		t.Errorf("expected diagnostic reason, got %q", v.Reason)
	}
}
