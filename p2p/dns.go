package p2p

import (
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DefaultDNSTimeout bounds a single seed lookup (spec.md §4.9: "attempts to
// dial bootnodes first, then addresses learned from addr" — DNS seeds
// supplement bootnodes per SPEC_FULL's domain-stack wiring table).
const DefaultDNSTimeout = 5 * time.Second

// SeedLookup resolves a DNS seed host to candidate peer addresses. Default
// port is applied to every A record returned, since DNS seeds answer with
// bare IPs, not host:port pairs. Only A records are queried; IPv6 (AAAA)
// seeds are not looked up.
func SeedLookup(seed string, defaultPort uint16, timeout time.Duration) ([]net.TCPAddr, error) {
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}

	c := dns.Client{Timeout: timeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(seed), dns.TypeA)

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return nil, fmt.Errorf("p2p: resolve system DNS config: %w", err)
	}
	server := net.JoinHostPort(conf.Servers[0], conf.Port)

	resp, _, err := c.Exchange(m, server)
	if err != nil {
		return nil, fmt.Errorf("p2p: dns query %s: %w", seed, err)
	}

	var addrs []net.TCPAddr
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, net.TCPAddr{IP: a.A, Port: int(defaultPort)})
		}
	}
	return addrs, nil
}

// SeedLookupAll resolves every configured seed host, skipping (and logging)
// any that fail rather than aborting the whole bootstrap — one bad seed
// host shouldn't prevent discovery via the others or via bootnodes.
func SeedLookupAll(seeds []string, defaultPort uint16, timeout time.Duration) []net.TCPAddr {
	var all []net.TCPAddr
	for _, seed := range seeds {
		addrs, err := SeedLookup(seed, defaultPort, timeout)
		if err != nil {
			log.Warnf("PEER: dns seed %s failed: %v", seed, err)
			continue
		}
		all = append(all, addrs...)
	}
	return all
}
