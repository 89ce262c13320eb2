// Package domain resolves host names to addresses.
package domain

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

// NetLookuper resolves through the system resolver.
type NetLookuper struct {
	resolver *net.Resolver
}

var _ Lookuper = (*NetLookuper)(nil)

// NewNetLookuper returns a lookuper backed by resolver.
// A nil resolver means [net.DefaultResolver].
func NewNetLookuper(resolver *net.Resolver) *NetLookuper {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &NetLookuper{resolver: resolver}
}

func (l *NetLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	addrs, err := l.resolver.LookupNetIP(ctx, "ip", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrap(ErrDomainNotFound, domain)
		}
		return nil, errors.Wrapf(err, "looking up %q", domain)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrap(ErrDomainNotFound, domain)
	}

	for i, addr := range addrs {
		addrs[i] = addr.Unmap()
	}
	return addrs, nil
}

// MapLookuper answers from a fixed table. Names are matched case-insensitively.
type MapLookuper struct {
	set map[string][]netip.Addr
}

var _ Lookuper = (*MapLookuper)(nil)

func NewMapLookuper(set map[string][]netip.Addr) *MapLookuper {
	m := &MapLookuper{set: make(map[string][]netip.Addr, len(set))}
	for domain, addrs := range set {
		m.Set(domain, addrs)
	}
	return m
}

func (m *MapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	addrs, ok := m.set[strings.ToLower(domain)]
	if !ok {
		return nil, errors.Wrap(ErrDomainNotFound, domain)
	}
	return addrs, nil
}

func (m *MapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.set[strings.ToLower(domain)] = append([]netip.Addr(nil), addrs...)
}

func (m *MapLookuper) Del(domain string) { delete(m.set, strings.ToLower(domain)) }
