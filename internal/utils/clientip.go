package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HostOnly strips the port from "ip:port", "[v6]:port" or "host:port".
func HostOnly(s string) string {
	if s == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return strings.Trim(s, "[]")
}

// firstForwarded returns the left-most entry of an X-Forwarded-For header.
func firstForwarded(xff string) string {
	if i := strings.IndexByte(xff, ','); i >= 0 {
		xff = xff[:i]
	}
	return strings.TrimSpace(xff)
}

// ClientIP resolves the client address of r.
// Proxy headers (CF-Connecting-IP, X-Forwarded-For, X-Real-IP) are only read
// when trustProxy is set; otherwise RemoteAddr is authoritative.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, v := range []string{
			r.Header.Get("CF-Connecting-IP"),
			firstForwarded(r.Header.Get("X-Forwarded-For")),
			r.Header.Get("X-Real-IP"),
		} {
			if ip := HostOnly(strings.TrimSpace(v)); ip != "" {
				return ip
			}
		}
	}
	return HostOnly(r.RemoteAddr)
}

// AddrList matches addresses against a set of prefixes. Bare addresses are
// stored as single-address prefixes.
type AddrList struct {
	prefixes []netip.Prefix
}

// ParseAddrList parses IPs and CIDRs. Entries that parse as neither are
// returned in invalid and left out of the list.
func ParseAddrList(entries []string) (list *AddrList, invalid []string) {
	list = &AddrList{}
	for _, raw := range entries {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			list.prefixes = append(list.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			a = a.Unmap()
			list.prefixes = append(list.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return list, invalid
}

func (l *AddrList) Len() int { return len(l.prefixes) }

// Contains reports whether ip falls in any prefix. Unparseable input never matches.
func (l *AddrList) Contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range l.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
