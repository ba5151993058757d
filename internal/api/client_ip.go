package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/packing-audit/internal/logging"
)

// proxyResolver derives the caller address used for rate limiting and
// request logs. X-Forwarded-For is only read when the socket peer is a
// configured proxy.
type proxyResolver struct {
	trusted []*net.IPNet
}

// newProxyResolver parses IPs and CIDRs; unparsable entries are logged and skipped
func newProxyResolver(entries []string, logger *logging.Logger) *proxyResolver {
	p := &proxyResolver{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 8 * net.IPv6len
				if ip.To4() != nil {
					ip, bits = ip.To4(), 8*net.IPv4len
				}
				p.trusted = append(p.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
				continue
			}
		} else if _, cidr, err := net.ParseCIDR(entry); err == nil {
			p.trusted = append(p.trusted, cidr)
			continue
		}
		if logger != nil {
			logger.WithField("entry", entry).Warn("Ignoring invalid trusted proxy")
		}
	}
	return p
}

func (p *proxyResolver) isTrusted(ip net.IP) bool {
	if p == nil || ip == nil {
		return false
	}
	for _, n := range p.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the socket peer unless it is a trusted proxy. Behind a
// trusted proxy the X-Forwarded-For chain is walked right to left and the
// first hop that is not itself a trusted proxy wins.
func (p *proxyResolver) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !p.isTrusted(net.ParseIP(peer)) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if !p.isTrusted(ip) {
			return ip.String()
		}
	}
	return peer
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
