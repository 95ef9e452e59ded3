package middleware

import (
	"log/slog"
	"net"
)

// ipRanges is a parsed CIDR list matched against request remote addresses.
type ipRanges []*net.IPNet

// parseCIDRs parses cidrs; invalid entries are logged and skipped. logger may be nil.
func parseCIDRs(cidrs []string, logger *slog.Logger) ipRanges {
	var nets ipRanges
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			if logger != nil {
				logger.Warn("invalid allowlist CIDR, skipping",
					slog.String("cidr", cidr),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// contains reports whether the host of remoteAddr ("ip:port" or bare ip) lies
// in one of the ranges, and returns that host.
func (r ipRanges) contains(remoteAddr string) (string, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host, false
	}
	for _, n := range r {
		if n.Contains(ip) {
			return host, true
		}
	}
	return host, false
}
