package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
)

// ClientIP replaces RemoteAddr with the address named by the forwarding
// headers, but only when the direct peer is one of the trusted proxies.
// X-Forwarded-For is read right to left and the first hop that is not itself
// a trusted proxy wins; X-Real-IP is used when no X-Forwarded-For is present.
// With no trusted proxies the middleware is a no-op and the socket address
// stays the client address.
func ClientIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedClientIP(r, trusted); ok {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClientIP(r *http.Request, trusted []netip.Prefix) (string, bool) {
	peer, ok := parseRemoteAddr(r.RemoteAddr)
	if !ok || !isTrustedProxy(peer, trusted) {
		return "", false
	}

	var hops []string
	for _, value := range r.Header.Values(constants.HeaderXForwardedFor) {
		for _, hop := range strings.Split(value, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}

	if len(hops) == 0 {
		realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(constants.HeaderXRealIP)))
		if err != nil {
			return "", false
		}
		return realIP.Unmap().String(), true
	}

	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(hops[i])
		if err != nil {
			// Anything left of a malformed hop cannot be attributed
			return "", false
		}
		hop = hop.Unmap()
		if !isTrustedProxy(hop, trusted) {
			return hop.String(), true
		}
	}
	return "", false
}

func parseRemoteAddr(remoteAddr string) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(remoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrustedProxy(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
