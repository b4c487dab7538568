package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/coincraze/authd/internal/pkg/config"
	"github.com/coincraze/authd/internal/pkg/instrument"
)

// middlewareIP resolves the client address. Forwarding headers are honoured
// only when the direct peer is inside app.server.trusted_proxies, so a client
// cannot forge its address by sending X-Forwarded-For itself.
func middlewareIP(cfg config.Config) Middleware {
	var trusted []netip.Prefix
	if cfg != nil {
		for _, raw := range cfg.GetArray("app.server.trusted_proxies") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				addr, aerr := netip.ParseAddr(raw)
				if aerr != nil {
					slog.Warn("ignoring invalid trusted proxy", "value", raw, "error", err)
					continue
				}
				p = netip.PrefixFrom(addr, addr.BitLen())
			}
			trusted = append(trusted, p)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, trusted); ip.IsValid() {
				r.RemoteAddr = ip.String()
				r = r.WithContext(instrument.SetClientIP(r.Context(), ip.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trusted []netip.Prefix) netip.Addr {
	peer := peerAddr(r.RemoteAddr)
	if !peer.IsValid() || !isTrusted(peer, trusted) {
		return peer
	}

	for _, h := range []string{"True-Client-IP", "X-Real-IP"} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return addr.Unmap()
		}
	}

	// Walk X-Forwarded-For from the right; the first hop we do not trust is the client.
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !isTrusted(addr, trusted) {
			return addr
		}
	}
	return peer
}

func peerAddr(remote string) netip.Addr {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
