package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/pkg/constants"
)

const (
	identityUserPrefix = "user:"
	identityIPPrefix   = "ip:"
	unknownClient      = "unknown"
)

// IdentityResolver derives the ClientIdentity a request is counted under.
type IdentityResolver struct {
	tokens            *crypto.JWTManager
	trustForwardedFor bool
	ipv6Prefix        int
}

// NewIdentityResolver creates a resolver. tokens may be nil, in which case
// every request is identified by its network address.
func NewIdentityResolver(tokens *crypto.JWTManager, trustForwardedFor bool, ipv6Prefix int) *IdentityResolver {
	if ipv6Prefix <= 0 || ipv6Prefix > 128 {
		ipv6Prefix = constants.DefaultIPv6Prefix
	}
	return &IdentityResolver{
		tokens:            tokens,
		trustForwardedFor: trustForwardedFor,
		ipv6Prefix:        ipv6Prefix,
	}
}

// Resolve returns "user:{id}" for UserAPI requests carrying a valid bearer
// token and "ip:{address}" otherwise.
func (r *IdentityResolver) Resolve(req *http.Request, tier Tier) string {
	if tier == constants.TierUserAPI {
		if sub, ok := r.Principal(req); ok {
			return identityUserPrefix + sub
		}
	}
	return identityIPPrefix + r.ClientIP(req)
}

// Principal returns the verified subject of the request's bearer token.
func (r *IdentityResolver) Principal(req *http.Request) (string, bool) {
	if !r.tokens.Enabled() {
		return "", false
	}
	token, ok := crypto.BearerToken(req.Header.Get(constants.HeaderAuthorization))
	if !ok {
		return "", false
	}
	sub, err := r.tokens.VerifyJWT(token)
	if err != nil {
		return "", false
	}
	return sub, true
}

// ClientIP returns the normalized client address. X-Forwarded-For is only
// honored when the resolver is configured to trust it.
func (r *IdentityResolver) ClientIP(req *http.Request) string {
	if r.trustForwardedFor {
		if xff := req.Header.Get(constants.HeaderForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := NormalizeIP(first, r.ipv6Prefix); ok {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if ip, ok := NormalizeIP(host, r.ipv6Prefix); ok {
		return ip
	}
	return unknownClient
}

// NormalizeIP canonicalizes raw so that every spelling of one client maps to
// one string: zones are dropped, IPv4-mapped IPv6 addresses become IPv4, and
// IPv6 addresses are reduced to their v6Prefix network.
func NormalizeIP(raw string, v6Prefix int) (string, bool) {
	raw = strings.TrimSpace(raw)
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		ap, perr := netip.ParseAddrPort(raw)
		if perr != nil {
			return "", false
		}
		addr = ap.Addr()
	}

	addr = addr.WithZone("").Unmap()
	if addr.Is4() {
		return addr.String(), true
	}

	if v6Prefix <= 0 || v6Prefix > 128 {
		v6Prefix = constants.DefaultIPv6Prefix
	}
	prefix, err := addr.Prefix(v6Prefix)
	if err != nil {
		return "", false
	}
	return prefix.String(), true
}
