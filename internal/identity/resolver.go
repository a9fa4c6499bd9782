package identity

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/analogia-app/engine/pkg/cookie"
	"github.com/analogia-app/engine/pkg/logger"
)

const (
	// CookieAnonymousID carries the signed anonymous visitor token.
	CookieAnonymousID = "anonymous_id"

	// CookieTTLSeconds is the lifetime of identity and counter cookies: 180 days.
	CookieTTLSeconds = 180 * 24 * 60 * 60
)

// SessionSource reports the authenticated account for a request, if any.
// Session mechanics (login, OAuth, expiry) live outside this engine; the
// resolver only consumes the lookup.
type SessionSource interface {
	AccountID(r *http.Request) (uuid.UUID, bool)
}

// SessionSourceFunc adapts a function to the SessionSource interface.
type SessionSourceFunc func(r *http.Request) (uuid.UUID, bool)

func (f SessionSourceFunc) AccountID(r *http.Request) (uuid.UUID, bool) {
	return f(r)
}

// Resolver derives the caller identity for a request: the authenticated
// account when a session exists, otherwise a persistent anonymous cookie
// token minted on first contact.
type Resolver struct {
	sessions SessionSource
	cookies  *cookie.Manager
	log      *slog.Logger
}

func NewResolver(sessions SessionSource, cookies *cookie.Manager, log *slog.Logger) *Resolver {
	if sessions == nil {
		panic("identity: SessionSource is required")
	}
	if cookies == nil {
		panic("identity: cookie manager is required")
	}
	return &Resolver{
		sessions: sessions,
		cookies:  cookies,
		log:      log,
	}
}

// Resolve returns the identity for the current request.
//
// Cookie persistence is best effort: if the anonymous token cannot be written
// back (for example the response is already committed), the failure is logged
// and the freshly minted token is still used for this request.
func (rs *Resolver) Resolve(w http.ResponseWriter, r *http.Request) Identity {
	if accountID, ok := rs.sessions.AccountID(r); ok {
		return ForAccount(accountID)
	}

	token, err := rs.cookies.GetSigned(r, CookieAnonymousID)
	if err == nil && token != "" {
		return ForAnonymous(token)
	}

	token = uuid.NewString()
	if err := rs.cookies.SetSigned(w, CookieAnonymousID, token, cookie.WithMaxAge(CookieTTLSeconds)); err != nil {
		rs.log.WarnContext(r.Context(), "failed to persist anonymous identity cookie", logger.Error(err))
	}
	return ForAnonymous(token)
}

// CookieSessionSource reads the account id from a signed cookie written by
// the external auth layer. It is the default SessionSource wiring.
type CookieSessionSource struct {
	cookies *cookie.Manager
	name    string
}

// NewCookieSessionSource returns a SessionSource backed by the named signed
// cookie. The cookie value must be an account UUID.
func NewCookieSessionSource(cookies *cookie.Manager, name string) *CookieSessionSource {
	return &CookieSessionSource{cookies: cookies, name: name}
}

func (s *CookieSessionSource) AccountID(r *http.Request) (uuid.UUID, bool) {
	value, err := s.cookies.GetSigned(r, s.name)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
