// Package session carries session tokens between client and server: an
// HttpOnly cookie first, an Authorization bearer header as a fallback.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// DefaultCookieName is the cookie browsers store the session token in.
const DefaultCookieName = "token"

type Options struct {
	Name   string
	Domain string
	// Production switches to Secure + SameSite=None for cross-site front-ends.
	Production bool
}

// Transport writes, reads and clears the session cookie. Attach and Clear
// share one cookie builder so the browser always matches the pair.
type Transport struct {
	opts Options
	now  func() time.Time
}

func NewTransport(opts Options) *Transport {
	if opts.Name == "" {
		opts.Name = DefaultCookieName
	}
	return &Transport{opts: opts, now: time.Now}
}

func (t *Transport) CookieName() string { return t.opts.Name }

func (t *Transport) cookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     t.opts.Name,
		Value:    value,
		Path:     "/",
		Domain:   t.opts.Domain,
		HttpOnly: true,
		Secure:   t.opts.Production,
		SameSite: http.SameSiteStrictMode,
	}
	if t.opts.Production {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// Attach sets the session cookie with the token's own lifetime.
func (t *Transport) Attach(w http.ResponseWriter, tok domain.IssuedToken) {
	c := t.cookie(tok.Value)
	c.Expires = tok.ExpiresAt.UTC()
	if maxAge := int(tok.ExpiresAt.Sub(t.now()).Seconds()); maxAge > 0 {
		c.MaxAge = maxAge
	} else {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// Extract returns the raw token from the cookie, or from a Bearer
// Authorization header when no cookie is present.
func (t *Transport) Extract(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if c, err := r.Cookie(t.opts.Name); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, true
		}
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Clear expires the session cookie.
func (t *Transport) Clear(w http.ResponseWriter) {
	c := t.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	http.SetCookie(w, c)
}
