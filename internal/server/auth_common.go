package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionCookie = "dashboard_session"

type ctxKey string

const ctxClaimsKey ctxKey = "claims"

// claims is the server-issued session token. Roles feed the casbin check;
// provider records which login path minted the session.
type claims struct {
	Roles    []string `json:"roles,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func makeSessionJWT(sub string, roles []string, provider, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Roles:    roles,
		Provider: provider,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

func parseSessionJWT(tokenStr string, secret []byte) (*claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	cl, ok := t.Claims.(*claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return cl, nil
}

// === Cookie helpers ========================================================

func setAuthCookie(w http.ResponseWriter, r *http.Request, cfg *ServerConfig, token string, ttl time.Duration) {
	secure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(cfg),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearAuthCookie(w http.ResponseWriter, cfg *ServerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(cfg),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func cookieName(cfg *ServerConfig) string {
	if cfg.SessionCookieName != "" {
		return cfg.SessionCookieName
	}
	return defaultSessionCookie
}

// === Context helpers =======================================================

func withClaims(r *http.Request, c *claims) *http.Request {
	ctx := context.WithValue(r.Context(), ctxClaimsKey, c)
	return r.WithContext(ctx)
}

func fromContext(r *http.Request) *claims {
	v := r.Context().Value(ctxClaimsKey)
	if v == nil {
		return nil
	}
	c, _ := v.(*claims)
	return c
}

// === Middleware to require session or bearer token =========================

// authGate protects /api/* with a session cookie or bearer token. Health
// probes, metrics and the auth endpoints themselves stay open.
func authGate(cfg *ServerConfig, next http.Handler) http.Handler {
	secret := []byte(cfg.JWTSecret)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions ||
			r.URL.Path == "/healthz" ||
			r.URL.Path == "/readyz" ||
			r.URL.Path == "/metrics" ||
			strings.HasPrefix(r.URL.Path, "/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		var tok string

		// 1) Cookie session
		if c, err := r.Cookie(cookieName(cfg)); err == nil && c.Value != "" {
			tok = c.Value
		}

		// 2) Authorization: Bearer
		if tok == "" {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(strings.ToLower(h), "bearer ") {
				tok = strings.TrimSpace(h[len("bearer "):])
			}
		}

		// 3) Optional query param (discouraged, behind a flag)
		if tok == "" && cfg.AllowTokenParam {
			tok = r.URL.Query().Get("access_token")
		}

		if tok == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := parseSessionJWT(tok, secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if rw, ok := w.(*responseWriter); ok {
			rw.user = c.Subject
		}
		next.ServeHTTP(w, withClaims(r, c))
	})
}
