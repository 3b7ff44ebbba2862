package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"taskhub/internal/common"
	"taskhub/internal/common/security"
	"taskhub/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const principalCtxKey contextKey = "principal"

// AccessVerifier checks an access token and returns its claims.
type AccessVerifier interface {
	VerifyAccess(token string) (security.AccessClaims, error)
}

// Gate turns a bearer header into a Principal. Every failure is reported as
// ErrUnauthenticated; the cause only reaches the debug log.
type Gate struct {
	tokens AccessVerifier
	log    *slog.Logger
}

func NewGate(tokens AccessVerifier, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, log: log}
}

// Authenticate resolves an Authorization header value.
func (g *Gate) Authenticate(header string) (model.Principal, error) {
	r := &http.Request{Header: http.Header{"Authorization": []string{header}}}
	return g.authenticateToken(jwtauth.TokenFromHeader(r))
}

func (g *Gate) authenticateToken(token string) (model.Principal, error) {
	if token == "" {
		return model.Principal{}, common.ErrUnauthenticated
	}
	claims, err := g.tokens.VerifyAccess(token)
	if err != nil {
		g.log.Debug("access token rejected", "error", err)
		return model.Principal{}, common.ErrUnauthenticated
	}
	return model.Principal{ID: claims.SubjectID, Role: claims.Role}, nil
}

func (g *Gate) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := g.authenticateToken(jwtauth.TokenFromHeader(r))
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, common.PublicMessage(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// AdminOnly must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok || !p.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, common.PublicMessage(common.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// Helper to get the authenticated principal from context
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(model.Principal)
	return p, ok
}
