package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bookshelf/bookshelf/internal/models"
	"github.com/bookshelf/bookshelf/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const claimsKey contextKey = "claims"

type TokenDecoder interface {
	Decode(tokenString string) (*service.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware is the bearer-token guard. One instance serves both token
// kinds; the expected kind is chosen per route.
type AuthMiddleware struct {
	tokens      TokenDecoder
	revocations RevocationChecker
	metrics     *Metrics
	logger      *logrus.Logger
}

func NewAuthMiddleware(tokens TokenDecoder, revocations RevocationChecker, metrics *Metrics, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		revocations: revocations,
		metrics:     metrics,
		logger:      logger,
	}
}

// Authenticate extracts, decodes and checks the bearer token of r. It returns
// one of the service guard errors on rejection.
func (m *AuthMiddleware) Authenticate(r *http.Request, kind service.TokenKind) (*service.Claims, error) {
	tokenString, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, service.ErrMissingCredential
	}

	claims, err := m.tokens.Decode(tokenString)
	if err != nil {
		m.logger.WithError(err).Debug("Token verification failed")
		return nil, service.ErrInvalidToken
	}

	if claims.Kind() != kind {
		return nil, service.ErrWrongTokenKind
	}

	revoked, err := m.revocations.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		// Fail open: the token is still signed and unexpired.
		m.logger.WithError(err).WithField("jti", claims.ID).Warn("Revocation store unavailable, accepting token")
		m.metrics.observeRevocationCheckFailure()
	} else if revoked {
		return nil, service.ErrTokenRevoked
	}

	return claims, nil
}

func (m *AuthMiddleware) RequireAccess(next http.Handler) http.Handler {
	return m.Require(service.AccessToken)(next)
}

func (m *AuthMiddleware) RequireRefresh(next http.Handler) http.Handler {
	return m.Require(service.RefreshToken)(next)
}

func (m *AuthMiddleware) Require(kind service.TokenKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := m.Authenticate(r, kind)
			if err != nil {
				m.metrics.observeRejection(err)
				respondRejection(w, err, kind)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleGuard allows a request through only when the authenticated principal
// holds one of the configured roles. It must run after AuthMiddleware.
type RoleGuard struct {
	allowed map[models.Role]struct{}
	metrics *Metrics
}

func NewRoleGuard(metrics *Metrics, roles ...models.Role) *RoleGuard {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return &RoleGuard{allowed: allowed, metrics: metrics}
}

func (g *RoleGuard) Check(principal models.Principal) error {
	if _, ok := g.allowed[principal.Role]; !ok {
		return service.ErrForbidden
	}
	return nil
}

func (g *RoleGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			g.metrics.observeRejection(service.ErrMissingCredential)
			respondRejection(w, service.ErrMissingCredential, service.AccessToken)
			return
		}

		if err := g.Check(claims.User); err != nil {
			g.metrics.observeRejection(err)
			respondRejection(w, err, service.AccessToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok
}

func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return models.Principal{}, false
	}
	return claims.User, true
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, service.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, service.ErrWrongTokenKind):
		return "wrong_token_kind"
	case errors.Is(err, service.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	default:
		return "unknown"
	}
}

func respondRejection(w http.ResponseWriter, err error, kind service.TokenKind) {
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		respondError(w, http.StatusForbidden, "NOT_AUTHENTICATED", "Not authenticated")
	case errors.Is(err, service.ErrInvalidToken):
		respondError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid/Expired token.")
	case errors.Is(err, service.ErrWrongTokenKind):
		respondError(w, http.StatusForbidden, "WRONG_TOKEN_KIND", "Please provide the "+kind.String()+" token.")
	case errors.Is(err, service.ErrTokenRevoked):
		respondError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked. Please login again.")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", "You are not allowed to perform this action.")
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
