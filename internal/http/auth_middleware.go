package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/splax/taskpulse/internal/domain"
)

type authContextKey string

const contextKeyAuth authContextKey = "taskpulse-auth-info"

// authInfo carries the verified identity of the request.
type authInfo struct {
	UserID int
	Role   string
}

// requireAuth ensures the request has a valid bearer token before invoking
// the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), domain.ErrAuthRequired)
		return req.Context(), authInfo{}, false
	}
	claims, err := r.auth.Verify(token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), domain.ErrAuthInvalid)
		return req.Context(), authInfo{}, false
	}
	userID, err := claims.UserID()
	if err != nil {
		r.logger.Warn("token subject malformed", "error", err, "path", req.URL.Path)
		writeDomainError(w, r.logger, requestIDFromContext(req.Context()), domain.ErrAuthInvalid)
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: userID, Role: claims.Role}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts the verified identity from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
