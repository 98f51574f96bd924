package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const (
	currentPathContextKey = contextKey("currentPath")
	csrfTokenContextKey   = contextKey("csrfToken")
	cspNonceContextKey    = contextKey("cspNonce")
	isHxRequestContextKey = contextKey("isHxRequest")
)

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(currentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	nonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return nonce
}

// IsHxRequest reports whether the request was issued by htmx and expects a fragment instead of a full page.
func IsHxRequest(ctx context.Context) bool {
	isHx, ok := ctx.Value(isHxRequestContextKey).(bool)
	return ok && isHx
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := context.WithValue(r.Context(), currentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, token string) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, nonce string) *http.Request {
	ctx := context.WithValue(r.Context(), cspNonceContextKey, nonce)
	return r.WithContext(ctx)
}

func SetHxRequest(r *http.Request, isHx bool) *http.Request {
	ctx := context.WithValue(r.Context(), isHxRequestContextKey, isHx)
	return r.WithContext(ctx)
}
