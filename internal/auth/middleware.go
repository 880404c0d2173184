package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/opencivic/caseflow/internal/domain"
)

// LoginPath is the only API route served without a bearer token.
const LoginPath = "/api/auth/login"

type actorContextKey struct{}

// ActorFromContext retrieves the authenticated actor stored by Middleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Middleware enforces bearer-token authentication on every /api route
// except login and stores the resolved actor in the request context.
// Non-API paths (docs, schema) pass through untouched.
func Middleware(api huma.API, svc *Service) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		path := ctx.URL().Path
		if path == LoginPath || !strings.HasPrefix(path, "/api/") {
			next(ctx)
			return
		}

		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			slog.WarnContext(ctx.Context(), "request without bearer token", "path", path)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}

		actor, err := svc.VerifyToken(ctx.Context(), token)
		if err != nil {
			slog.WarnContext(ctx.Context(), "bearer token rejected", "path", path, "error", err)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(huma.WithValue(ctx, actorContextKey{}, actor))
	}
}
