package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashford-digital/docvault/pkg/handlers"
)

type contextKey struct{}

// ActorHeader identifies the acting user. Session derivation is handled
// upstream; this service trusts the header placed by that layer.
const ActorHeader = "X-Actor-Id"

// SchemaHeader optionally selects the tenant database schema.
const SchemaHeader = "X-Actor-Schema"

// FromRequest extracts the Actor attached by Require.
func FromRequest(r *http.Request) Actor {
	if actor, ok := r.Context().Value(contextKey{}).(Actor); ok {
		return actor
	}
	return Actor{}
}

// Guard wraps route handlers with permission checks against one checker.
type Guard struct {
	checker Checker
	logger  *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(checker Checker, logger *slog.Logger) *Guard {
	return &Guard{
		checker: checker,
		logger:  logger.With("system", "rbac"),
	}
}

// Require resolves the actor from request headers, rejects the request
// when the checker denies scope+level, and otherwise attaches the actor
// to the request context for the wrapped handler.
func (g *Guard) Require(scope, level string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := Actor{
			ID:     r.Header.Get(ActorHeader),
			Schema: r.Header.Get(SchemaHeader),
		}

		if !g.checker.HasPermission(actor, scope, level) {
			g.logger.Warn(
				"permission denied",
				"actor", actor.ID,
				"scope", scope,
				"level", level,
			)
			handlers.RespondJSON(w, http.StatusForbidden, map[string]string{
				"error": "permission denied",
			})
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, actor)
		next(w, r.WithContext(ctx))
	}
}
