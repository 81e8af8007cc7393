// Package rbac defines the boundary to the role-based access control
// engine. The engine itself is an external collaborator; this package
// carries the acting identity explicitly through the call chain and
// exposes the permission check the HTTP layer consults.
package rbac

// Actor is the authenticated identity performing an operation. Schema
// optionally selects a tenant-specific database schema; empty means the
// service default. Actors travel as plain values — no ambient or
// request-local state.
type Actor struct {
	ID     string
	Schema string
}

// Access levels, ordered by privilege.
const (
	LevelView   = "view"
	LevelCreate = "create"
	LevelDelete = "delete"
	LevelAdmin  = "admin"
)

// Scopes this service asks about.
const (
	ScopeDocuments = "documents"
)

// Checker answers whether an actor holds the given access level on a scope.
type Checker interface {
	HasPermission(actor Actor, scope, level string) bool
}

// AllowAll grants every permission. It stands in where the real engine is
// not wired, such as tests and local development.
type AllowAll struct{}

func (AllowAll) HasPermission(Actor, string, string) bool { return true }
