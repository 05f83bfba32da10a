// Package actor carries the resolved {id, role} pair of a user through
// service calls. Roles are never re-derived by probing storage.
package actor

import (
	"net/http"

	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleManager Role = "manager"
	RoleWorker  Role = "worker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleManager || r == RoleWorker
}

// ParseRole converts a string to a Role.
func ParseRole(value string) (Role, bool) {
	r := Role(value)
	return r, r.Valid()
}

// Actor identifies a user together with the role they act in.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// New builds an Actor.
func New(id uuid.UUID, role Role) Actor {
	return Actor{ID: id, Role: role}
}

// IsManager reports whether the actor acts as a manager.
func (a Actor) IsManager() bool { return a.Role == RoleManager }

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool { return a.ID == uuid.Nil }

// FromIdentity converts an authenticated identity to an Actor.
// Returns false when the identity carries no known role.
func FromIdentity(id httpkit.Identity) (Actor, bool) {
	if id == nil || !id.IsAuthenticated() {
		return Actor{}, false
	}
	role, ok := ParseRole(id.Role())
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: id.UserID(), Role: role}, true
}

// MustGet resolves the acting user of a request. It aborts with 401 when the
// request is unauthenticated and 403 when the token carries an unknown role.
func MustGet(c *gin.Context) (Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return Actor{}, false
	}
	a, ok := FromIdentity(identity)
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "unknown role", nil)
		c.Abort()
		return Actor{}, false
	}
	return a, true
}

// Dedupe returns actors with duplicate IDs removed, keeping first occurrence order.
func Dedupe(actors []Actor) []Actor {
	seen := make(map[uuid.UUID]struct{}, len(actors))
	out := make([]Actor, 0, len(actors))
	for _, a := range actors {
		if a.IsZero() {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}
