// Package httpkit holds the gin plumbing shared by every HTTP module:
// caller identity, middleware and the error envelope.
package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const principalKey = "httpkit.principal"

// Identity is the authenticated caller of a request.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	HasAnyRole(roles ...string) bool
}

type principal struct {
	userID uuid.UUID
	roles  []string
}

func (p principal) UserID() uuid.UUID { return p.userID }

func (p principal) Roles() []string { return slices.Clone(p.roles) }

func (p principal) HasRole(role string) bool { return slices.Contains(p.roles, role) }

func (p principal) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(p.roles, func(r string) bool {
		return slices.Contains(roles, r)
	})
}

// SetIdentity attaches the caller to the gin context. Roles are copied.
func SetIdentity(c *gin.Context, userID uuid.UUID, roles []string) {
	c.Set(principalKey, principal{userID: userID, roles: slices.Clone(roles)})
}

// IdentityFrom returns the caller stored by SetIdentity, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := value.(principal)
	if !ok || p.userID == uuid.Nil {
		return nil, false
	}
	return p, true
}

// MustGetIdentity returns the caller or aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id, ok := IdentityFrom(c)
	if !ok {
		abortUnauthorized(c, errUnauthorized)
		return nil
	}
	return id
}
