package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as seen by handlers.
type Identity interface {
	UserID() uuid.UUID
	// TenantID returns the company the caller acts for, nil when the token
	// carried no tenant claim.
	TenantID() *uuid.UUID
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	tenantID      *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID     { return i.userID }
func (i *identity) TenantID() *uuid.UUID  { return i.tenantID }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	id := &identity{userID: userID, authenticated: true}
	if rawTenant, ok := c.Get(ContextTenantIDKey); ok {
		if tenantID, ok := rawTenant.(uuid.UUID); ok {
			id.tenantID = &tenantID
		}
	}
	return id
}
