// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated caller.
// Handlers read the user and workspace through it without touching gin keys.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// WorkspaceID returns the caller's workspace. Every data access is scoped to it.
	WorkspaceID() uuid.UUID
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	workspaceID   uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID {
	return i.userID
}

func (i *identity) WorkspaceID() uuid.UUID {
	return i.workspaceID
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// A caller without both a user and a workspace is unauthenticated.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	workspaceID, workspaceOK := c.Get(ContextWorkspaceIDKey)

	if !userOK || !workspaceOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}
	wid, ok := workspaceID.(uuid.UUID)
	if !ok || wid == uuid.Nil {
		return &identity{authenticated: false}
	}

	return &identity{
		userID:        uid,
		workspaceID:   wid,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
