package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stayloop/stayloop/internal/auth"
	customerdomain "github.com/stayloop/stayloop/internal/customer/domain"
)

const contextIdentityKey = "identity"

// AuthRequired validates the bearer token and stores the verified identity on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

// authorizeAction gates the route on the caller's role policy.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), identity.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		if identity == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if identity.Role != customerdomain.RoleStaff {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

func isStaff(identity *auth.Identity) bool {
	return identity != nil && identity.Role == customerdomain.RoleStaff
}
