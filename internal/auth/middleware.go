package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/identity/internal/entities"
	"github.com/mrlokans/identity/internal/response"
)

// TokenScheme is the Authorization header scheme for bearer tokens. The API
// uses "jwt", not the standard "Bearer".
const TokenScheme = "jwt"

// Context keys for the resolved identity
const (
	ContextKeyUser   = "auth_user"
	ContextKeyUserID = "auth_user_id"
)

// Rejection reasons reported by the gate. Every failure is terminal for the
// request; there are no retries and no partial success.
const (
	ReasonNoToken      = "no token"
	ReasonUserNotFound = "user not found"
)

// Middleware is the request gate for token-authenticated routes: it verifies
// the presented token, resolves the acting user, and attaches it to the
// request context.
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequireToken returns a Gin handler that rejects requests without a valid
// token. On success the resolved user is available via GetUser.
func (m *Middleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c.GetHeader("Authorization"))
		if !ok {
			response.AbortError(c, http.StatusUnauthorized, ReasonNoToken)
			return
		}

		userID, err := m.service.Tokens().Verify(token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, err.Error())
			return
		}

		// The token only proves the id was valid at issuance; the user
		// must still exist now.
		user, err := m.service.GetUserByID(userID)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, ReasonUserNotFound)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyUserID, user.ID)
		c.Next()
	}
}

// extractToken pulls the credential out of an "Authorization: jwt <token>"
// header. The scheme comparison is case-insensitive.
func extractToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], TokenScheme) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// GetUser retrieves the authenticated user from the context.
// Returns nil if the request did not pass the gate.
func GetUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if the request did not pass the gate.
func GetUserID(c *gin.Context) uint {
	if v, exists := c.Get(ContextKeyUserID); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
