package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/auth"
	"genai-console/internal/interfaces/httpserver/responses"
)

const principalContextKey = "principal"

// AuthMiddleware validates bearer session tokens issued by the session guard.
func AuthMiddleware(guard *auth.Guard, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized,
				errors.New("authentication required"), "unauthorized")
			return
		}

		principal, err := guard.Validate(c.Request.Context(), token)
		if err != nil {
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, err, "unauthorized")
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (*auth.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	principal, ok := val.(*auth.Principal)
	return principal, ok
}
