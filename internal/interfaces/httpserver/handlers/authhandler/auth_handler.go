package authhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"genai-console/internal/domain/auth"
	"genai-console/internal/infrastructure/metrics"
	"genai-console/internal/interfaces/httpserver/middlewares"
	"genai-console/internal/interfaces/httpserver/requests"
	"genai-console/internal/interfaces/httpserver/responses"
)

// AuthHandler serves login and session introspection.
type AuthHandler struct {
	guard  *auth.Guard
	logger zerolog.Logger
}

func NewAuthHandler(guard *auth.Guard, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{guard: guard, logger: logger}
}

type loginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

type retryResponse struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retry_after_seconds"`
}

// Login exchanges console credentials for a session token.
func (h *AuthHandler) Login(reqCtx *gin.Context) {
	var req requests.LoginRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleErrorWithStatus(reqCtx, http.StatusBadRequest, err, "invalid login request")
		return
	}

	token, ttl, err := h.guard.Login(reqCtx.Request.Context(), req.Username, req.Password)
	if err != nil {
		var rateErr *auth.RateLimitedError
		switch {
		case errors.As(err, &rateErr):
			metrics.RecordAuthAttempt("rate_limited")
			reqCtx.AbortWithStatusJSON(http.StatusTooManyRequests, retryResponse{
				Error:      "too many failed login attempts",
				RetryAfter: int64(rateErr.RetryAfter.Seconds()),
			})
		case errors.Is(err, auth.ErrInvalidCredentials):
			metrics.RecordAuthAttempt("failure")
			responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized, err, "invalid credentials")
		default:
			metrics.RecordAuthAttempt("error")
			responses.HandleError(reqCtx, err, "login failed")
		}
		return
	}

	metrics.RecordAuthAttempt("success")
	reqCtx.JSON(http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(ttl.Seconds()),
	})
}

type meResponse struct {
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expires_at"`
}

// Me returns the authenticated session's identity.
func (h *AuthHandler) Me(reqCtx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(reqCtx)
	if !ok {
		responses.HandleErrorWithStatus(reqCtx, http.StatusUnauthorized,
			errors.New("no session"), "unauthorized")
		return
	}
	reqCtx.JSON(http.StatusOK, meResponse{
		Username:  principal.Username,
		ExpiresAt: principal.ExpiresAt.Unix(),
	})
}
