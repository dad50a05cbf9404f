package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const problemContentType = "application/problem+json"

const (
	msgInvalidAccessToken = "Please provide a valid access token!"
	msgRefreshNotFound    = "Refresh token is null or already revoked!"
	msgRefreshRevoked     = "Refresh token is already revoked!"
	msgNoTokensForUser    = "Referesh token not found!"
	msgInvalidCredentials = "Invalid Username or Password!"
	msgLoginRateLimited   = "Too many login attempts, try again later!"
	msgRefreshRateLimited = "Too many refresh attempts, try again later!"
	msgGeneralException   = "Something went wrong!"
	msgValidationFailed   = "One or more validation errors occurred."
	msgUnauthorized       = "Unauthorized"
	msgForbidden          = "Forbidden"
)

// Problem is an RFC 7807 problem document.
type Problem struct {
	Status   int                 `json:"status"`
	Title    string              `json:"title"`
	Detail   string              `json:"detail,omitempty"`
	Instance string              `json:"instance,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

func writeProblem(c *gin.Context, p Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

// respondError maps an engine error onto a problem response. Business errors
// become 400 with a fixed message, throttles 429 and everything else 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, title := classify(err)
	p := Problem{Status: status, Title: title}

	if status == http.StatusInternalServerError {
		logging.FromContext(c, log).Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		p.Detail = http.StatusText(status)
	}
	writeProblem(c, p)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tokenauth.ErrInternal), errors.Is(err, tokenauth.ErrEngineNotReady):
		return http.StatusInternalServerError, msgGeneralException
	case errors.Is(err, tokenauth.ErrLoginRateLimited):
		return http.StatusTooManyRequests, msgLoginRateLimited
	case errors.Is(err, tokenauth.ErrRefreshRateLimited):
		return http.StatusTooManyRequests, msgRefreshRateLimited
	case errors.Is(err, tokenauth.ErrRefreshTokenNotFound):
		return http.StatusBadRequest, msgRefreshNotFound
	case errors.Is(err, tokenauth.ErrRefreshTokenRevoked):
		return http.StatusBadRequest, msgRefreshRevoked
	case errors.Is(err, tokenauth.ErrNoTokensForUser):
		return http.StatusBadRequest, msgNoTokensForUser
	case errors.Is(err, tokenauth.ErrInvalidCredentials), errors.Is(err, tokenauth.ErrInvalidIdentity):
		return http.StatusBadRequest, msgInvalidCredentials
	case tokenauth.IsBusinessError(err):
		return http.StatusBadRequest, msgInvalidAccessToken
	default:
		return http.StatusInternalServerError, msgGeneralException
	}
}
