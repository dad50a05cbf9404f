package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Authenticator is the part of *tokenauth.Engine the API calls.
type Authenticator interface {
	Login(ctx context.Context, id tokenauth.Identity) (*tokenauth.TokenPair, error)
	LoginWithPassword(ctx context.Context, identifier, password string) (*tokenauth.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*tokenauth.TokenPair, error)
	Revoke(ctx context.Context, accessToken, refreshToken string) error
	Validate(ctx context.Context, accessToken string) (*tokenauth.AuthResult, error)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type meResponse struct {
	UserID    string   `json:"userId"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
	ExpiresAt int64    `json:"expiresAt"`
}

var requiredMessages = map[string]string{
	"Username":     "username is required",
	"Password":     "password is required",
	"RefreshToken": "Refresh token is required.",
}

type accountHandler struct {
	auth      Authenticator
	openLogin bool
	log       *zap.Logger
}

func (h *accountHandler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	ctx := requestContext(c)
	var (
		pair *tokenauth.TokenPair
		err  error
	)
	if h.openLogin {
		pair, err = h.auth.Login(ctx, tokenauth.Identity{UserID: req.Username, Name: req.Username})
	} else {
		pair, err = h.auth.LoginWithPassword(ctx, req.Username, req.Password)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *accountHandler) refreshToken(c *gin.Context) {
	var req refreshTokenRequest
	if !bind(c, &req) {
		return
	}
	accessToken, ok := middleware.AccessTokenFromRequest(c.Request)
	if !ok {
		writeProblem(c, Problem{Status: http.StatusBadRequest, Title: msgInvalidAccessToken})
		return
	}

	pair, err := h.auth.Refresh(requestContext(c), accessToken, req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *accountHandler) revokeToken(c *gin.Context) {
	var req refreshTokenRequest
	if !bind(c, &req) {
		return
	}
	accessToken, ok := middleware.AccessTokenFromRequest(c.Request)
	if !ok {
		writeProblem(c, Problem{Status: http.StatusBadRequest, Title: msgInvalidAccessToken})
		return
	}

	if err := h.auth.Revoke(requestContext(c), accessToken, req.RefreshToken); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandler) me(c *gin.Context) {
	res, ok := middleware.AuthResultFromContext(c.Request.Context())
	if !ok {
		writeProblem(c, Problem{Status: http.StatusUnauthorized, Title: msgUnauthorized})
		return
	}
	c.JSON(http.StatusOK, meResponse{
		UserID:    res.UserID,
		Name:      res.Name,
		Email:     res.Email,
		Roles:     res.Roles,
		ExpiresAt: res.ExpiresAt.Unix(),
	})
}

// requireAuth is the gin form of middleware.Guard. The result is stored on
// the request context so handlers read it with middleware.AuthResultFromContext.
func requireAuth(v middleware.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.AccessTokenFromRequest(c.Request)
		if !ok {
			writeProblem(c, Problem{Status: http.StatusUnauthorized, Title: msgUnauthorized})
			return
		}
		res, err := v.Validate(requestContext(c), token)
		if err != nil {
			writeProblem(c, Problem{Status: http.StatusUnauthorized, Title: msgUnauthorized})
			return
		}
		c.Request = c.Request.WithContext(middleware.WithAuthResult(c.Request.Context(), res))
		c.Next()
	}
}

// requireRole answers 403 unless the validated token carries one of roles.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, ok := middleware.AuthResultFromContext(c.Request.Context())
		if !ok {
			writeProblem(c, Problem{Status: http.StatusUnauthorized, Title: msgUnauthorized})
			return
		}
		if !middleware.HasAnyRole(res, roles...) {
			writeProblem(c, Problem{Status: http.StatusForbidden, Title: msgForbidden})
			return
		}
		c.Next()
	}
}

func requestContext(c *gin.Context) context.Context {
	ctx := tokenauth.WithClientIP(c.Request.Context(), c.ClientIP())
	return tokenauth.WithUserAgent(ctx, c.Request.UserAgent())
}

func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	p := Problem{Status: http.StatusBadRequest, Title: msgValidationFailed}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		p.Errors = make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			msg, ok := requiredMessages[fe.Field()]
			if !ok || fe.Tag() != "required" {
				msg = fe.Error()
			}
			p.Errors[fe.Field()] = append(p.Errors[fe.Field()], msg)
		}
	} else {
		p.Detail = "request body must be a JSON object"
	}
	writeProblem(c, p)
	return false
}
