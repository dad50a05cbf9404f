// Package httpapi is the gin HTTP surface of tokenauthd: the account
// endpoints for login, refresh and revoke plus health and metrics.
package httpapi

import (
	"net/http"

	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const DefaultAdminRole = "Admin"

type Options struct {
	Auth Authenticator
	// OpenLogin issues tokens for any submitted username without a password check.
	OpenLogin bool
	Logger    *zap.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// RefreshStats serves GET /api/v1/admin/refresh-stats to AdminRole when set.
	RefreshStats func() refresh.Stats
	AdminRole    string
}

// NewRouter builds the gin engine. gin's mode is process-global and left to the caller.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.AdminRole == "" {
		opts.AdminRole = DefaultAdminRole
	}

	r := gin.New()
	r.Use(logging.GinMiddleware(log), logging.Recovery(log))

	r.NoRoute(func(c *gin.Context) {
		writeProblem(c, Problem{Status: http.StatusNotFound, Title: http.StatusText(http.StatusNotFound)})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	h := &accountHandler{auth: opts.Auth, openLogin: opts.OpenLogin, log: log}

	v1 := r.Group("/api/v1")
	account := v1.Group("/account")
	{
		account.POST("/login", h.login)
		account.POST("/refresh-token", h.refreshToken)
		account.POST("/revoke-token", h.revokeToken)
		account.GET("/me", requireAuth(opts.Auth), h.me)
	}

	if opts.RefreshStats != nil {
		stats := opts.RefreshStats
		admin := v1.Group("/admin", requireAuth(opts.Auth), requireRole(opts.AdminRole))
		admin.GET("/refresh-stats", func(c *gin.Context) {
			st := stats()
			c.JSON(http.StatusOK, gin.H{
				"users":   st.Users,
				"records": st.Records,
				"active":  st.Active,
			})
		})
	}

	return r
}
