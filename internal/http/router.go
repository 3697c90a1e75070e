package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/identity/internal/auth"
	"github.com/mrlokans/identity/internal/config"
	"github.com/mrlokans/identity/internal/database"
	"github.com/mrlokans/identity/internal/database/users"
)

// RouterConfig carries all dependencies the router needs. Using a struct
// keeps the constructor signature stable and the wiring testable.
type RouterConfig struct {
	Database       *database.Database
	AuthService    *auth.Service
	UserRepo       *users.Repository
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
	UI             config.UI
	Version        string
}

// NewRouter creates and configures the HTTP router with all endpoints.
//
// The same credential paths are served to two front-ends: JSON requests hit
// the stateless token API, form submissions hit the session/flash web flow.
// The split happens per request on content type; the handlers never share
// response semantics.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Security headers on all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	userController := NewUserController(cfg.AuthService, cfg.UserRepo)
	gate := auth.NewMiddleware(cfg.AuthService)

	// Credential endpoints: JSON body selects the token API, anything else
	// the web form flow.
	if cfg.SessionManager != nil {
		webController := auth.NewWebController(cfg.AuthService, cfg.SessionManager, cfg.UI.TemplatesPath)
		router.GET("/login", webController.LoginPage)
		router.POST("/login", jsonOrForm(userController.Login, webController.Login))
		router.GET("/register", webController.RegisterPage)
		router.POST("/register", jsonOrForm(userController.Register, webController.Register))
		router.GET("/logout", webController.Logout)
		router.POST("/logout", webController.Logout)
	} else {
		router.POST("/login", userController.Login)
		router.POST("/register", userController.Register)
	}

	// Password reset flow (stateless)
	router.POST("/forgot", userController.Forgot)
	router.POST("/reset/:token", userController.Reset)

	// Token-gated routes
	router.GET("/profile", gate.RequireToken(), userController.Profile)
	router.PUT("/profile", gate.RequireToken(), userController.UpdateProfile)
	router.POST("/profile/password", gate.RequireToken(), userController.ChangePassword)

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)

	if cfg.UI.StaticPath != "" {
		router.Static("/static", cfg.UI.StaticPath)
	}

	return router
}

// jsonOrForm dispatches to the JSON API handler for JSON bodies and to the
// web form handler otherwise.
func jsonOrForm(jsonHandler, formHandler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.ContentType(), "application/json") {
			jsonHandler(c)
			return
		}
		formHandler(c)
	}
}
