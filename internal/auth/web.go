package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// isLocalPath validates that a redirect path is local to prevent open
// redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	if strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}

// WebController serves the session-based login flow: HTML forms, session
// cookies, and flash messages. It shares the Service core with the JSON API
// but keeps its own semantics.
type WebController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
}

// NewWebController creates the web login controller. When no templates are
// found under <templatesPath>/auth, form pages degrade to JSON payloads; the
// degradation is logged so a broken templates dir does not go unnoticed.
func NewWebController(service *Service, sessionManager *SessionManager, templatesPath string) *WebController {
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		log.Printf("WARNING: no auth templates at %s, form pages fall back to JSON: %v", pattern, err)
		tmpl = nil
	}

	return &WebController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
	}
}

// RequireSession returns a middleware that redirects unauthenticated web
// requests to the login page.
func (wc *WebController) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !wc.sessionManager.IsAuthenticated(c.Request) {
			c.Redirect(http.StatusFound, "/login?next="+c.Request.URL.Path)
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginPage renders the login form.
func (wc *WebController) LoginPage(c *gin.Context) {
	if wc.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	wc.renderTemplate(c, "login.html", gin.H{
		"Title":     "Login",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"CSRFToken": GetCSRFToken(c),
		"Flash":     wc.sessionManager.PopFlash(c.Request),
	})
}

// Login handles the login form submission.
func (wc *WebController) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))

	user, err := wc.service.Authenticate(email, password)
	if err != nil {
		wc.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Invalid email or password",
		})
		return
	}

	if err := wc.sessionManager.CreateSession(c.Request, user); err != nil {
		wc.renderTemplate(c, "login.html", gin.H{
			"Title":     "Login",
			"Next":      next,
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     "Failed to create session",
		})
		return
	}

	wc.sessionManager.Flash(c.Request, "Logged in successfully")
	c.Redirect(http.StatusFound, next)
}

// RegisterPage renders the registration form.
func (wc *WebController) RegisterPage(c *gin.Context) {
	if wc.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	wc.renderTemplate(c, "register.html", gin.H{
		"Title":     "Register",
		"CSRFToken": GetCSRFToken(c),
		"Flash":     wc.sessionManager.PopFlash(c.Request),
	})
}

// Register handles the registration form submission.
func (wc *WebController) Register(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")

	user, err := wc.service.RegisterUser(email, password, confirmPassword)
	if err != nil {
		wc.renderTemplate(c, "register.html", gin.H{
			"Title":     "Register",
			"Email":     email,
			"CSRFToken": GetCSRFToken(c),
			"Error":     registrationErrorMessage(err),
		})
		return
	}

	if err := wc.sessionManager.CreateSession(c.Request, user); err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	wc.sessionManager.Flash(c.Request, "Account created")
	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session and redirects to login.
func (wc *WebController) Logout(c *gin.Context) {
	_ = wc.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, "/login")
}

// registrationErrorMessage maps registration failures to user-facing text.
func registrationErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	case errors.Is(err, ErrEmailTaken):
		return "An account with that email already exists"
	case errors.Is(err, ErrPasswordRequired):
		return "Password is required"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 4 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	default:
		return "Failed to create account"
	}
}

// renderTemplate renders an auth template or falls back to JSON.
func (wc *WebController) renderTemplate(c *gin.Context, name string, data gin.H) {
	if wc.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := wc.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.String(http.StatusInternalServerError, "Template error: %v", err)
	}
}
