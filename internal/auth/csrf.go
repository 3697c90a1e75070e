package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFMiddleware creates a Gin middleware for CSRF protection of the web
// login flow. It skips CSRF checks for:
//   - API routes carrying a valid token under the jwt scheme (stateless,
//     not cookie-authenticated)
//   - JSON requests: a cross-site JSON POST is not a simple request, so the
//     browser already forces a CORS preflight for it
//   - safe HTTP methods (GET, HEAD, OPTIONS, TRACE)
func CSRFMiddleware(secret []byte, secure bool, service *Service) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if isAPIWithValidToken(c, service) || isJSONRequest(c) {
			c.Next()
			return
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			// Store the CSRF token in the context for templates.
			// Session middleware runs after this, so session context
			// is added on top of the CSRF request context.
			c.Set("csrf_token", csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)

		// On rejection gorilla/csrf writes the error response without
		// invoking the inner handler; stop gin from running the rest of
		// the chain on top of it.
		if !passed {
			c.Abort()
		}
	}
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	// For form submissions, redirect back to the original page with an error
	referer := r.Referer()
	if referer != "" {
		separator := "?"
		if strings.Contains(referer, "?") {
			separator = "&"
		}
		http.Redirect(w, r, referer+separator+"error=Session+expired.+Please+try+again.", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Form Expired</title></head>
<body style="font-family: system-ui; max-width: 420px; margin: 100px auto; text-align: center;">
<h1>Form Expired</h1>
<p>The sign-in form was open too long or the submission could not be verified.</p>
<p><a href="javascript:history.back()">Go back and submit again</a></p>
</body>
</html>`))
}

// isAPIWithValidToken checks if this is an API request with a valid token
// under the jwt scheme. Such requests are stateless and need no CSRF check.
func isAPIWithValidToken(c *gin.Context, service *Service) bool {
	token, ok := extractToken(c.GetHeader("Authorization"))
	if !ok {
		return false
	}
	if service == nil {
		return true
	}
	_, err := service.Tokens().Verify(token)
	return err == nil
}

// isJSONRequest reports whether the request body is JSON.
func isJSONRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get("csrf_token"); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
