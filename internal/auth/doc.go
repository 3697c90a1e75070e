// Package auth provides credential verification, password hashing, and
// token issuance for the application.
//
// Two front-ends share the same core:
//   - a stateless JSON API authenticated by signed tokens presented as
//     "Authorization: jwt <token>" (note the non-standard scheme)
//   - a web flow using session cookies and flash messages
//
// # Configuration
//
//	JWT_SECRET=<signing secret>    # Required for token issuance
//	AUTH_TOKEN_LIFETIME=720h       # Token validity (30 days default)
//	AUTH_BCRYPT_COST=10            # bcrypt cost factor
//	SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	SESSION_LIFETIME=24h           # Web session duration
//	SECURE_COOKIES=true            # HTTPS-only cookies
//
// # Usage
//
// Initialize in entrypoint:
//
//	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)
//	service := auth.NewService(userRepo, issuer, cfg.Auth)
//	gate := auth.NewMiddleware(service)
//	api.Use(gate.RequireToken())
//
// Extract the resolved identity in handlers:
//
//	user := auth.GetUser(c)
package auth
