package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/identity/internal/auth"
	"github.com/mrlokans/identity/internal/response"
)

// respondValidationError turns a gin binding failure into a 400 envelope with
// field-level messages.
func respondValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = validationMessage(fe)
		}
		response.FieldErrors(c, http.StatusBadRequest, "invalid parameters", fields)
		return
	}
	response.Error(c, http.StatusBadRequest, "invalid request body")
}

// validationMessage maps a validator failure to a human-readable message.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "must match " + strings.ToLower(fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// respondAuthError maps authenticator failures to envelope responses.
// Store and integrity errors are logged and masked behind a generic 500.
func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		response.Error(c, http.StatusForbidden, auth.ErrEmailTaken.Error())
	case errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrResetTokenInvalid):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		respondInternalError(c, err, "auth")
	}
}

// respondInternalError logs the error and sends a generic 500 envelope.
// The underlying error is never exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	response.Error(c, http.StatusInternalServerError, "internal server error")
}
