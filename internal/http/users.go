package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/identity/internal/auth"
	"github.com/mrlokans/identity/internal/database/users"
	"github.com/mrlokans/identity/internal/response"
)

// UserController handles the stateless JSON API: login, registration,
// profile, and the password reset flow.
type UserController struct {
	service *auth.Service
	users   *users.Repository
}

// NewUserController creates a new user API controller.
func NewUserController(service *auth.Service, repo *users.Repository) *UserController {
	return &UserController{service: service, users: repo}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=4"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login verifies credentials and returns a signed token.
func (uc *UserController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	token, err := uc.service.Login(req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	response.Data(c, http.StatusOK, tokenResponse{Token: token})
}

// Register creates an account and returns a token identically to Login.
func (uc *UserController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	token, err := uc.service.Register(req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	response.Data(c, http.StatusOK, tokenResponse{Token: token})
}

// Profile returns the public profile of the authenticated user.
func (uc *UserController) Profile(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "authentication required")
		return
	}

	response.Data(c, http.StatusOK, user.Profile())
}

type profileUpdateRequest struct {
	Name     string `json:"name" binding:"max=255"`
	Gender   string `json:"gender" binding:"max=32"`
	Location string `json:"location" binding:"max=255"`
	Website  string `json:"website" binding:"omitempty,url"`
	Picture  string `json:"picture" binding:"omitempty,url"`
}

// UpdateProfile updates display attributes of the authenticated user.
// The password hash is untouched by this path.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	updated, err := uc.users.UpdateProfile(user.ID, users.ProfileUpdate{
		Name:     req.Name,
		Gender:   req.Gender,
		Location: req.Location,
		Website:  req.Website,
		Picture:  req.Picture,
	})
	if err != nil {
		respondInternalError(c, err, "update profile")
		return
	}

	response.Data(c, http.StatusOK, updated.Profile())
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	Password        string `json:"password" binding:"required,min=4"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// ChangePassword sets a new password for the authenticated user after
// verifying the old one. The new password is rehashed exactly once.
func (uc *UserController) ChangePassword(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := uc.users.ChangePassword(user.ID, req.OldPassword, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			response.Error(c, http.StatusUnauthorized, "invalid password")
			return
		}
		respondAuthError(c, err)
		return
	}

	response.NoData(c, http.StatusOK)
}

type forgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Forgot starts the password reset flow. The response does not reveal
// whether an account exists for the address.
func (uc *UserController) Forgot(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := uc.service.RequestPasswordReset(req.Email); err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			respondInternalError(c, err, "password reset request")
			return
		}
	}

	response.NoData(c, http.StatusOK)
}

type resetRequest struct {
	Password        string `json:"password" binding:"required,min=4"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// Reset consumes a reset token from the URL and sets the new password.
func (uc *UserController) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if err := uc.service.ResetPassword(c.Param("token"), req.Password, req.ConfirmPassword); err != nil {
		respondAuthError(c, err)
		return
	}

	response.NoData(c, http.StatusOK)
}
