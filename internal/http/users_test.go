package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/identity/internal/auth"
	"github.com/mrlokans/identity/internal/config"
	"github.com/mrlokans/identity/internal/database"
	"github.com/mrlokans/identity/internal/database/users"
)

type envelope struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     *struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func setupTestServer(t *testing.T) (*gin.Engine, *auth.Service, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_api_" + t.Name() + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	authCfg := config.Auth{BcryptCost: bcrypt.MinCost}
	repo := users.NewRepository(db.DB, authCfg)
	issuer := auth.NewTokenIssuer("test-secret", 0)
	service := auth.NewService(repo, issuer, authCfg)

	router := NewRouter(RouterConfig{
		Database:    db,
		AuthService: service,
		UserRepo:    repo,
		Version:     "test",
	})

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return router, service, cleanup
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "jwt "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	assert.NotZero(t, env.Timestamp, "every response carries a timestamp")
	return w, env
}

func registerAndToken(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w, env := doJSON(t, router, http.MethodPost, "/register", "", gin.H{
		"email":           email,
		"password":        "pass1234",
		"confirmPassword": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestAPI_RegisterLoginProfile(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	token := registerAndToken(t, router, "user@example.com")

	// The registration token opens the gate directly
	w, env := doJSON(t, router, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		Email  string `json:"email"`
		Avatar string `json:"avatar"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "user@example.com", profile.Email)
	assert.Contains(t, profile.Avatar, "gravatar.com/avatar/")

	// Login yields a fresh, equally valid token
	w, env = doJSON(t, router, http.MethodPost, "/login", "", gin.H{
		"email":    "user@example.com",
		"password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	w, _ = doJSON(t, router, http.MethodGet, "/profile", data.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_Login_InvalidCredentials(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	registerAndToken(t, router, "user@example.com")

	// Wrong password and unknown account must be indistinguishable
	for _, creds := range []gin.H{
		{"email": "user@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "pass1234"},
	} {
		w, env := doJSON(t, router, http.MethodPost, "/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid email or password", env.Error.Message)
	}
}

func TestAPI_Login_Validation(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name    string
		payload gin.H
		field   string
	}{
		{"missing email", gin.H{"password": "pass1234"}, "email"},
		{"invalid email", gin.H{"email": "not-an-email", "password": "pass1234"}, "email"},
		{"missing password", gin.H{"email": "user@example.com"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, router, http.MethodPost, "/login", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestAPI_Register_Validation(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name    string
		payload gin.H
		field   string
	}{
		{
			"password too short",
			gin.H{"email": "user@example.com", "password": "abc", "confirmPassword": "abc"},
			"password",
		},
		{
			"confirmation mismatch",
			gin.H{"email": "user@example.com", "password": "abcd", "confirmPassword": "abce"},
			"confirmpassword",
		},
		{
			"invalid email",
			gin.H{"email": "nope", "password": "pass1234", "confirmPassword": "pass1234"},
			"email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, router, http.MethodPost, "/register", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, env.Error)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestAPI_Register_EmailTaken(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	registerAndToken(t, router, "user@example.com")

	w, env := doJSON(t, router, http.MethodPost, "/register", "", gin.H{
		"email":           "USER@example.com",
		"password":        "pass1234",
		"confirmPassword": "pass1234",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "email already taken", env.Error.Message)
}

func TestAPI_Profile_Unauthorized(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no token")
}

func TestAPI_UpdateProfile(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	token := registerAndToken(t, router, "user@example.com")

	w, env := doJSON(t, router, http.MethodPut, "/profile", token, gin.H{
		"name":    "Test User",
		"gender":  "other",
		"website": "https://example.com",
		"picture": "https://example.com/me.png",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var profile struct {
		Name    string `json:"name"`
		Gender  string `json:"gender"`
		Website string `json:"website"`
		Avatar  string `json:"avatar"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Test User", profile.Name)
	assert.Equal(t, "other", profile.Gender)
	assert.Equal(t, "https://example.com", profile.Website)
	assert.Equal(t, "https://example.com/me.png", profile.Avatar)

	t.Run("invalid website", func(t *testing.T) {
		w, env := doJSON(t, router, http.MethodPut, "/profile", token, gin.H{
			"website": "not a url",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Fields, "website")
	})

	t.Run("login still works after profile save", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/login", "", gin.H{
			"email":    "user@example.com",
			"password": "pass1234",
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAPI_ChangePassword(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	token := registerAndToken(t, router, "user@example.com")

	t.Run("wrong old password", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/profile/password", token, gin.H{
			"oldPassword":     "wrong",
			"password":        "newpass123",
			"confirmPassword": "newpass123",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	w, _ := doJSON(t, router, http.MethodPost, "/profile/password", token, gin.H{
		"oldPassword":     "pass1234",
		"password":        "newpass123",
		"confirmPassword": "newpass123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/login", "", gin.H{
		"email":    "user@example.com",
		"password": "newpass123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/login", "", gin.H{
		"email":    "user@example.com",
		"password": "pass1234",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_PasswordResetFlow(t *testing.T) {
	router, service, cleanup := setupTestServer(t)
	defer cleanup()

	mail := &recordingMailer{}
	service.SetResetMailer(mail)

	registerAndToken(t, router, "user@example.com")

	// Unknown addresses answer 200 so the endpoint cannot be used to probe
	// for accounts.
	w, _ := doJSON(t, router, http.MethodPost, "/forgot", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mail.tokens)

	w, _ = doJSON(t, router, http.MethodPost, "/forgot", "", gin.H{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mail.tokens, 1)

	t.Run("bad token", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/reset/does-not-exist", "", gin.H{
			"password":        "newpass123",
			"confirmPassword": "newpass123",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w, _ = doJSON(t, router, http.MethodPost, "/reset/"+mail.tokens[0], "", gin.H{
		"password":        "newpass123",
		"confirmPassword": "newpass123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/login", "", gin.H{
		"email":    "user@example.com",
		"password": "newpass123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("token is single-use", func(t *testing.T) {
		w, _ := doJSON(t, router, http.MethodPost, "/reset/"+mail.tokens[0], "", gin.H{
			"password":        "another123",
			"confirmPassword": "another123",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAPI_Health(t *testing.T) {
	router, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

// recordingMailer captures enqueued reset emails instead of sending them.
type recordingMailer struct {
	emails []string
	tokens []string
}

func (m *recordingMailer) EnqueueResetEmail(email, token string) error {
	m.emails = append(m.emails, email)
	m.tokens = append(m.tokens, token)
	return nil
}
