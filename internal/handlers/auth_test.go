package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunorainer/IMAGEM-GSAU-FZ/internal/models"
)

func seedUser(t *testing.T, ts *testServer, email, password string, active bool) models.User {
	t.Helper()
	user := models.User{
		Email:    email,
		Name:     "Bruno",
		Role:     models.RoleAdmin,
		IsActive: active,
	}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, ts.db.Create(&user).Error)
	return user
}

func TestLogin_Success(t *testing.T) {
	ts := newTestServer(t)
	user := seedUser(t, ts, "admin@example.com", "correct-horse-1", true)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "admin@example.com", "password": "correct-horse-1"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	loggedIn := body["user"].(map[string]interface{})
	assert.Equal(t, user.ID, loggedIn["id"])
	assert.NotContains(t, loggedIn, "password")

	var stored models.User
	require.NoError(t, ts.db.First(&stored, "id = ?", user.ID).Error)
	assert.NotNil(t, stored.LastLogin, "login records last_login")

	var tokenCount int64
	require.NoError(t, ts.db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&tokenCount).Error)
	assert.Equal(t, int64(1), tokenCount)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "admin@example.com", "correct-horse-1", true)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "admin@example.com", "password": "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "nobody@example.com", "password": "whatever1"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InactiveAccount(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "former@example.com", "correct-horse-1", false)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "former@example.com", "password": "correct-horse-1"}))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRefreshToken_RotatesAndRevokesOld(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "admin@example.com", "correct-horse-1", true)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "admin@example.com", "password": "correct-horse-1"}))
	require.Equal(t, http.StatusOK, w.Code)
	oldRefresh := decodeBody(t, w)["refreshToken"].(string)

	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/refresh-token",
		gin.H{"refreshToken": oldRefresh}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["accessToken"])
	newRefresh := body["refreshToken"].(string)
	assert.NotEqual(t, oldRefresh, newRefresh)

	// The rotated-out token is spent
	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/refresh-token",
		gin.H{"refreshToken": oldRefresh}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The replacement still works
	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/refresh-token",
		gin.H{"refreshToken": newRefresh}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	ts := newTestServer(t)
	seedUser(t, ts, "admin@example.com", "correct-horse-1", true)

	w := ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/login",
		gin.H{"email": "admin@example.com", "password": "correct-horse-1"}))
	require.Equal(t, http.StatusOK, w.Code)
	refresh := decodeBody(t, w)["refreshToken"].(string)

	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/logout", gin.H{"refreshToken": refresh}))
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": refresh}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Logging out twice is harmless
	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/auth/logout", gin.H{"refreshToken": refresh}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateUser_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	token := ts.createAdmin(t)

	w := ts.do(t, withToken(jsonRequest(t, http.MethodPost, "/api/users", gin.H{
		"email":    "second@example.com",
		"password": "long-enough-1",
		"name":     "Second Admin",
		"role":     "admin",
	}), token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate email is rejected
	w = ts.do(t, withToken(jsonRequest(t, http.MethodPost, "/api/users", gin.H{
		"email":    "second@example.com",
		"password": "long-enough-1",
		"name":     "Second Admin",
		"role":     "admin",
	}), token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No session at all
	w = ts.do(t, jsonRequest(t, http.MethodPost, "/api/users", gin.H{
		"email":    "third@example.com",
		"password": "long-enough-1",
		"name":     "Third",
		"role":     "admin",
	}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
