package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-chat-service/internal/auth"
	"channel-chat-service/internal/mocks"
	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/register", handler.Register)
	r.POST("/api/login", handler.Login)
	r.GET("/api/user/:userID", handler.GetUser)
	r.GET("/api/session/:sessionID", handler.GetSession)
	return r
}

func newUserHandler(users *mocks.UserRepositoryMock, sessions *mocks.SessionRepositoryMock) *UserHandler {
	resolver := session.NewResolver(sessions, users, 0)
	return NewUserHandler(users, sessions, resolver, nil)
}

func TestRegisterSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("CreateUser", mock.Anything, "alice", mock.Anything, "").
		Return(models.User{ID: "u1", Username: "alice", PermissionLevel: models.PermissionMember}, nil).Once()

	router := setupUserRouter(newUserHandler(users, new(mocks.SessionRepositoryMock)))

	body := bytes.NewBufferString(`{"username":"alice","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "alice", resp["username"])
	assert.Equal(t, "u1", resp["id"])

	users.AssertExpectations(t)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"username with spaces", `{"username":"al ice","password":"secret123"}`},
		{"username with symbols", `{"username":"alice!","password":"secret123"}`},
		{"short password", `{"username":"alice","password":"abc"}`},
		{"missing password", `{"username":"alice"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := new(mocks.UserRepositoryMock)
			router := setupUserRouter(newUserHandler(users, new(mocks.SessionRepositoryMock)))

			req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterUsernameTaken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("CreateUser", mock.Anything, "alice", mock.Anything, "").
		Return(models.User{}, repositories.ErrUsernameTaken).Once()

	router := setupUserRouter(newUserHandler(users, new(mocks.SessionRepositoryMock)))

	body := bytes.NewBufferString(`{"username":"alice","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginIssuesSession(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	users := new(mocks.UserRepositoryMock)
	sessions := new(mocks.SessionRepositoryMock)
	users.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil).Once()
	sessions.On("CreateSession", mock.Anything, "u1").
		Return(models.Session{ID: "tok", UserID: "u1", CreatedAt: time.Now()}, nil).Once()

	router := setupUserRouter(newUserHandler(users, sessions))

	body := bytes.NewBufferString(`{"username":"alice","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok", resp["sessionID"])

	sessions.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	users := new(mocks.UserRepositoryMock)
	sessions := new(mocks.SessionRepositoryMock)
	users.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil).Once()

	router := setupUserRouter(newUserHandler(users, sessions))

	body := bytes.NewBufferString(`{"username":"alice","password":"nope-nope"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	sessions.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestLoginUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("GetUserByUsername", mock.Anything, "ghost").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	router := setupUserRouter(newUserHandler(users, new(mocks.SessionRepositoryMock)))

	body := bytes.NewBufferString(`{"username":"ghost","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUserStripsCredentials(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("GetUser", mock.Anything, "u1").
		Return(models.User{
			ID:              "u1",
			Username:        "alice",
			PermissionLevel: models.PermissionAdmin,
			PasswordHash:    []byte("hash"),
			Salt:            "salt",
		}, nil).Once()

	router := setupUserRouter(newUserHandler(users, new(mocks.SessionRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/api/user/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()
	assert.NotContains(t, raw, "hash")
	assert.NotContains(t, raw, "salt")

	var resp struct {
		User models.SanitizedUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, models.PermissionAdmin, resp.User.PermissionLevel)
}

func TestGetSessionResolvesUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	sessions := new(mocks.SessionRepositoryMock)
	sessions.On("GetSession", mock.Anything, "tok").
		Return(models.Session{ID: "tok", UserID: "u1", CreatedAt: time.Now()}, nil).Once()
	users.On("GetUser", mock.Anything, "u1").
		Return(models.User{ID: "u1", Username: "alice"}, nil).Once()

	router := setupUserRouter(newUserHandler(users, sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/session/tok", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User models.SanitizedUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.User.ID)
}

func TestGetSessionMiss(t *testing.T) {
	sessions := new(mocks.SessionRepositoryMock)
	sessions.On("GetSession", mock.Anything, "gone").
		Return(models.Session{}, repositories.ErrSessionNotFound).Once()

	router := setupUserRouter(newUserHandler(new(mocks.UserRepositoryMock), sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/session/gone", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
