package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"socialhub/internal/auth"
	"socialhub/internal/database"
	"socialhub/internal/handlers"
	"socialhub/internal/middleware"
	"socialhub/internal/models"
	"socialhub/internal/repositories"
	"socialhub/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp builds the full route table over a fresh in-memory SQLite database.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.Key{ID: "primary", Secret: []byte("test_jwt_secret")}, nil, 0)
	require.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	messageRepo := repositories.NewGORMMessageRepository(db)

	authService := services.NewAuthService(userRepo, auth.NewBcryptHasher(), tokens)
	messageService := services.NewMessageService(messageRepo, userRepo, nil, zerolog.Nop())

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(zerolog.Nop())})
	gate := middleware.AuthRequired(tokens, zerolog.Nop())

	handlers.NewAuthHandler(authService).RegisterRoutes(app, gate)
	handlers.NewMessageHandler(messageService).RegisterRoutes(app, gate)
	handlers.NewHealthHandler(map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}).RegisterRoutes(app)

	return app
}

// call sends a request and returns the status code and raw body.
func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func callMap(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	code, raw := call(t, app, method, path, token, body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return code, out
}

func register(t *testing.T, app *fiber.App, username, password string) {
	t.Helper()
	code, body := callMap(t, app, http.MethodPost, "/auth", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, "User created successfully", body["success"])
}

func login(t *testing.T, app *fiber.App, username, password string) (string, uint) {
	t.Helper()
	code, body := callMap(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, username, body["username"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token, uint(body["id"].(float64))
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	register(t, app, "alice", "pw1")

	// Duplicate username is reported distinctly
	code, body := callMap(t, app, http.MethodPost, "/auth", "", map[string]string{
		"username": "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username must be unique.", body["error"])

	token, id := login(t, app, "alice", "pw1")
	assert.NotZero(t, id)

	// The token identifies alice
	code, body = callMap(t, app, http.MethodGet, "/auth/auth", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, float64(id), body["id"])

	// Bearer prefix is accepted as well
	code, _ = callMap(t, app, http.MethodGet, "/auth/auth", "Bearer "+token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthLoginFailures(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")

	code, body := callMap(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "pw1",
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User doesn't exist", body["error"])

	code, body = callMap(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Wrong password", body["error"])
}

func TestAuthRegisterValidation(t *testing.T) {
	app := setupApp(t)

	code, body := callMap(t, app, http.MethodPost, "/auth", "", map[string]string{"password": "pw"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "username is required", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthEmptyPasswordIsAccepted(t *testing.T) {
	app := setupApp(t)

	register(t, app, "blank", "")
	token, _ := login(t, app, "blank", "")
	assert.NotEmpty(t, token)
}

func TestAuthTokenRequired(t *testing.T) {
	app := setupApp(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/auth/auth"},
		{http.MethodPut, "/auth/changepassword"},
		{http.MethodPost, "/auth/sendmessage"},
		{http.MethodGet, "/auth/receivedmessages"},
		{http.MethodGet, "/auth/sentmessages"},
	}
	for _, r := range routes {
		code, body := callMap(t, app, r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, r.path)
		assert.Equal(t, "missing token", body["error"], r.path)

		code, body = callMap(t, app, r.method, r.path, "invalid.token.string", nil)
		assert.Equal(t, http.StatusUnauthorized, code, r.path)
		assert.Equal(t, "invalid token", body["error"], r.path)
	}
}

func TestChangePassword(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "old")
	token, _ := login(t, app, "alice", "old")

	code, body := callMap(t, app, http.MethodPut, "/auth/changepassword", token, map[string]string{
		"oldPassword": "nope",
		"newPassword": "new",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Wrong password combination", body["error"])

	code, body = callMap(t, app, http.MethodPut, "/auth/changepassword", token, map[string]string{
		"oldPassword": "old",
		"newPassword": "new",
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Password updated successfully", body["success"])

	code, _ = callMap(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice",
		"password": "old",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	login(t, app, "alice", "new")

	// Tokens issued before the change stay valid
	code, _ = callMap(t, app, http.MethodGet, "/auth/auth", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestBasicInfo(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")
	_, id := login(t, app, "alice", "pw1")

	code, raw := call(t, app, http.MethodGet, fmt.Sprintf("/auth/basicinfo/%d", id), "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(raw), "password")
	var info models.UserIdentity
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, models.UserIdentity{ID: id, Username: "alice"}, info)

	code, body := callMap(t, app, http.MethodGet, "/auth/basicinfo/999", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["error"])

	code, _ = callMap(t, app, http.MethodGet, "/auth/basicinfo/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func listMessages(t *testing.T, app *fiber.App, path, token string) []models.MessageView {
	t.Helper()
	code, raw := call(t, app, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	var views []models.MessageView
	require.NoError(t, json.Unmarshal(raw, &views))
	require.NotNil(t, views, "listing must be an array, not null")
	return views
}

func TestMessagingScenario(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")
	register(t, app, "bob", "pw2")
	aliceToken, aliceID := login(t, app, "alice", "pw1")
	bobToken, bobID := login(t, app, "bob", "pw2")

	code, body := callMap(t, app, http.MethodPost, "/auth/sendmessage", aliceToken, map[string]interface{}{
		"receiverId": bobID,
		"message":    "hi",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Message sent successfully", body["success"])

	received := listMessages(t, app, "/auth/receivedmessages", bobToken)
	require.Len(t, received, 1)
	assert.Equal(t, "hi", received[0].Message)
	require.NotNil(t, received[0].Sender)
	assert.Equal(t, models.UserIdentity{ID: aliceID, Username: "alice"}, *received[0].Sender)

	sent := listMessages(t, app, "/auth/sentmessages", aliceToken)
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Receiver)
	assert.Equal(t, models.UserIdentity{ID: bobID, Username: "bob"}, *sent[0].Receiver)

	assert.Empty(t, listMessages(t, app, "/auth/receivedmessages", aliceToken))
	assert.Empty(t, listMessages(t, app, "/auth/sentmessages", bobToken))

	// Client-supplied ids never widen the scope of a listing
	scoped := listMessages(t, app, fmt.Sprintf("/auth/receivedmessages?receiverId=%d&userId=%d", bobID, bobID), aliceToken)
	assert.Empty(t, scoped)
}

func TestSendMessageReceiverNotFound(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")
	token, _ := login(t, app, "alice", "pw1")

	bodies := []map[string]interface{}{
		{"receiverId": 999, "message": "hello?"},
		{"receiverId": 0, "message": "hello?"},
		{"receiverId": -1, "message": "hello?"},
		{"message": "hello?"},
	}
	for _, body := range bodies {
		code, resp := callMap(t, app, http.MethodPost, "/auth/sendmessage", token, body)
		assert.Equal(t, http.StatusNotFound, code, body)
		assert.Equal(t, "Receiver not found", resp["error"], body)
	}

	assert.Empty(t, listMessages(t, app, "/auth/sentmessages", token))
}

func TestSendMessageEmptyBody(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")
	register(t, app, "bob", "pw2")
	aliceToken, _ := login(t, app, "alice", "pw1")
	bobToken, bobID := login(t, app, "bob", "pw2")

	code, body := callMap(t, app, http.MethodPost, "/auth/sendmessage", aliceToken, map[string]interface{}{
		"receiverId": bobID,
		"message":    "",
	})
	require.Equal(t, http.StatusOK, code, body)

	received := listMessages(t, app, "/auth/receivedmessages", bobToken)
	require.Len(t, received, 1)
	assert.Equal(t, "", received[0].Message)
}

func TestSendMessageValidation(t *testing.T) {
	app := setupApp(t)
	register(t, app, "alice", "pw1")
	register(t, app, "bob", "pw2")
	token, _ := login(t, app, "alice", "pw1")
	_, bobID := login(t, app, "bob", "pw2")

	code, body := callMap(t, app, http.MethodPost, "/auth/sendmessage", token, map[string]interface{}{
		"receiverId": bobID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "message is required", body["error"])

	assert.Empty(t, listMessages(t, app, "/auth/sentmessages", token))
}

func TestHealthEndpoints(t *testing.T) {
	app := setupApp(t)

	code, body := callMap(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = callMap(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, raw := call(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestReadinessDegraded(t *testing.T) {
	app := fiber.New()
	handlers.NewHealthHandler(map[string]handlers.Check{
		"broker": func(context.Context) error { return errors.New("connection refused") },
	}).RegisterRoutes(app)

	code, body := callMap(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
}
