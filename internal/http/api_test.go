package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apphttp "user-service/internal/http"
	"user-service/internal/observability"
	"user-service/internal/repository/sqlite"
	"user-service/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := apphttp.NewHandler(
		service.NewUserService(repo, logger),
		repo.Ping,
		observability.NewMetrics(),
		logger,
	)
	handler.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func johnBody() map[string]any {
	return map[string]any{
		"username":  "johndoe",
		"email":     "john@example.com",
		"firstName": "John",
		"lastName":  "Doe",
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestCreateUser(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["username"] != "johndoe" || body["email"] != "john@example.com" ||
		body["firstName"] != "John" || body["lastName"] != "Doe" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["id"] == nil || body["createdAt"] == nil {
		t.Fatalf("expected id and createdAt to be set, got %v", body)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody()); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}

	w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody())
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "Username already exists") {
		t.Fatalf("expected duplicate-username message, got %q", msg)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody()); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}

	second := johnBody()
	second["username"] = "johnny"
	w := doRequest(router, http.MethodPost, "/api/v1/users", second)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	msg, _ := decodeBody(t, w)["message"].(string)
	if !strings.Contains(msg, "Email already exists") {
		t.Fatalf("expected duplicate-email message, got %q", msg)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/users", map[string]any{
		"email": "not-an-email",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	fields, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors map, got %v", body)
	}
	if fields["username"] == nil {
		t.Fatalf("expected username error, got %v", fields)
	}
	if fields["email"] == nil {
		t.Fatalf("expected email error, got %v", fields)
	}
}

func TestListUsers(t *testing.T) {
	router := newTestRouter(t)

	for i := 1; i <= 2; i++ {
		body := map[string]any{
			"username": fmt.Sprintf("user%d", i),
			"email":    fmt.Sprintf("user%d@example.com", i),
		}
		if w := doRequest(router, http.MethodPost, "/api/v1/users", body); w.Code != http.StatusCreated {
			t.Fatalf("create user%d: expected 201, got %d", i, w.Code)
		}
	}

	w := doRequest(router, http.MethodGet, "/api/v1/users", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var users []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0]["username"] != "user1" || users[1]["username"] != "user2" {
		t.Fatalf("unexpected order: %v", users)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/users/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	msg, _ := decodeBody(t, w)["message"].(string)
	if !strings.Contains(msg, "User not found") {
		t.Fatalf("expected not-found message, got %q", msg)
	}
}

func TestGetUser_InvalidID(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/users/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetUserByUsername(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody()); w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", w.Code)
	}

	w := doRequest(router, http.MethodGet, "/api/v1/users/username/johndoe", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decodeBody(t, w)["email"] != "john@example.com" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/api/v1/users/username/nobody", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateUser(t *testing.T) {
	router := newTestRouter(t)

	created := doRequest(router, http.MethodPost, "/api/v1/users", johnBody())
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", created.Code)
	}
	id := decodeBody(t, created)["id"].(float64)

	update := johnBody()
	update["lastName"] = "Smith"
	w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", int64(id)), update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["lastName"] != "Smith" {
		t.Fatalf("expected lastName Smith, got %v", body["lastName"])
	}
	if body["email"] != "john@example.com" {
		t.Fatalf("expected email unchanged, got %v", body["email"])
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodPut, "/api/v1/users/999", johnBody())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdateUser_DuplicateUsername(t *testing.T) {
	router := newTestRouter(t)

	if w := doRequest(router, http.MethodPost, "/api/v1/users", johnBody()); w.Code != http.StatusCreated {
		t.Fatalf("create john: expected 201, got %d", w.Code)
	}
	jane := doRequest(router, http.MethodPost, "/api/v1/users", map[string]any{
		"username": "janedoe",
		"email":    "jane@example.com",
	})
	if jane.Code != http.StatusCreated {
		t.Fatalf("create jane: expected 201, got %d", jane.Code)
	}
	janeID := decodeBody(t, jane)["id"].(float64)

	w := doRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", int64(janeID)), map[string]any{
		"username": "johndoe",
		"email":    "jane@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteUser(t *testing.T) {
	router := newTestRouter(t)

	created := doRequest(router, http.MethodPost, "/api/v1/users", johnBody())
	if created.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", created.Code)
	}
	id := int64(decodeBody(t, created)["id"].(float64))

	w := doRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodDelete, "/api/v1/users/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		w := doRequest(router, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, w.Code)
		}
		if decodeBody(t, w)["status"] != "ok" {
			t.Fatalf("GET %s: unexpected body %s", path, w.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatal("expected prometheus output")
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/openapi.yaml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "openapi:") {
		t.Fatal("expected an openapi document")
	}
}
