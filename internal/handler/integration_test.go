package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck-go/internal/middleware"
	"github.com/taskdeck/taskdeck-go/internal/model"
	"github.com/taskdeck/taskdeck-go/internal/repository"
	"github.com/taskdeck/taskdeck-go/internal/service"
	"github.com/taskdeck/taskdeck-go/internal/token"
)

// newTestServer wires the full router against a real MySQL instance. Tests
// using it are skipped unless TASKDECK_TEST_DSN is set.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := os.Getenv("TASKDECK_TEST_DSN")
	if dsn == "" {
		t.Skip("TASKDECK_TEST_DSN not set, skipping integration test")
	}

	if err := repository.RunMigrations(dsn); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens := token.NewService("test-secret", time.Hour)
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	authHandler := NewAuthHandler(service.NewAuthService(userRepo, tokens))
	taskHandler := NewTaskHandler(service.NewTaskService(taskRepo))

	r := chi.NewRouter()
	r.Post("/auth/signup", authHandler.HandleSignup)
	r.Post("/auth/login", authHandler.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(tokens, userRepo))
		r.Get("/auth/me", authHandler.HandleMe)
		r.Get("/tasks", taskHandler.HandleList)
		r.Post("/tasks", taskHandler.HandleCreate)
		r.Put("/tasks/{id}", taskHandler.HandleUpdate)
		r.Delete("/tasks/{id}", taskHandler.HandleDelete)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp, out.Bytes()
}

func signup(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/signup", "", map[string]string{
		"email": email, "password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup status = %d, body %s", resp.StatusCode, body)
	}

	var auth model.AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		t.Fatalf("decoding signup response: %v", err)
	}
	if auth.Token == "" {
		t.Fatal("signup returned empty token")
	}
	return auth.Token
}

func uniqueEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8])
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	email := uniqueEmail()

	tok := signup(t, srv, email, "password123")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/auth/signup", "", map[string]string{
		"email": email, "password": "password123",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want 400; body %s", resp.StatusCode, body)
	}

	// The first user's token stays usable.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/auth/me", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("me with original token status = %d, want 200", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	email := uniqueEmail()
	signup(t, srv, email, "password123")

	wrongPass, bodyA := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email": email, "password": "nope",
	})
	unknownUser, bodyB := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email": uniqueEmail(), "password": "nope",
	})

	if wrongPass.StatusCode != http.StatusUnauthorized || unknownUser.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login failures = %d/%d, want 401/401", wrongPass.StatusCode, unknownUser.StatusCode)
	}
	// Identical bodies: the response must not reveal whether the email exists.
	if string(bodyA) != string(bodyB) {
		t.Errorf("login failure bodies differ: %s vs %s", bodyA, bodyB)
	}
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	tok := signup(t, srv, uniqueEmail(), "password123")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/tasks", tok, map[string]any{
		"title": "buy milk", "description": "two liters",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var created model.Task
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decoding created task: %v", err)
	}
	if created.ID == 0 || created.Title != "buy milk" || created.Completed {
		t.Fatalf("unexpected created task: %+v", created)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/tasks", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var tasks []model.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		t.Fatalf("decoding task list: %v", err)
	}
	seen := 0
	for _, task := range tasks {
		if task.ID == created.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("created task appears %d times in list, want 1", seen)
	}

	// Partial update: only completed changes, title and description stay.
	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/tasks/%d", srv.URL, created.ID), tok, map[string]any{
		"completed": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, body)
	}
	var updated model.Task
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decoding updated task: %v", err)
	}
	if !updated.Completed || updated.Title != "buy milk" || updated.Description != "two liters" {
		t.Fatalf("partial update touched other fields: %+v", updated)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/tasks/%d", srv.URL, created.ID), tok, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/tasks/%d", srv.URL, created.ID), tok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleting a deleted task status = %d, want 404", resp.StatusCode)
	}
}

func TestTaskOwnershipScoping(t *testing.T) {
	srv := newTestServer(t)
	ownerTok := signup(t, srv, uniqueEmail(), "password123")
	otherTok := signup(t, srv, uniqueEmail(), "password123")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/tasks", ownerTok, map[string]any{"title": "private"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var task model.Task
	if err := json.Unmarshal(body, &task); err != nil {
		t.Fatalf("decoding task: %v", err)
	}

	// A foreign task is invisible to update but forbidden to delete.
	resp, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/tasks/%d", srv.URL, task.ID), otherTok, map[string]any{"title": "stolen"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign update status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/tasks/%d", srv.URL, task.ID), otherTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/tasks", otherTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var otherTasks []model.Task
	if err := json.Unmarshal(body, &otherTasks); err != nil {
		t.Fatalf("decoding task list: %v", err)
	}
	for _, got := range otherTasks {
		if got.ID == task.ID {
			t.Error("foreign task leaked into another user's list")
		}
	}
}
