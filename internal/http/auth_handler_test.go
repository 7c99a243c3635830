package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mernapp-auth/internal/domain"
	"mernapp-auth/internal/identity"
	"mernapp-auth/internal/repository"
	"mernapp-auth/internal/service"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.SubjectID]; exists {
		return repository.ErrDuplicateSubject
	}
	m.users[user.SubjectID] = user
	return nil
}

func (m *memUserRepo) GetBySubject(_ context.Context, subject string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[subject]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func setupAuthRouter(repo repository.UserRepository, provider *identity.LocalProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewAuthService(zap.NewNop(), repo, provider, provider)
	h := NewAuthHandler(zap.NewNop(), svc)
	return NewRouter(zap.NewNop(), h, provider, "*")
}

func performRequest(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHelloRoute(t *testing.T) {
	r := setupAuthRouter(newMemUserRepo(), identity.NewLocalProvider("test-secret"))

	rec := performRequest(r, http.MethodGet, "/hello", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSignupEndpoint_CreatesUser(t *testing.T) {
	repo := newMemUserRepo()
	r := setupAuthRouter(repo, identity.NewLocalProvider("test-secret"))

	rec := performRequest(r, http.MethodPost, "/users/signup", map[string]string{
		"email":    "new@example.com",
		"password": "hunter22",
		"name":     "New User",
	}, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.UID == "" {
		t.Fatalf("expected uid in response, got %s", rec.Body.String())
	}
	if _, err := repo.GetBySubject(context.Background(), resp.UID); err != nil {
		t.Fatalf("local record missing after signup: %v", err)
	}
}

func TestSignupEndpoint_DuplicateEmailRejected(t *testing.T) {
	repo := newMemUserRepo()
	r := setupAuthRouter(repo, identity.NewLocalProvider("test-secret"))

	body := map[string]string{"email": "dup@example.com", "password": "hunter22", "name": "Dup"}
	if rec := performRequest(r, http.MethodPost, "/users/signup", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", rec.Code)
	}
	rec := performRequest(r, http.MethodPost, "/users/signup", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: expected 400, got %d", rec.Code)
	}
}

func TestSignupEndpoint_WeakPasswordRejected(t *testing.T) {
	r := setupAuthRouter(newMemUserRepo(), identity.NewLocalProvider("test-secret"))

	rec := performRequest(r, http.MethodPost, "/users/signup", map[string]string{
		"email":    "weak@example.com",
		"password": "123",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoginEndpoint_UserNotProvisioned(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	// Token válido pero sin registro local: el login no debe crear.
	token, err := provider.MintToken("ghost", "ghost@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	rec := performRequest(r, http.MethodPost, "/users/login", map[string]string{"idToken": token}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.users) != 0 {
		t.Fatalf("login must not create records, got %d", len(repo.users))
	}
}

func TestLoginEndpoint_ReturnsProjection(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	signup := performRequest(r, http.MethodPost, "/users/signup", map[string]string{
		"email":    "login@example.com",
		"password": "hunter22",
		"name":     "Login User",
	}, nil)
	if signup.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", signup.Code)
	}
	token, err := provider.SignIn(context.Background(), "login@example.com", "hunter22")
	if err != nil {
		t.Fatalf("provider sign-in: %v", err)
	}

	rec := performRequest(r, http.MethodPost, "/users/login", map[string]string{"idToken": token}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			UID   string `json:"uid"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.User.Email != "login@example.com" || resp.User.Name != "Login User" {
		t.Fatalf("unexpected projection: %+v", resp.User)
	}
}

func TestLoginEndpoint_AcceptsBearerHeader(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	performRequest(r, http.MethodPost, "/users/signup", map[string]string{
		"email":    "hdr@example.com",
		"password": "hunter22",
	}, nil)
	token, err := provider.SignIn(context.Background(), "hdr@example.com", "hunter22")
	if err != nil {
		t.Fatalf("provider sign-in: %v", err)
	}

	rec := performRequest(r, http.MethodPost, "/users/login", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGoogleSignInEndpoint_SelfProvisions(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	token, err := provider.MintToken("g-sub-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	first := performRequest(r, http.MethodPost, "/users/google-signin", map[string]string{"idToken": token}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first sign-in: expected 200, got %d: %s", first.Code, first.Body.String())
	}
	second := performRequest(r, http.MethodPost, "/users/google-signin", map[string]string{"idToken": token}, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second sign-in: expected 200, got %d", second.Code)
	}

	if len(repo.users) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.users))
	}
	stored := repo.users["g-sub-1"]
	if stored.Email != "user_g-sub-1@mernapp.com" || stored.DisplayName != "Google User" {
		t.Fatalf("fallbacks not applied: %+v", stored)
	}
}

func TestGoogleSignInEndpoint_InvalidToken(t *testing.T) {
	r := setupAuthRouter(newMemUserRepo(), identity.NewLocalProvider("test-secret"))

	rec := performRequest(r, http.MethodPost, "/users/google-signin", map[string]string{"idToken": "garbage"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProfileEndpoint_ProtectedFlow(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	performRequest(r, http.MethodPost, "/users/signup", map[string]string{
		"email":    "prof@example.com",
		"password": "hunter22",
		"name":     "Prof",
	}, nil)
	token, err := provider.SignIn(context.Background(), "prof@example.com", "hunter22")
	if err != nil {
		t.Fatalf("provider sign-in: %v", err)
	}

	rec := performRequest(r, http.MethodGet, "/users/profile", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Email != "prof@example.com" {
		t.Fatalf("unexpected profile: %s", rec.Body.String())
	}
}

func TestProfileEndpoint_MissingToken(t *testing.T) {
	r := setupAuthRouter(newMemUserRepo(), identity.NewLocalProvider("test-secret"))

	rec := performRequest(r, http.MethodGet, "/users/profile", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProfileEndpoint_UserNotFound(t *testing.T) {
	repo := newMemUserRepo()
	provider := identity.NewLocalProvider("test-secret")
	r := setupAuthRouter(repo, provider)

	// Identidad válida en el proveedor pero sin registro local.
	token, err := provider.MintToken("deleted-sub", "d@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	rec := performRequest(r, http.MethodGet, "/users/profile", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
