package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
)

// mockSessionFinder はmiddleware.SessionFinderのモック実装。
type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

// newTestRouter は全依存をモックにしたルーターを構築するヘルパー。
func newTestRouter(t *testing.T, finder middleware.SessionFinder) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		AuthRate:        rate.Limit(1000),
		AuthBurst:       1000,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		SessionFinder:     finder,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		CSRFConfig:        middleware.CSRFConfig{},
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig(),
		CategoryService:   &mockCategoryService{},
		TaskService:       &mockTaskService{},
		HealthChecker:     &mockHealthChecker{},
	})
}

// validSessionFinder は常に有効なセッションを返すモックを生成する。
func validSessionFinder(userID string) *mockSessionFinder {
	return &mockSessionFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
}

// TestRouter_Healthz はヘルスチェックエンドポイントがガードの外にあることを検証する。
func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, &mockSessionFinder{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRouter_APIRequiresSession はAPIルートが未認証リクエストを401で
// 拒否することを検証する。
func TestRouter_APIRequiresSession(t *testing.T) {
	router := newTestRouter(t, &mockSessionFinder{})

	paths := []string{"/api/tasks", "/api/categories"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want %d", path, rec.Code, http.StatusUnauthorized)
		}
	}
}

// TestRouter_APIWithValidSession は有効なセッションでAPIルートに到達
// できることを検証する。
func TestRouter_APIWithValidSession(t *testing.T) {
	router := newTestRouter(t, validSessionFinder("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRouter_MutationRequiresCSRFToken は状態変更リクエストがCSRFトークン
// なしで403になることを検証する。
func TestRouter_MutationRequiresCSRFToken(t *testing.T) {
	router := newTestRouter(t, validSessionFinder("user-1"))

	body := bytes.NewBufferString(`{"title":"資料作成"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", body)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

// TestRouter_GuestGuardOnRegisterAndLogin はサインイン済みユーザーによる
// 登録・サインインが409で拒否されることを検証する。
func TestRouter_GuestGuardOnRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t, validSessionFinder("user-1"))

	for _, path := range []string{"/auth/register", "/auth/login"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{}`))
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
		req.Header.Set("X-CSRF-Token", "tok")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("POST %s: status = %d, want %d", path, rec.Code, http.StatusConflict)
		}
	}
}

// TestRouter_LogoutBypassesGuestGuard はサインイン済みでもログアウトが
// 可能であることを検証する。
func TestRouter_LogoutBypassesGuestGuard(t *testing.T) {
	router := newTestRouter(t, validSessionFinder("user-1"))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-1"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

// TestRouter_CSRFTokenEndpoint はトークン取得エンドポイントがガードの
// 外にあることを検証する。
func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockSessionFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRouter_CORSPreflight はOPTIONSプリフライトが204で応答することを検証する。
func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, &mockSessionFinder{})

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}
