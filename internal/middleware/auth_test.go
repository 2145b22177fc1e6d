package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/franchise-hub/internal/model"
	"github.com/mmeshcher/franchise-hub/internal/session"
)

type stubSessionStore struct {
	sessions map[string]*model.Session
	deleted  []string
}

func (s *stubSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return sess, nil
}

func (s *stubSessionStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.sessions, id)
	return nil
}

func TestRequireRole_WithValidSession(t *testing.T) {
	store := &stubSessionStore{
		sessions: map[string]*model.Session{
			"sess-1": {ID: "sess-1", Role: model.RoleFranchisee, Email: "a@x.com"},
		},
	}
	m := NewAuthMiddleware(store)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if id.Email != "a@x.com" {
			t.Fatalf("identity email = %q, want a@x.com", id.Email)
		}
		if id.Role != model.RoleFranchisee {
			t.Fatalf("identity role = %q, want franchisee", id.Role)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})

	handler := m.RequireRole(model.RoleFranchisee)(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestRequireRole_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware(&stubSessionStore{sessions: map[string]*model.Session{}})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.RequireRole(model.RoleAdmin)(next)
	handler.ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireRole_UnknownSession(t *testing.T) {
	m := NewAuthMiddleware(&stubSessionStore{sessions: map[string]*model.Session{}})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "expired"})

	handler := m.RequireRole(model.RoleAdmin)(next)
	handler.ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireRole_WrongRole(t *testing.T) {
	store := &stubSessionStore{
		sessions: map[string]*model.Session{
			"sess-1": {ID: "sess-1", Role: model.RoleFranchisee, Email: "a@x.com"},
		},
	}
	m := NewAuthMiddleware(store)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})

	handler := m.RequireRole(model.RoleAdmin)(next)
	handler.ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestClearSession(t *testing.T) {
	store := &stubSessionStore{
		sessions: map[string]*model.Session{
			"sess-1": {ID: "sess-1", Role: model.RoleAdmin, Email: "admin@x.com"},
		},
	}
	m := NewAuthMiddleware(store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})

	if err := m.ClearSession(w, r); err != nil {
		t.Fatalf("ClearSession error: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "sess-1" {
		t.Fatalf("deleted sessions = %v, want [sess-1]", store.deleted)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookie set by ClearSession")
	}
	if cookies[0].MaxAge != -1 {
		t.Fatalf("cookie MaxAge = %d, want -1", cookies[0].MaxAge)
	}
}
