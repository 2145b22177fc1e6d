// Package middleware содержит HTTP middleware для сервиса франчайзинга.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mmeshcher/franchise-hub/internal/model"
	"github.com/mmeshcher/franchise-hub/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	sessionCookieName = "franchise_session"
	sessionCookieTTL  = 24 * time.Hour
)

// Identity описывает аутентифицированного пользователя текущего запроса.
// Email берётся только из сессии, а не из тела запроса.
type Identity struct {
	Role  model.Role
	Email string
}

// SessionStore определяет контракт хранилища сессий, используемый middleware.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthMiddleware выполняет проверку аутентификации по сессионному cookie.
type AuthMiddleware struct {
	store SessionStore
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным хранилищем сессий.
func NewAuthMiddleware(store SessionStore) *AuthMiddleware {
	return &AuthMiddleware{store: store}
}

// RequireRole проверяет сессионный cookie, сверяет роль и добавляет
// Identity пользователя в контекст запроса.
func (a *AuthMiddleware) RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			sess, err := a.store.Get(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if sess.Role != role {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				Role:  sess.Role,
				Email: sess.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie устанавливает сессионный cookie для созданной сессии.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, sess *model.Session) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearSession удаляет сессию из хранилища и сбрасывает cookie.
func (a *AuthMiddleware) ClearSession(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		if err := a.store.Delete(r.Context(), cookie.Value); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// GetIdentityFromContext извлекает Identity пользователя из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
