package httpapi

import (
	"net/http"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/middleware"

	"github.com/google/uuid"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "cart_session"
)

// resolveOwner identifies the cart owner: an authenticated user wins, then a
// client-supplied session header, then the session cookie. When no identity
// exists at all a new session cookie is minted so the guest keeps their cart
// across requests.
func resolveOwner(w http.ResponseWriter, r *http.Request) cart.Owner {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return cart.UserOwner(userID)
	}

	if sessionID := r.Header.Get(sessionHeader); sessionID != "" {
		return cart.GuestOwner(sessionID)
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cart.GuestOwner(cookie.Value)
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		Expires:  time.Now().AddDate(0, 0, 30),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return cart.GuestOwner(sessionID)
}
