package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the per-browser session id.
const SessionCookie = "sid"

type sessionKey struct{}

// visitTracker is the part of visits.Tracker the middleware needs.
type visitTracker interface {
	Track(sessionID string)
}

// Session ensures every request has a session id, issuing a new cookie when
// the browser has none. A new session counts as one visit on tracker; the
// counter is never waited on.
func Session(tracker visitTracker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil && validSessionID(c.Value) {
				id = c.Value
			} else {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int((24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				if tracker != nil {
					tracker.Track(id)
				}
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the session id stored by Session, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func validSessionID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
