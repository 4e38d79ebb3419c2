package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/beanline/storefront/internal/errors"
)

const (
	SessionIDKey   = "session_id"
	sessionIDValue = "sid"
)

// SessionMiddleware gives every browser a stable session id kept in a
// signed cookie. The id keys the per-session cart.
type SessionMiddleware struct {
	store      sessions.Store
	cookieName string
}

func NewSessionMiddleware(cookieName, secret string, maxAge time.Duration, secure bool) *SessionMiddleware {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionMiddleware{store: store, cookieName: cookieName}
}

func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		// a cookie that fails to decode still yields a fresh session
		sess, err := m.store.Get(c.Request, m.cookieName)
		if err != nil {
			log.Debug("Discarding undecodable session cookie", map[string]interface{}{
				"error": err.Error(),
			})
		}

		sid, _ := sess.Values[sessionIDValue].(string)
		if _, perr := uuid.Parse(sid); perr != nil {
			sid = uuid.NewString()
			sess.Values[sessionIDValue] = sid
			if err := sess.Save(c.Request, c.Writer); err != nil {
				log.Error("Failed to save session cookie", err, nil)
				errors.InternalError(c, "")
				c.Abort()
				return
			}
			log.Debug("Issued new session", map[string]interface{}{
				"session_id": sid,
			})
		}

		c.Set(SessionIDKey, sid)
		c.Next()
	}
}

// GetSessionID returns the browser session id set by SessionMiddleware
func GetSessionID(c *gin.Context) (string, bool) {
	sid := c.GetString(SessionIDKey)
	return sid, sid != ""
}
