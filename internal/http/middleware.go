package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
	"tasktracker/internal/session"
)

const stateKey = "tasktracker.state"

// requestState is the per-request view of who is calling.
type requestState struct {
	session *domain.Session
	user    *domain.User
}

func currentState(c *gin.Context) *requestState {
	if v, ok := c.Get(stateKey); ok {
		if st, ok := v.(*requestState); ok {
			return st
		}
	}
	st := &requestState{}
	c.Set(stateKey, st)
	return st
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// loadSession resolves the session cookie and the user behind it.
func (h *Handler) loadSession(c *gin.Context) {
	st := currentState(c)

	token, err := c.Cookie(session.CookieName)
	if err != nil || token == "" {
		c.Next()
		return
	}

	sess, err := h.sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		h.fail(c, "resolve session", err)
		return
	}
	if sess == nil {
		h.clearSessionCookie(c)
		c.Next()
		return
	}
	st.session = sess

	if sess.Authenticated() {
		user, err := h.users.GetByID(c.Request.Context(), sess.UserID)
		switch {
		case errors.Is(err, service.ErrNotFound):
			// stale session of a user that no longer exists
		case err != nil:
			h.fail(c, "load session user", err)
			return
		default:
			st.user = user
		}
	}
	c.Next()
}

// requireAuth sends visitors without a logged-in session to the login page.
func (h *Handler) requireAuth(c *gin.Context) {
	st := currentState(c)
	if err := session.Require(st.session); err != nil || st.user == nil {
		if err := h.flash(c, "Please log in to access this page."); err != nil {
			h.fail(c, "flash", err)
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, token, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, "", -1, "/", "", h.secureCookie, true)
}

// flash queues msg for the next rendered page, starting an anonymous session
// when the visitor has none.
func (h *Handler) flash(c *gin.Context, msg string) error {
	st := currentState(c)
	if st.session == nil {
		sess, token, err := h.sessions.Anonymous(c.Request.Context())
		if err != nil {
			return err
		}
		st.session = sess
		h.setSessionCookie(c, token)
	}
	return h.sessions.Flash(c.Request.Context(), st.session.ID, msg)
}
