package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/service"
)

type credentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *Handler) showLogin(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", page{Title: "Log in"})
}

func (h *Handler) login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", page{Title: "Log in"}, "Invalid credentials")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.render(c, http.StatusOK, "login.html", page{Title: "Log in", Username: form.Username}, "Invalid credentials")
			return
		}
		h.fail(c, "authenticate", err)
		return
	}

	st := currentState(c)
	previous := ""
	if st.session != nil {
		previous = st.session.ID
	}
	sess, token, err := h.sessions.Login(c.Request.Context(), previous, user.ID)
	if err != nil {
		h.fail(c, "start session", err)
		return
	}
	st.session, st.user = sess, user
	h.setSessionCookie(c, token)

	h.logger.WithField("user_id", user.ID).Info("user logged in")
	c.Redirect(http.StatusFound, "/todo")
}

func (h *Handler) showRegister(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", page{Title: "Register"})
}

func (h *Handler) register(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "register.html", page{Title: "Register"}, "Username and password are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			h.render(c, http.StatusOK, "register.html", page{Title: "Register", Username: form.Username}, "Username already exists")
		case errors.As(err, &vErr):
			h.render(c, http.StatusOK, "register.html", page{Title: "Register", Username: form.Username}, vErr.Message())
		default:
			h.fail(c, "register", err)
		}
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	if err := h.flash(c, "Registration successful! Please log in."); err != nil {
		h.fail(c, "flash", err)
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) logout(c *gin.Context) {
	st := currentState(c)
	if err := h.sessions.Logout(c.Request.Context(), st.session.ID); err != nil {
		h.fail(c, "logout", err)
		return
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/login")
}
