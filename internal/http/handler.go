package http

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/service"
	"tasktracker/internal/session"
)

// Pinger reports storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Users        service.UserService
	Tasks        service.TaskService
	Sessions     *session.Manager
	Logger       *logrus.Logger
	DB           Pinger
	SecureCookie bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	tasks        service.TaskService
	sessions     *session.Manager
	logger       *logrus.Logger
	db           Pinger
	secureCookie bool
	templates    *template.Template
}

func NewHandler(opts Options) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Handler{
		users:        opts.Users,
		tasks:        opts.Tasks,
		sessions:     opts.Sessions,
		logger:       opts.Logger,
		db:           opts.DB,
		secureCookie: opts.SecureCookie,
		templates:    tmpl,
	}, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(h.templates)
	router.Use(h.requestLogger(), h.loadSession)

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/login")
	})
	router.GET("/healthz", h.health)

	router.GET("/login", h.showLogin)
	router.POST("/login", h.login)
	router.GET("/register", h.showRegister)
	router.POST("/register", h.register)

	authed := router.Group("/", h.requireAuth)
	{
		authed.GET("/todo", h.todo)
		authed.POST("/todo", h.createTask)
		authed.GET("/complete/:id", h.completeTask)
		authed.GET("/delete/:id", h.deleteTask)
		authed.GET("/logout", h.logout)
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			h.logger.WithError(err).Error("health check")
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// fail logs err and answers with a plain 500 page.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error(msg)
	c.HTML(http.StatusInternalServerError, "error.html", page{
		Title:   "Error",
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong",
	})
	c.Abort()
}

// notFound leaves queued flashes for the next full page.
func (h *Handler) notFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", page{
		Title:   "Not found",
		User:    currentState(c).user,
		Status:  http.StatusNotFound,
		Message: "The requested task does not exist.",
	})
	c.Abort()
}
