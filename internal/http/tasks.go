package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/service"
)

type taskForm struct {
	Task string `form:"task"`
}

func (h *Handler) todo(c *gin.Context) {
	h.renderTasks(c)
}

func (h *Handler) createTask(c *gin.Context) {
	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderTasks(c, "Description is required")
		return
	}

	user := currentState(c).user
	if _, err := h.tasks.Create(c.Request.Context(), user.ID, form.Task); err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			h.renderTasks(c, vErr.Message())
			return
		}
		h.fail(c, "create task", err)
		return
	}
	h.renderTasks(c)
}

func (h *Handler) renderTasks(c *gin.Context, messages ...string) {
	user := currentState(c).user
	tasks, err := h.tasks.List(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, "list tasks", err)
		return
	}
	h.render(c, http.StatusOK, "todo.html", page{Title: "Your tasks", Tasks: tasks}, messages...)
}

func (h *Handler) completeTask(c *gin.Context) {
	h.mutateTask(c, h.tasks.Complete, "Not authorized to update this task")
}

func (h *Handler) deleteTask(c *gin.Context) {
	h.mutateTask(c, h.tasks.Delete, "Not authorized to delete this task")
}

// mutateTask applies an owner-checked change to the task named in the path.
// Unknown ids are a 404; someone else's task only earns a flash message.
func (h *Handler) mutateTask(c *gin.Context, mutate func(ctx context.Context, ownerID, id int64) error, deniedMsg string) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.notFound(c)
		return
	}

	user := currentState(c).user
	err = mutate(c.Request.Context(), user.ID, id)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNotFound):
		h.notFound(c)
		return
	case errors.Is(err, service.ErrNotAuthorized):
		h.logger.WithFields(logrus.Fields{"user_id": user.ID, "task_id": id}).Warn("task owned by another user")
		if err := h.flash(c, deniedMsg); err != nil {
			h.fail(c, "flash", err)
			return
		}
	default:
		h.fail(c, "update task", err)
		return
	}
	c.Redirect(http.StatusFound, "/todo")
}
