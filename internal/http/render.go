package http

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template renders from.
type page struct {
	Title    string
	User     *domain.User
	Flashes  []string
	Username string
	Tasks    []domain.Task
	Status   int
	Message  string
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// render writes a page with the session's pending flash messages followed by
// any messages produced while handling this request.
func (h *Handler) render(c *gin.Context, status int, name string, p page, messages ...string) {
	st := currentState(c)

	if st.session != nil {
		stored, err := h.sessions.Flashes(c.Request.Context(), st.session.ID)
		if err != nil {
			h.fail(c, "load flashes", err)
			return
		}
		p.Flashes = stored
	}
	p.Flashes = append(p.Flashes, messages...)
	p.User = st.user
	c.HTML(status, name, p)
}
