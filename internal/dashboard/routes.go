package dashboard

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/project"
	"github.com/zulandar/devteam/internal/simulate"
	"github.com/zulandar/devteam/internal/team"
	"github.com/zulandar/devteam/internal/tracker"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, svc *team.Service) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Pages.
	router.GET("/", handleOverview(svc))
	router.GET("/clients", handleClientList(svc))
	router.POST("/clients", handleClientCreate(svc))
	router.GET("/clients/:id", handleClientDetail(svc))
	router.POST("/clients/:id", handleClientUpdate(svc))
	router.POST("/clients/:id/delete", handleClientDelete(svc))
	router.GET("/projects", handleProjectList(svc))
	router.POST("/projects", handleProjectCreate(svc))
	router.GET("/projects/:id", handleProjectDetail(svc))
	router.POST("/projects/:id", handleProjectUpdate(svc))
	router.POST("/projects/:id/delete", handleProjectDelete(svc))
	router.POST("/projects/:id/next", handleProjectAction(svc, startNext))
	router.POST("/projects/:id/complete", handleProjectAction(svc, completeCurrent))
	router.POST("/projects/:id/departments/:dept/:action", handleDepartmentAction(svc))
	router.GET("/projects/:id/chat", handleChat(svc))
	router.POST("/projects/:id/chat", handleChatSend(svc))
	router.GET("/team", handleTeam())

	registerAPI(router.Group("/api"), svc)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, tracker.ErrUnknownDepartment):
		return http.StatusNotFound
	case errors.Is(err, client.ErrInvalidInput),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, team.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, team.ErrClientHasProjects),
		errors.Is(err, tracker.ErrDisabled),
		errors.Is(err, simulate.ErrCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func renderError(c *gin.Context, err error) {
	c.HTML(statusFor(err), "layout.html", gin.H{
		"page":  "error",
		"error": err.Error(),
	})
}

func handleOverview(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "overview",
			"overview": svc.Overview(),
			"projects": projectRows(svc, svc.Projects()),
		})
	}
}

func handleClientList(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":    "clients",
			"clients": clientRows(svc),
		})
	}
}

func handleClientCreate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := svc.CreateClient(client.CreateOpts{
			Name:        c.PostForm("name"),
			Email:       c.PostForm("email"),
			Phone:       c.PostForm("phone"),
			Company:     c.PostForm("company"),
			Description: c.PostForm("description"),
		})
		if err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/clients")
	}
}

func handleClientDetail(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		cl, err := svc.Client(id)
		if err != nil {
			c.HTML(http.StatusNotFound, "layout.html", gin.H{
				"page":     "client-missing",
				"clientID": id,
			})
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "client-detail",
			"client":   cl,
			"projects": projectRows(svc, svc.ClientProjects(id)),
		})
	}
}

func handleClientUpdate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		_, err := svc.UpdateClient(id, models.ClientPatch{
			Name:        formValue(c, "name"),
			Email:       formValue(c, "email"),
			Phone:       formValue(c, "phone"),
			Company:     formValue(c, "company"),
			Description: formValue(c, "description"),
		})
		if err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/clients/"+id)
	}
}

func handleClientDelete(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteClient(c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/clients")
	}
}

func handleProjectList(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":      "projects",
			"projects":  projectRows(svc, svc.Projects()),
			"clients":   svc.Clients(),
			"templates": catalog.Templates(),
			"statuses":  projectStatuses,
		})
	}
}

var projectStatuses = []models.ProjectStatus{
	models.ProjectPlanning,
	models.ProjectInProgress,
	models.ProjectCompleted,
	models.ProjectPaused,
}

func handleProjectCreate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.CreateProject(project.CreateOpts{
			ClientID:            c.PostForm("client_id"),
			Name:                c.PostForm("name"),
			Description:         c.PostForm("description"),
			Status:              models.ProjectStatus(c.PostForm("status")),
			ActiveDepartments:   c.PostFormArray("departments"),
			Budget:              parseBudget(c.PostForm("budget")),
			EstimatedCompletion: c.PostForm("estimated_completion"),
		})
		if err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects/"+p.ID)
	}
}

func handleProjectDetail(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Project(c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "project-detail",
			"detail":   projectDetail(svc, p),
			"clients":  svc.Clients(),
			"statuses": projectStatuses,
			"local":    catalog.LocalModels,
			"cloud":    catalog.CloudModels,
		})
	}
}

func handleProjectUpdate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		patch := models.ProjectPatch{
			ClientID:            formValue(c, "client_id"),
			Name:                formValue(c, "name"),
			Description:         formValue(c, "description"),
			EstimatedCompletion: formValue(c, "estimated_completion"),
		}
		if v := formValue(c, "status"); v != nil {
			st := models.ProjectStatus(*v)
			patch.Status = &st
		}
		if raw, ok := c.GetPostForm("budget"); ok {
			patch.Budget = parseBudget(raw)
		}
		if _, err := svc.UpdateProject(id, patch); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects/"+id)
	}
}

func handleProjectDelete(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteProject(c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects")
	}
}

// projectAction runs a step-level tracker operation.
type projectAction func(svc *team.Service, projectID string) (models.Project, error)

func startNext(svc *team.Service, projectID string) (models.Project, error) {
	p, _, err := svc.StartNext(projectID)
	return p, err
}

func completeCurrent(svc *team.Service, projectID string) (models.Project, error) {
	p, _, err := svc.CompleteCurrent(projectID)
	return p, err
}

func handleProjectAction(svc *team.Service, action projectAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := action(svc, id); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects/"+id)
	}
}

func handleDepartmentAction(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, dept := c.Param("id"), c.Param("dept")
		var err error
		switch c.Param("action") {
		case "start":
			_, err = svc.StartWork(id, dept)
		case "approve":
			_, err = svc.ApproveWork(id, dept)
		case "status":
			_, err = svc.SetDepartmentStatus(id, dept, models.DepartmentStatus(c.PostForm("status")))
		case "artifact":
			_, err = svc.AddArtifact(id, dept, c.PostForm("name"))
		case "progress":
			pct, convErr := strconv.Atoi(c.PostForm("percent"))
			if convErr != nil {
				pct = 0
			}
			_, err = svc.SetProgress(id, dept, min(max(pct, 0), 100))
		case "config":
			patch := models.DepartmentPatch{
				Model:         formValue(c, "model"),
				EstimatedTime: formValue(c, "estimated_time"),
			}
			if raw, ok := c.GetPostForm("tasks"); ok {
				tasks := splitLines(raw)
				patch.Tasks = &tasks
			}
			_, err = svc.ConfigureDepartment(id, dept, patch)
		default:
			c.HTML(http.StatusNotFound, "layout.html", gin.H{"page": "error", "error": "unknown action"})
			return
		}
		if err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects/"+id)
	}
}

func handleChat(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		p, err := svc.Project(id)
		if err != nil {
			renderError(c, err)
			return
		}
		msgs, loading, err := svc.Messages(id)
		if err != nil {
			renderError(c, err)
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":     "chat",
			"project":  p,
			"messages": msgs,
			"loading":  loading,
		})
	}
}

func handleChatSend(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := svc.SendMessage(id, c.PostForm("message")); err != nil {
			renderError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/projects/"+id+"/chat")
	}
}

func handleTeam() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"page":      "team",
			"templates": catalog.Templates(),
			"local":     catalog.LocalModels,
			"cloud":     catalog.CloudModels,
		})
	}
}

// formValue returns a pointer to the posted field, or nil when absent.
func formValue(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}
