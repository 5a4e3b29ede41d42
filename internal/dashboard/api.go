package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/project"
	"github.com/zulandar/devteam/internal/team"
)

// registerAPI sets up the JSON API under group.
func registerAPI(api *gin.RouterGroup, svc *team.Service) {
	api.GET("/overview", func(c *gin.Context) { c.JSON(http.StatusOK, svc.Overview()) })
	api.GET("/catalog", apiCatalog)

	api.GET("/clients", func(c *gin.Context) { c.JSON(http.StatusOK, svc.Clients()) })
	api.POST("/clients", apiClientCreate(svc))
	api.GET("/clients/:id", func(c *gin.Context) {
		respond(c, http.StatusOK)(svc.Client(c.Param("id")))
	})
	api.PATCH("/clients/:id", apiClientUpdate(svc))
	api.DELETE("/clients/:id", func(c *gin.Context) {
		noContent(c, svc.DeleteClient(c.Param("id")))
	})
	api.GET("/clients/:id/projects", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.ClientProjects(c.Param("id")))
	})

	api.GET("/projects", func(c *gin.Context) { c.JSON(http.StatusOK, svc.Projects()) })
	api.POST("/projects", apiProjectCreate(svc))
	api.GET("/projects/:id", func(c *gin.Context) {
		respond(c, http.StatusOK)(svc.Project(c.Param("id")))
	})
	api.PATCH("/projects/:id", apiProjectUpdate(svc))
	api.DELETE("/projects/:id", func(c *gin.Context) {
		noContent(c, svc.DeleteProject(c.Param("id")))
	})
	api.GET("/projects/:id/stats", func(c *gin.Context) {
		respond(c, http.StatusOK)(svc.Stats(c.Param("id")))
	})
	api.POST("/projects/:id/next", func(c *gin.Context) {
		p, started, err := svc.StartNext(c.Param("id"))
		respond(c, http.StatusOK)(stepResult{Project: p, Changed: started}, err)
	})
	api.POST("/projects/:id/complete", func(c *gin.Context) {
		p, completed, err := svc.CompleteCurrent(c.Param("id"))
		respond(c, http.StatusOK)(stepResult{Project: p, Changed: completed}, err)
	})

	dept := api.Group("/projects/:id/departments/:dept")
	dept.PATCH("", apiDepartmentConfigure(svc))
	dept.POST("/start", func(c *gin.Context) {
		respond(c, http.StatusOK)(svc.StartWork(c.Param("id"), c.Param("dept")))
	})
	dept.POST("/approve", func(c *gin.Context) {
		respond(c, http.StatusOK)(svc.ApproveWork(c.Param("id"), c.Param("dept")))
	})
	dept.POST("/status", apiDepartmentStatus(svc))
	dept.POST("/artifacts", apiDepartmentArtifact(svc))
	dept.POST("/progress", apiDepartmentProgress(svc))

	api.GET("/projects/:id/messages", func(c *gin.Context) {
		msgs, loading, err := svc.Messages(c.Param("id"))
		respond(c, http.StatusOK)(chatLog{Messages: msgs, Loading: loading}, err)
	})
	api.POST("/projects/:id/messages", apiChatSend(svc))

	api.GET("/events", handleSSE(svc.Bus()))
}

// apiError is the JSON error body.
type apiError struct {
	Error string `json:"error"`
}

// stepResult reports a step-level action and whether it changed anything.
type stepResult struct {
	Project models.Project `json:"project"`
	Changed bool           `json:"changed"`
}

type chatLog struct {
	Messages []models.ChatMessage `json:"messages"`
	Loading  bool                 `json:"loading"`
}

// respond returns a writer for a (value, error) pair.
func respond(c *gin.Context, status int) func(any, error) {
	return func(v any, err error) {
		if err != nil {
			c.JSON(statusFor(err), apiError{Error: err.Error()})
			return
		}
		c.JSON(status, v)
	}
}

func noContent(c *gin.Context, err error) {
	if err != nil {
		c.JSON(statusFor(err), apiError{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
}

func apiCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"departments": catalog.Templates(),
		"models": gin.H{
			catalog.FamilyLocal: catalog.LocalModels,
			catalog.FamilyCloud: catalog.CloudModels,
		},
	})
}

type clientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	Description string `json:"description"`
}

func apiClientCreate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req clientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusCreated)(svc.CreateClient(client.CreateOpts(req)))
	}
}

func apiClientUpdate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.ClientPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.UpdateClient(c.Param("id"), patch))
	}
}

type projectRequest struct {
	ClientID            string               `json:"client_id"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	Status              models.ProjectStatus `json:"status"`
	ActiveDepartments   []string             `json:"active_departments"`
	Budget              *float64             `json:"budget"`
	EstimatedCompletion string               `json:"estimated_completion"`
}

func apiProjectCreate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req projectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusCreated)(svc.CreateProject(project.CreateOpts(req)))
	}
}

func apiProjectUpdate(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.ProjectPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.UpdateProject(c.Param("id"), patch))
	}
}

func apiDepartmentConfigure(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch models.DepartmentPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.ConfigureDepartment(c.Param("id"), c.Param("dept"), patch))
	}
}

func apiDepartmentStatus(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status models.DepartmentStatus `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.SetDepartmentStatus(c.Param("id"), c.Param("dept"), req.Status))
	}
}

func apiDepartmentArtifact(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.AddArtifact(c.Param("id"), c.Param("dept"), req.Name))
	}
}

func apiDepartmentProgress(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Percent int `json:"percent"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusOK)(svc.SetProgress(c.Param("id"), c.Param("dept"), req.Percent))
	}
}

func apiChatSend(svc *team.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		respond(c, http.StatusCreated)(svc.SendMessage(c.Param("id"), req.Message))
	}
}
