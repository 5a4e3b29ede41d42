package dashboard

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/config"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/project"
	"github.com/zulandar/devteam/internal/team"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestService(t *testing.T, policy string) *team.Service {
	t.Helper()
	svc := team.New(team.Options{
		DeletePolicy: policy,
		Tick:         time.Hour,
		ReplyDelay:   time.Hour,
	})
	t.Cleanup(svc.Close)
	return svc
}

func setupTestRouter(t *testing.T) (*gin.Engine, *team.Service) {
	t.Helper()
	svc := newTestService(t, config.DeleteBlock)
	require.NoError(t, svc.Seed())
	router, err := newRouter(svc, nil)
	require.NoError(t, err)
	return router, svc
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seededProject(t *testing.T, svc *team.Service) models.Project {
	t.Helper()
	projects := svc.Projects()
	require.NotEmpty(t, projects, "seed created no projects")
	return projects[0]
}

func projectOpts(clientID string) project.CreateOpts {
	return project.CreateOpts{
		ClientID:          clientID,
		Name:              "Mobile App",
		ActiveDepartments: []string{"business-analysis", "research"},
	}
}

func TestStart_NilService(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service is required")
}

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"assets/style.css", "assets/app.js"} {
		data, err := assetsFS.ReadFile(name)
		require.NoError(t, err, "%s not embedded", name)
		assert.NotEmpty(t, data, name)
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	data, err := templatesFS.ReadFile("templates/layout.html")
	require.NoError(t, err, "layout.html not embedded")
	assert.Contains(t, string(data), "Virtual Dev Team")
}

func TestTemplateFuncs_AllUsed(t *testing.T) {
	files, err := fs.Glob(templatesFS, "templates/*.html")
	require.NoError(t, err)
	var all strings.Builder
	for _, name := range files {
		data, err := templatesFS.ReadFile(name)
		require.NoError(t, err)
		all.Write(data)
	}
	used := regexp.MustCompile(`[{(|]\s*(\w+)\b`).FindAllStringSubmatch(all.String(), -1)
	names := make(map[string]bool)
	for _, m := range used {
		names[m[1]] = true
	}
	for name := range templateFuncs {
		assert.True(t, names[name], "template func %q is registered but never called", name)
	}
}

func TestStaticAssets_CSS(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(router, http.MethodGet, "/static/style.css", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
}

func TestPages_Return200(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)

	paths := []string{
		"/",
		"/clients",
		"/clients/" + p.ClientID,
		"/projects",
		"/projects/" + p.ID,
		"/projects/" + p.ID + "/chat",
		"/team",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := do(router, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "Virtual Dev Team", "page renders inside the layout")
		})
	}
}

func TestOverview_ContainsProject(t *testing.T) {
	router, _ := setupTestRouter(t)
	body := do(router, http.MethodGet, "/", "").Body.String()
	for _, want := range []string{"ERP Management System", "João Silva"} {
		assert.Contains(t, body, want)
	}
}

func TestProjectPage_ShowsDepartments(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)
	body := do(router, http.MethodGet, "/projects/"+p.ID, "").Body.String()
	for _, want := range []string{"Business Analysis", "Research", "Development"} {
		assert.Contains(t, body, want)
	}
}

func TestClientDetail_MissingRendersPlaceholder(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(router, http.MethodGet, "/clients/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Client not found")
}

func TestProjectPage_Missing(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(router, http.MethodGet, "/projects/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoute_Returns404(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(router, http.MethodGet, "/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFormCreateClient_Redirects(t *testing.T) {
	router, svc := setupTestRouter(t)
	before := len(svc.Clients())

	w := postForm(router, "/clients", url.Values{
		"name":    {"Ana Costa"},
		"email":   {"ana@example.com"},
		"company": {"Costa Labs"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/clients", w.Header().Get("Location"))
	assert.Len(t, svc.Clients(), before+1)
}

func TestFormCreateProject_BudgetDefaultsToZero(t *testing.T) {
	router, svc := setupTestRouter(t)
	c := svc.Clients()[0]

	w := postForm(router, "/projects", url.Values{
		"client_id":   {c.ID},
		"name":        {"Mobile App"},
		"budget":      {"lots"},
		"departments": {"research", "development"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	id := strings.TrimPrefix(w.Header().Get("Location"), "/projects/")
	p, err := svc.Project(id)
	require.NoError(t, err, "created project not found")
	require.NotNil(t, p.Budget)
	assert.Zero(t, *p.Budget)
	assert.Len(t, p.ActiveDepartments, 2)
}

func TestFormCreateProject_NonFiniteBudgetKeepsAPIRenderable(t *testing.T) {
	router, svc := setupTestRouter(t)
	c := svc.Clients()[0]

	for _, raw := range []string{"NaN", "Inf"} {
		w := postForm(router, "/projects", url.Values{
			"client_id": {c.ID},
			"name":      {"Budget " + raw},
			"budget":    {raw},
		})
		require.Equal(t, http.StatusSeeOther, w.Code, "budget %s", raw)
	}

	w := do(router, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, w.Code)
	var projects []models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects), w.Body.String())
	found := 0
	for _, p := range projects {
		if !strings.HasPrefix(p.Name, "Budget ") {
			continue
		}
		found++
		if assert.NotNil(t, p.Budget, p.Name) {
			assert.Zero(t, *p.Budget, p.Name)
		}
	}
	assert.Equal(t, 2, found)
}

func TestFormStartNext(t *testing.T) {
	router, svc := setupTestRouter(t)
	c := svc.Clients()[0]
	p, err := svc.CreateProject(projectOpts(c.ID))
	require.NoError(t, err)

	w := postForm(router, "/projects/"+p.ID+"/next", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	got, err := svc.Project(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepartmentInProgress, got.Departments[0].Status)
}

func TestFormDeleteClient_BlockedRendersConflict(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)
	w := postForm(router, "/clients/"+p.ClientID+"/delete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFormChatSend(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)

	w := postForm(router, "/projects/"+p.ID+"/chat", url.Values{"message": {"hello team"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	body := do(router, http.MethodGet, "/projects/"+p.ID+"/chat", "").Body.String()
	assert.Contains(t, body, "hello team")
}

func TestAPI_CreateAndGetClient(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(router, http.MethodPost, "/api/clients", `{"name":"Ana Costa","email":"ana@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Client
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ana Costa", created.Name)

	w = do(router, http.MethodGet, "/api/clients/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_ErrorCodes(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing client", http.MethodGet, "/api/clients/nope", "", http.StatusNotFound},
		{"missing project", http.MethodGet, "/api/projects/nope", "", http.StatusNotFound},
		{"unknown department", http.MethodPost, "/api/projects/" + p.ID + "/departments/marketing/start", "", http.StatusNotFound},
		{"client without name", http.MethodPost, "/api/clients", `{"email":"x@example.com"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/clients", `{"name":`, http.StatusBadRequest},
		{"unknown model", http.MethodPatch, "/api/projects/" + p.ID + "/departments/research", `{"model":"gpt-9"}`, http.StatusBadRequest},
		{"blocked delete", http.MethodDelete, "/api/clients/" + p.ClientID, "", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			var body apiError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAPI_StartNextReportsChange(t *testing.T) {
	router, svc := setupTestRouter(t)
	c := svc.Clients()[0]
	p, err := svc.CreateProject(projectOpts(c.ID))
	require.NoError(t, err)

	var res stepResult
	w := do(router, http.MethodPost, "/api/projects/"+p.ID+"/next", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Changed, "first StartNext reports a change")

	w = do(router, http.MethodPost, "/api/projects/"+p.ID+"/next", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Changed, "StartNext while a department is in progress is a no-op")
}

func TestAPI_DeleteProject(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)

	w := do(router, http.MethodDelete, "/api/projects/"+p.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	_, err := svc.Project(p.ID)
	assert.Error(t, err, "project is gone")
}

func TestAPI_Catalog(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(router, http.MethodGet, "/api/catalog", "")
	var body struct {
		Departments []catalog.Template `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Departments, 10)
}

func TestSSEEndpoint_SendsConnectedAndEvents(t *testing.T) {
	router, svc := setupTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	// Wait until the handler has subscribed before publishing.
	require.Eventually(t, func() bool { return svc.Bus().Subscribers() > 0 },
		2*time.Second, 5*time.Millisecond)
	_, err := svc.CreateClient(client.CreateOpts{Name: "Ana Costa"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: client_created")
}

func TestSSEEndpoint_FiltersByProject(t *testing.T) {
	router, svc := setupTestRouter(t)
	p := seededProject(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events?project="+p.ID, nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return svc.Bus().Subscribers() > 0 },
		2*time.Second, 5*time.Millisecond)
	_, err := svc.CreateClient(client.CreateOpts{Name: "Unrelated"})
	require.NoError(t, err)
	_, err = svc.AddArtifact(p.ID, "research", "Market report")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.NotContains(t, body, "event: client_created", "project stream skips client events")
	assert.Contains(t, body, "event: artifact_added")
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	writeSSE(&b, 7, "heartbeat", map[string]string{"timestamp": "now"})
	assert.Equal(t, "id: 7\nevent: heartbeat\ndata: {\"timestamp\":\"now\"}\n\n", b.String())

	b.Reset()
	writeSSE(&b, 8, "bad", make(chan int))
	assert.Zero(t, b.Len(), "unmarshalable data writes nothing")
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"", nil},
		{"  ", nil},
		{"50000", ptr(50000)},
		{"1234.5", ptr(1234.5)},
		{"abc", ptr(0)},
		{"-10", ptr(0)},
		{"NaN", ptr(0)},
		{"Inf", ptr(0)},
		{"-Inf", ptr(0)},
		{"1e400", ptr(0)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseBudget(tt.raw), "parseBudget(%q)", tt.raw)
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines(" gather requirements \n\n  write report\r\n")
	assert.Equal(t, []string{"gather requirements", "write report"}, got)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), "formatDuration(%v)", tt.d)
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "In progress", statusLabel(models.DepartmentInProgress))
	assert.Equal(t, "-", formatBudget(nil))
	assert.Equal(t, "$50000.00", formatBudget(ptr(50000)))
}

func ptr(v float64) *float64 { return &v }
