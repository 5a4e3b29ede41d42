// Package team is the application service behind the dashboard. It composes
// the client and project stores, the per-project trackers, simulated work,
// chat sessions and the event bus. Every mutation publishes an event.
package team

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/chat"
	"github.com/zulandar/devteam/internal/client"
	"github.com/zulandar/devteam/internal/config"
	"github.com/zulandar/devteam/internal/events"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/project"
	"github.com/zulandar/devteam/internal/simulate"
	"github.com/zulandar/devteam/internal/tracker"
)

var (
	// ErrClientHasProjects is returned by DeleteClient under the block policy.
	ErrClientHasProjects = errors.New("client still has projects")
	// ErrInvalidInput indicates a malformed request to the service.
	ErrInvalidInput = errors.New("invalid input")
)

// Options configures a Service.
type Options struct {
	// DeletePolicy is one of config.DeleteOrphan, DeleteCascade, DeleteBlock.
	DeletePolicy  string
	AllowParallel bool

	Tick         time.Duration
	MinIncrement int
	MaxIncrement int
	Rand         func(n int) int
	// Scheduler replaces the runner's own cron scheduler when set.
	Scheduler simulate.Scheduler

	ReplyDelay time.Duration
	Logger     *slog.Logger
}

// OptionsFromConfig maps the loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		DeletePolicy:  cfg.Clients.DeletePolicy,
		AllowParallel: cfg.Simulation.AllowParallel,
		Tick:          cfg.Simulation.TickInterval,
		MinIncrement:  cfg.Simulation.MinIncrement,
		MaxIncrement:  cfg.Simulation.MaxIncrement,
		ReplyDelay:    cfg.Chat.ReplyDelay,
		Logger:        logger,
	}
}

// Service is safe for concurrent use.
type Service struct {
	clients  *client.Store
	projects *project.Store
	runner   *simulate.Runner
	chats    *chat.Hub
	bus      *events.Bus
	logger   *slog.Logger
	policy   string
}

// New builds a Service. Call Start to begin simulated work and Close on shutdown.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	policy := opts.DeletePolicy
	if policy == "" {
		policy = config.DeleteOrphan
	}

	s := &Service{
		clients:  client.NewStore(),
		projects: project.NewStore(tracker.Options{AllowParallel: opts.AllowParallel}),
		bus:      events.NewBus(),
		logger:   logger,
		policy:   policy,
	}

	simOpts := simulate.Options{
		Tick:         opts.Tick,
		MinIncrement: opts.MinIncrement,
		MaxIncrement: opts.MaxIncrement,
		Rand:         opts.Rand,
		Logger:       logger,
		Hooks: simulate.Hooks{
			OnProgress: s.onProgress,
			OnComplete: s.onComplete,
		},
	}
	if opts.Scheduler != nil {
		s.runner = simulate.NewWithScheduler(opts.Scheduler, simOpts)
	} else {
		s.runner = simulate.New(simOpts)
	}

	s.chats = chat.NewHub(chat.Options{
		ReplyDelay: opts.ReplyDelay,
		OnMessage:  s.onChatMessage,
	})
	return s
}

// Start begins ticking simulated work.
func (s *Service) Start() { s.runner.Start() }

// Close cancels simulated work and pending chat replies, then closes the bus.
func (s *Service) Close() {
	<-s.runner.Stop().Done()
	s.chats.Close()
	s.bus.Close()
}

// Bus returns the event bus.
func (s *Service) Bus() *events.Bus { return s.bus }

// --- Clients ---

// Clients returns every client in creation order.
func (s *Service) Clients() []models.Client { return s.clients.List() }

// Client returns one client.
func (s *Service) Client(id string) (models.Client, error) { return s.clients.Get(id) }

// CreateClient adds a client.
func (s *Service) CreateClient(opts client.CreateOpts) (models.Client, error) {
	c, err := s.clients.Create(opts)
	if err != nil {
		return models.Client{}, err
	}
	s.logger.Info("client created", "client", c.ID, "name", c.Name)
	s.bus.Publish(events.Event{Type: events.ClientCreated, ClientID: c.ID, Text: c.Name})
	return c, nil
}

// UpdateClient merges patch into the client.
func (s *Service) UpdateClient(id string, patch models.ClientPatch) (models.Client, error) {
	c, err := s.clients.Update(id, patch)
	if err != nil {
		return models.Client{}, err
	}
	s.logger.Info("client updated", "client", id)
	s.bus.Publish(events.Event{Type: events.ClientUpdated, ClientID: id, Text: c.Name})
	return c, nil
}

// DeleteClient removes a client and applies the delete policy to its projects.
func (s *Service) DeleteClient(id string) error {
	c, err := s.clients.Get(id)
	if err != nil {
		return err
	}
	owned := s.projects.ByClient(id)
	switch s.policy {
	case config.DeleteBlock:
		if len(owned) > 0 {
			return fmt.Errorf("team: %w: %s has %d", ErrClientHasProjects, id, len(owned))
		}
	case config.DeleteCascade:
		for _, p := range owned {
			if err := s.DeleteProject(p.ID); err != nil && !errors.Is(err, project.ErrNotFound) {
				return err
			}
		}
	}
	if err := s.clients.Delete(id); err != nil {
		return err
	}
	s.logger.Info("client deleted", "client", id, "policy", s.policy, "projects", len(owned))
	s.bus.Publish(events.Event{Type: events.ClientDeleted, ClientID: id, Text: c.Name})
	return nil
}

// ClientProjects returns the projects referencing a client.
func (s *Service) ClientProjects(clientID string) []models.Project {
	return s.projects.ByClient(clientID)
}

// --- Projects ---

// Projects returns every project in creation order.
func (s *Service) Projects() []models.Project { return s.projects.List() }

// Project returns one project.
func (s *Service) Project(id string) (models.Project, error) { return s.projects.Get(id) }

// CreateProject adds a project with its own copy of the department catalog.
func (s *Service) CreateProject(opts project.CreateOpts) (models.Project, error) {
	p, err := s.projects.Create(opts)
	if err != nil {
		return models.Project{}, err
	}
	s.logger.Info("project created", "project", p.ID, "name", p.Name, "departments", len(p.ActiveDepartments))
	s.bus.Publish(events.Event{
		Type:        events.ProjectCreated,
		ClientID:    p.ClientID,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Status:      string(p.Status),
	})
	return p, nil
}

// UpdateProject merges patch into the project.
func (s *Service) UpdateProject(id string, patch models.ProjectPatch) (models.Project, error) {
	p, err := s.projects.Update(id, patch)
	if err != nil {
		return models.Project{}, err
	}
	s.logger.Info("project updated", "project", id)
	s.bus.Publish(events.Event{
		Type:        events.ProjectUpdated,
		ClientID:    p.ClientID,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Status:      string(p.Status),
	})
	return p, nil
}

// DeleteProject removes a project, cancels its simulated work and drops its chat.
func (s *Service) DeleteProject(id string) error {
	p, err := s.projects.Get(id)
	if err != nil {
		return err
	}
	s.runner.CancelProject(id)
	if err := s.projects.Delete(id); err != nil {
		return err
	}
	s.chats.Drop(id)
	s.logger.Info("project deleted", "project", id)
	s.bus.Publish(events.Event{Type: events.ProjectDeleted, ClientID: p.ClientID, ProjectID: id, ProjectName: p.Name})
	return nil
}

// --- Lifecycle ---

// StartNext starts the first pending department. ok is false when nothing
// was started.
func (s *Service) StartNext(projectID string) (p models.Project, ok bool, err error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, false, err
	}
	idx, ok := tr.StartNext()
	if ok {
		depts, _ := tr.Snapshot()
		s.departmentEvent(events.DepartmentStarted, projectID, depts[idx], "")
	}
	p, err = s.touched(projectID)
	return p, ok, err
}

// CompleteCurrent completes the department at the current step.
func (s *Service) CompleteCurrent(projectID string) (p models.Project, ok bool, err error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, false, err
	}
	id, ok := tr.CompleteCurrent()
	if ok {
		if d, err := tr.Department(id); err == nil {
			s.departmentEvent(events.DepartmentCompleted, projectID, d, "")
		}
	}
	p, err = s.touched(projectID)
	return p, ok, err
}

// StartWork runs simulated work for a department until it completes.
func (s *Service) StartWork(projectID, departmentID string) (models.Project, error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if _, err := s.runner.Begin(projectID, tr, departmentID); err != nil {
		return models.Project{}, err
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return models.Project{}, err
	}
	s.chats.Session(projectID).AddSystem(fmt.Sprintf("%s started working.", d.Name))
	s.departmentEvent(events.DepartmentStarted, projectID, d, "")
	return s.touched(projectID)
}

// ApproveWork marks a department completed directly.
func (s *Service) ApproveWork(projectID, departmentID string) (models.Project, error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := tr.SetStatus(departmentID, models.DepartmentCompleted); err != nil {
		return models.Project{}, err
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return models.Project{}, err
	}
	s.departmentEvent(events.DepartmentCompleted, projectID, d, "")
	return s.touched(projectID)
}

// SetDepartmentStatus overrides a department's status.
func (s *Service) SetDepartmentStatus(projectID, departmentID string, status models.DepartmentStatus) (models.Project, error) {
	if !status.Valid() {
		return models.Project{}, fmt.Errorf("team: %w: status %q", ErrInvalidInput, status)
	}
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := tr.SetStatus(departmentID, status); err != nil {
		return models.Project{}, err
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return models.Project{}, err
	}
	s.departmentEvent(events.DepartmentStatus, projectID, d, "")
	return s.touched(projectID)
}

// AddArtifact records a deliverable for a department.
func (s *Service) AddArtifact(projectID, departmentID, name string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, fmt.Errorf("team: %w: artifact name is required", ErrInvalidInput)
	}
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := tr.AddArtifact(departmentID, name); err != nil {
		return models.Project{}, err
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return models.Project{}, err
	}
	s.departmentEvent(events.ArtifactAdded, projectID, d, name)
	return s.touched(projectID)
}

// SetProgress records a department's completion percentage as given.
func (s *Service) SetProgress(projectID, departmentID string, percent int) (models.Project, error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := tr.SetProgress(departmentID, percent); err != nil {
		return models.Project{}, err
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return models.Project{}, err
	}
	s.departmentEvent(events.DepartmentProgress, projectID, d, "")
	return s.touched(projectID)
}

// ConfigureDepartment updates a department's model, tasks or estimated time.
func (s *Service) ConfigureDepartment(projectID, departmentID string, patch models.DepartmentPatch) (models.Project, error) {
	if patch.Model != nil && !catalog.KnownModel(*patch.Model) {
		return models.Project{}, fmt.Errorf("team: %w: unknown model %q", ErrInvalidInput, *patch.Model)
	}
	p, err := s.projects.UpdateDepartmentConfig(projectID, departmentID, patch)
	if err != nil {
		return models.Project{}, err
	}
	s.logger.Info("department configured", "project", projectID, "department", departmentID)
	s.bus.Publish(events.Event{
		Type:         events.ProjectUpdated,
		ClientID:     p.ClientID,
		ProjectID:    p.ID,
		ProjectName:  p.Name,
		DepartmentID: departmentID,
	})
	return p, nil
}

// Stats summarizes a project's department pipeline.
func (s *Service) Stats(projectID string) (models.Stats, error) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return models.Stats{}, err
	}
	return tr.Stats(), nil
}

// Overview counts clients and projects for the landing page.
func (s *Service) Overview() models.Overview {
	projects := s.projects.List()
	o := models.Overview{
		TotalClients:  s.clients.Len(),
		TotalProjects: len(projects),
	}
	for _, p := range projects {
		switch p.Status {
		case models.ProjectInProgress:
			o.ActiveProjects++
		case models.ProjectCompleted:
			o.CompletedProjects++
		}
	}
	return o
}

// --- Chat ---

// SendMessage posts a user message to the project chat.
func (s *Service) SendMessage(projectID, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, fmt.Errorf("team: %w: message is empty", ErrInvalidInput)
	}
	if _, err := s.projects.Get(projectID); err != nil {
		return models.ChatMessage{}, err
	}
	return s.chats.Session(projectID).Send(text)
}

// Messages returns the project chat log and whether a reply is pending.
func (s *Service) Messages(projectID string) ([]models.ChatMessage, bool, error) {
	if _, err := s.projects.Get(projectID); err != nil {
		return nil, false, err
	}
	sess := s.chats.Session(projectID)
	return sess.Messages(), sess.Loading(), nil
}

// --- internals ---

func (s *Service) touched(projectID string) (models.Project, error) {
	s.projects.Touch(projectID)
	return s.projects.Get(projectID)
}

func (s *Service) departmentEvent(t events.Type, projectID string, d models.Department, artifact string) {
	evt := events.Event{
		Type:         t,
		ProjectID:    projectID,
		DepartmentID: d.ID,
		Department:   d.Name,
		Status:       string(d.Status),
		Artifact:     artifact,
	}
	if d.CompletionPercentage != nil {
		evt.Progress = *d.CompletionPercentage
	}
	if p, err := s.projects.Get(projectID); err == nil {
		evt.ClientID = p.ClientID
		evt.ProjectName = p.Name
	}
	s.logger.Debug("department event", "type", t, "project", projectID, "department", d.ID, "status", d.Status)
	s.bus.Publish(evt)
}

func (s *Service) onProgress(projectID, departmentID string, percent int) {
	tr, err := s.projects.Tracker(projectID)
	if err != nil {
		return
	}
	d, err := tr.Department(departmentID)
	if err != nil {
		return
	}
	s.projects.Touch(projectID)
	s.departmentEvent(events.DepartmentProgress, projectID, d, "")
}

func (s *Service) onComplete(projectID string, d models.Department, artifacts []string) {
	if _, err := s.projects.Get(projectID); err != nil {
		return
	}
	s.projects.Touch(projectID)
	s.logger.Info("department completed", "project", projectID, "department", d.ID, "artifacts", len(artifacts))
	s.departmentEvent(events.DepartmentCompleted, projectID, d, "")
	sess, live := s.chats.Live(projectID)
	for _, name := range artifacts {
		s.departmentEvent(events.ArtifactAdded, projectID, d, name)
		if live {
			sess.AddArtifact(d.ID, fmt.Sprintf("%s delivered: %s", d.Name, name))
		}
	}
}

func (s *Service) onChatMessage(msg models.ChatMessage) {
	evt := events.Event{
		Type:         events.ChatMessage,
		ProjectID:    msg.ProjectID,
		DepartmentID: msg.DepartmentID,
		Text:         msg.Content,
	}
	if p, err := s.projects.Get(msg.ProjectID); err == nil {
		evt.ClientID = p.ClientID
		evt.ProjectName = p.Name
	}
	s.bus.Publish(evt)
}
