// Package project provides the in-memory project store. Each project owns a
// tracker cloned from the department catalog.
package project

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zulandar/devteam/internal/catalog"
	"github.com/zulandar/devteam/internal/models"
	"github.com/zulandar/devteam/internal/tracker"
)

var (
	// ErrNotFound indicates no project has the requested ID.
	ErrNotFound = errors.New("project not found")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid project input")
)

// CreateOpts holds parameters for creating a project.
type CreateOpts struct {
	ClientID            string
	Name                string
	Description         string
	Status              models.ProjectStatus // defaults to planning
	ActiveDepartments   []string
	Budget              *float64
	EstimatedCompletion string
}

type record struct {
	project models.Project // Departments and CurrentStep live in tracker
	tracker *tracker.Tracker
}

// Store is an ordered, mutex-guarded collection of projects.
type Store struct {
	mu       sync.Mutex
	records  []*record
	trackers tracker.Options
	now      func() time.Time
}

// NewStore returns an empty Store whose trackers use opts.
func NewStore(opts tracker.Options) *Store {
	return &Store{trackers: opts, now: time.Now}
}

// Create instantiates the catalog for the project and appends it.
// ActiveDepartments keeps only known IDs, in catalog order.
func (s *Store) Create(opts CreateOpts) (models.Project, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return models.Project{}, fmt.Errorf("project: %w: name is required", ErrInvalidInput)
	}
	status := opts.Status
	if status == "" {
		status = models.ProjectPlanning
	}
	if !status.Valid() {
		return models.Project{}, fmt.Errorf("project: %w: status %q", ErrInvalidInput, status)
	}

	active := make([]string, 0, len(opts.ActiveDepartments))
	for _, id := range catalog.IDs() {
		if slices.Contains(opts.ActiveDepartments, id) {
			active = append(active, id)
		}
	}

	var budget *float64
	if opts.Budget != nil {
		b := *opts.Budget
		budget = &b
	}

	now := s.now()
	rec := &record{
		project: models.Project{
			ID:                  uuid.NewString(),
			ClientID:            opts.ClientID,
			Name:                opts.Name,
			Description:         opts.Description,
			Status:              status,
			ActiveDepartments:   active,
			Budget:              budget,
			EstimatedCompletion: opts.EstimatedCompletion,
			CreatedAt:           now,
			UpdatedAt:           now,
		},
		tracker: tracker.New(catalog.Instantiate(active), 0, s.trackers),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return rec.viewLocked(), nil
}

// Get returns a snapshot of the project with the given ID.
func (s *Store) Get(id string) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findLocked(id)
	if err != nil {
		return models.Project{}, err
	}
	return rec.viewLocked(), nil
}

// Tracker returns the project's department tracker.
func (s *Store) Tracker(id string) (*tracker.Tracker, error) {
	rec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return rec.tracker, nil
}

// List returns snapshots of all projects in insertion order.
func (s *Store) List() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Project, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.viewLocked()
	}
	return out
}

// ByClient returns the projects referencing clientID, in insertion order.
func (s *Store) ByClient(clientID string) []models.Project {
	var out []models.Project
	for _, p := range s.List() {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out
}

// Update merges patch into the project and refreshes UpdatedAt.
func (s *Store) Update(id string, patch models.ProjectPatch) (models.Project, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Project{}, fmt.Errorf("project: %w: status %q", ErrInvalidInput, *patch.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findLocked(id)
	if err != nil {
		return models.Project{}, err
	}
	p := &rec.project
	if patch.ClientID != nil {
		p.ClientID = *patch.ClientID
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Budget != nil {
		budget := *patch.Budget
		p.Budget = &budget
	}
	if patch.EstimatedCompletion != nil {
		p.EstimatedCompletion = *patch.EstimatedCompletion
	}
	p.UpdatedAt = s.now()
	return rec.viewLocked(), nil
}

// UpdateDepartmentConfig applies a configuration patch to one department.
func (s *Store) UpdateDepartmentConfig(projectID, departmentID string, patch models.DepartmentPatch) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findLocked(projectID)
	if err != nil {
		return models.Project{}, err
	}
	if err := rec.tracker.Configure(departmentID, patch); err != nil {
		return models.Project{}, fmt.Errorf("project: configure %s: %w", departmentID, err)
	}
	rec.project.UpdatedAt = s.now()
	return rec.viewLocked(), nil
}

// Touch refreshes the project's UpdatedAt.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, err := s.findLocked(id); err == nil {
		rec.project.UpdatedAt = s.now()
	}
}

// Delete removes the project.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.project.ID == id {
			s.records = slices.Delete(s.records, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("project: %w: %s", ErrNotFound, id)
}

// Len returns the number of projects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) find(id string) (*record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Store) findLocked(id string) (*record, error) {
	for _, rec := range s.records {
		if rec.project.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("project: %w: %s", ErrNotFound, id)
}

// viewLocked merges the project metadata with a tracker snapshot. The store
// lock must be held; the tracker lock nests inside it.
func (rec *record) viewLocked() models.Project {
	p := rec.project
	p.ActiveDepartments = slices.Clone(rec.project.ActiveDepartments)
	if rec.project.Budget != nil {
		budget := *rec.project.Budget
		p.Budget = &budget
	}
	p.Departments, p.CurrentStep = rec.tracker.Snapshot()
	return p
}
