// Package tracker owns the per-project department pipeline: status, progress,
// artifacts, and the current step.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/zulandar/devteam/internal/models"
)

// Placeholder estimates reported by Stats. They are not derived from timing data.
const (
	EstimatedCompletion = "2-3 hours"
	TimeSpent           = "45 min"
)

var (
	// ErrUnknownDepartment indicates the department ID is not part of the pipeline.
	ErrUnknownDepartment = errors.New("unknown department")
	// ErrDisabled indicates the department was not selected for the project.
	ErrDisabled = errors.New("department is disabled")
)

// Options tunes tracker behavior.
type Options struct {
	// AllowParallel lets StartNext start a department while another one is
	// still in progress.
	AllowParallel bool
}

// Tracker holds the ordered department instances of one project.
type Tracker struct {
	mu          sync.Mutex
	departments []models.Department
	currentStep int
	opts        Options
}

// New creates a Tracker that takes ownership of a deep copy of depts.
func New(depts []models.Department, currentStep int, opts Options) *Tracker {
	owned := make([]models.Department, len(depts))
	for i, d := range depts {
		owned[i] = d.Clone()
	}
	return &Tracker{departments: owned, currentStep: currentStep, opts: opts}
}

// Snapshot returns a deep copy of the departments and the current step.
func (t *Tracker) Snapshot() ([]models.Department, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Department, len(t.departments))
	for i, d := range t.departments {
		out[i] = d.Clone()
	}
	return out, t.currentStep
}

// CurrentStep returns the index of the department currently eligible to run.
func (t *Tracker) CurrentStep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentStep
}

// Department returns a copy of the department with the given ID.
func (t *Tracker) Department(id string) (models.Department, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.indexLocked(id)
	if i < 0 {
		return models.Department{}, fmt.Errorf("tracker: %w: %s", ErrUnknownDepartment, id)
	}
	return t.departments[i].Clone(), nil
}

// SetStatus overrides a department's status without validating the transition.
// Disabled departments never transition.
func (t *Tracker) SetStatus(id string, status models.DepartmentStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	if d.Status == models.DepartmentDisabled {
		return fmt.Errorf("tracker: %w: %s", ErrDisabled, id)
	}
	d.Status = status
	return nil
}

// AddArtifact appends name to the department's artifact list. Duplicates are kept.
func (t *Tracker) AddArtifact(id, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	d.Artifacts = append(d.Artifacts, name)
	return nil
}

// SetProgress records the department's completion percentage as given.
func (t *Tracker) SetProgress(id string, percent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	d.CompletionPercentage = &percent
	return nil
}

// Configure applies a department configuration patch.
func (t *Tracker) Configure(id string, patch models.DepartmentPatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := t.lookupLocked(id)
	if err != nil {
		return err
	}
	if patch.Model != nil {
		d.Model = *patch.Model
	}
	if patch.Tasks != nil {
		d.Tasks = append([]string{}, (*patch.Tasks)...)
	}
	if patch.EstimatedTime != nil {
		d.EstimatedTime = *patch.EstimatedTime
	}
	return nil
}

// StartNext moves the first pending department to in-progress and makes it
// the current step. It returns the started index and true, or -1 and false
// when nothing was started: no department is pending, or another department
// is in progress and parallel execution is off.
func (t *Tracker) StartNext() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.opts.AllowParallel && t.inProgressLocked() > 0 {
		return -1, false
	}
	for i := range t.departments {
		if t.departments[i].Status == models.DepartmentPending {
			t.currentStep = i
			t.departments[i].Status = models.DepartmentInProgress
			return i, true
		}
	}
	return -1, false
}

// CompleteCurrent marks the department at the current step completed,
// whatever its prior status. It returns the completed department's ID.
func (t *Tracker) CompleteCurrent() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentStep < 0 || t.currentStep >= len(t.departments) {
		return "", false
	}
	d := &t.departments[t.currentStep]
	if d.Status == models.DepartmentDisabled {
		return "", false
	}
	d.Status = models.DepartmentCompleted
	return d.ID, true
}

// Stats derives counts over the pipeline.
func (t *Tracker) Stats() models.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := models.Stats{
		TotalDepartments:    len(t.departments),
		EstimatedCompletion: EstimatedCompletion,
		TimeSpent:           TimeSpent,
	}
	enabledDone := 0
	for _, d := range t.departments {
		switch d.Status {
		case models.DepartmentCompleted:
			s.CompletedDepartments++
		case models.DepartmentInProgress:
			s.InProgressDepartments++
		}
		if d.IsEnabled {
			s.ActiveDepartments++
			if d.Status == models.DepartmentCompleted {
				enabledDone++
			}
		}
		s.TotalArtifacts += len(d.Artifacts)
	}
	if s.ActiveDepartments > 0 {
		s.Progress = int(math.Round(float64(enabledDone) / float64(s.ActiveDepartments) * 100))
	}
	return s
}

func (t *Tracker) inProgressLocked() int {
	n := 0
	for _, d := range t.departments {
		if d.Status == models.DepartmentInProgress {
			n++
		}
	}
	return n
}

func (t *Tracker) indexLocked(id string) int {
	for i := range t.departments {
		if t.departments[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Tracker) lookupLocked(id string) (*models.Department, error) {
	i := t.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("tracker: %w: %s", ErrUnknownDepartment, id)
	}
	return &t.departments[i], nil
}
