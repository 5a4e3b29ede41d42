package models

import "time"

// ProjectStatus is the coarse lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectPaused     ProjectStatus = "paused"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectPaused:
		return true
	}
	return false
}

// Project is a client engagement run through the department pipeline.
type Project struct {
	ID                  string        `json:"id"`
	ClientID            string        `json:"client_id"`
	Name                string        `json:"name"`
	Description         string        `json:"description"`
	Status              ProjectStatus `json:"status"`
	ActiveDepartments   []string      `json:"active_departments"`
	CurrentStep         int           `json:"current_step"`
	Departments         []Department  `json:"departments"`
	Budget              *float64      `json:"budget,omitempty"`
	EstimatedCompletion string        `json:"estimated_completion,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// ProjectPatch holds a partial project update. The department selection is
// fixed at creation time and cannot be patched.
type ProjectPatch struct {
	ClientID            *string        `json:"client_id,omitempty"`
	Name                *string        `json:"name,omitempty"`
	Description         *string        `json:"description,omitempty"`
	Status              *ProjectStatus `json:"status,omitempty"`
	Budget              *float64       `json:"budget,omitempty"`
	EstimatedCompletion *string        `json:"estimated_completion,omitempty"`
}
