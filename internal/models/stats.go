package models

// Stats summarizes a project's department pipeline.
type Stats struct {
	TotalDepartments      int    `json:"total_departments"`
	ActiveDepartments     int    `json:"active_departments"`
	CompletedDepartments  int    `json:"completed_departments"`
	InProgressDepartments int    `json:"in_progress_departments"`
	TotalArtifacts        int    `json:"total_artifacts"`
	Progress              int    `json:"progress"`
	EstimatedCompletion   string `json:"estimated_completion"`
	TimeSpent             string `json:"time_spent"`
}

// Pending returns the number of departments neither completed nor in progress.
func (s Stats) Pending() int {
	return s.TotalDepartments - s.CompletedDepartments - s.InProgressDepartments
}

// Overview summarizes the whole workspace for the landing page.
type Overview struct {
	TotalClients      int `json:"total_clients"`
	TotalProjects     int `json:"total_projects"`
	ActiveProjects    int `json:"active_projects"`
	CompletedProjects int `json:"completed_projects"`
}
