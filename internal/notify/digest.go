package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/devteam/internal/models"
)

// DigestSource is the read side of the workspace a digest summarizes.
// *team.Service satisfies it.
type DigestSource interface {
	Overview() models.Overview
	Projects() []models.Project
	Stats(projectID string) (models.Stats, error)
}

// Digest is a point-in-time summary of every project.
type Digest struct {
	At       time.Time
	Overview models.Overview
	Projects []ProjectDigest
}

// ProjectDigest holds per-project metrics for digest reports.
type ProjectDigest struct {
	Name      string
	Status    models.ProjectStatus
	Progress  int
	Completed int
	Active    int
	Artifacts int
	Current   string // department in progress at the current step, if any
}

// ParseSchedule parses a 5-field cron expression or descriptor like "@daily".
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("notify: digest schedule %q: %w", expr, err)
	}
	return sched, nil
}

// nextDigestDelay returns the duration from now until the schedule next fires.
func nextDigestDelay(sched cron.Schedule, now time.Time) time.Duration {
	d := sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// BuildDigest snapshots src. It returns false when there are no projects.
func BuildDigest(src DigestSource, now time.Time) (Digest, bool) {
	projects := src.Projects()
	if len(projects) == 0 {
		return Digest{}, false
	}
	d := Digest{At: now, Overview: src.Overview()}
	for _, p := range projects {
		pd := ProjectDigest{Name: p.Name, Status: p.Status}
		if st, err := src.Stats(p.ID); err == nil {
			pd.Progress = st.Progress
			pd.Completed = st.CompletedDepartments
			pd.Active = st.ActiveDepartments
			pd.Artifacts = st.TotalArtifacts
		}
		if p.CurrentStep >= 0 && p.CurrentStep < len(p.Departments) {
			if cur := p.Departments[p.CurrentStep]; cur.Status == models.DepartmentInProgress {
				pd.Current = cur.Name
			}
		}
		d.Projects = append(d.Projects, pd)
	}
	return d, true
}

// FormatDigest renders a digest as a single chat attachment.
func FormatDigest(d Digest) FormattedEvent {
	var b strings.Builder
	for _, p := range d.Projects {
		fmt.Fprintf(&b, "• %s (%s): %d%%, %d/%d departments, %d artifacts",
			p.Name, p.Status, p.Progress, p.Completed, p.Active, p.Artifacts)
		if p.Current != "" {
			fmt.Fprintf(&b, ", %s working", p.Current)
		}
		b.WriteString("\n")
	}
	return FormattedEvent{
		Title:    fmt.Sprintf("Team digest for %s", d.At.Format("Jan 2 15:04")),
		Body:     strings.TrimSuffix(b.String(), "\n"),
		Severity: SeverityInfo,
		Color:    ColorInfo,
		Fields: []Field{
			{Name: "Clients", Value: fmt.Sprintf("%d", d.Overview.TotalClients), Short: true},
			{Name: "Projects", Value: fmt.Sprintf("%d", d.Overview.TotalProjects), Short: true},
			{Name: "In progress", Value: fmt.Sprintf("%d", d.Overview.ActiveProjects), Short: true},
			{Name: "Completed", Value: fmt.Sprintf("%d", d.Overview.CompletedProjects), Short: true},
		},
	}
}
