package notify

import (
	"fmt"
	"strings"

	"github.com/zulandar/devteam/internal/events"
)

// Severity levels carried by FormattedEvent.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// departmentStatusSeverity returns the severity for a department status.
func departmentStatusSeverity(status string) string {
	switch status {
	case "completed":
		return SeveritySuccess
	case "disabled":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// FormatEvent turns a bus event into a chat attachment.
func FormatEvent(evt events.Event) FormattedEvent {
	severity := SeverityInfo
	var title string
	var body []string

	dept := evt.Department
	if dept == "" {
		dept = evt.DepartmentID
	}

	switch evt.Type {
	case events.ClientCreated:
		title = fmt.Sprintf("Client %s added", evt.Text)
	case events.ClientUpdated:
		title = fmt.Sprintf("Client %s updated", evt.Text)
	case events.ClientDeleted:
		title = "Client removed"
		severity = SeverityWarning
	case events.ProjectCreated:
		title = fmt.Sprintf("Project %s created", evt.ProjectName)
	case events.ProjectUpdated:
		title = fmt.Sprintf("Project %s updated", evt.ProjectName)
		if evt.Status != "" {
			body = append(body, fmt.Sprintf("Status: %s", evt.Status))
		}
	case events.ProjectDeleted:
		title = fmt.Sprintf("Project %s deleted", evt.ProjectName)
		severity = SeverityWarning
	case events.DepartmentStarted:
		title = fmt.Sprintf("%s started", dept)
	case events.DepartmentProgress:
		title = fmt.Sprintf("%s at %d%%", dept, evt.Progress)
	case events.DepartmentCompleted:
		title = fmt.Sprintf("%s completed", dept)
		severity = SeveritySuccess
	case events.DepartmentStatus:
		title = fmt.Sprintf("%s is now %s", dept, evt.Status)
		severity = departmentStatusSeverity(evt.Status)
	case events.ArtifactAdded:
		title = fmt.Sprintf("%s delivered %s", dept, evt.Artifact)
		severity = SeveritySuccess
	case events.ChatMessage:
		title = "New chat message"
		body = append(body, evt.Text)
	default:
		title = string(evt.Type)
	}

	if evt.ProjectName != "" && evt.Type != events.ProjectCreated &&
		evt.Type != events.ProjectUpdated && evt.Type != events.ProjectDeleted {
		body = append(body, fmt.Sprintf("Project: %s", evt.ProjectName))
	}

	var fields []Field
	if evt.ProjectID != "" {
		fields = append(fields, Field{Name: "Project", Value: evt.ProjectID, Short: true})
	}
	if evt.DepartmentID != "" {
		fields = append(fields, Field{Name: "Department", Value: evt.DepartmentID, Short: true})
	}
	if evt.Status != "" {
		fields = append(fields, Field{Name: "Status", Value: evt.Status, Short: true})
	}

	return FormattedEvent{
		Title:    title,
		Body:     strings.Join(body, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}
