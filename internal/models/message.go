package models

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser       Sender = "user"
	SenderSystem     Sender = "system"
	SenderDepartment Sender = "department"
)

// MessageKind distinguishes plain text from artifact and system notices.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindArtifact MessageKind = "artifact"
	KindSystem   MessageKind = "system"
)

// ChatMessage is one entry in a project's append-only chat log.
type ChatMessage struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	Sender       Sender      `json:"sender"`
	DepartmentID string      `json:"department_id,omitempty"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
	Kind         MessageKind `json:"type"`
}
