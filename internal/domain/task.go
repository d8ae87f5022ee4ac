package domain

import (
	"encoding/json"
	"time"
)

type TaskType string

const (
	TaskFileUpload       TaskType = "FILE_UPLOAD"
	TaskCommandExecution TaskType = "COMMAND_EXECUTION"
)

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the durable record of one inbound unit of work. Result is only
// set on completion and Error only on failure.
type Task struct {
	ID        string          `json:"id"`
	Type      TaskType        `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type UploadPayload struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

type CommandPayload struct {
	Command string `json:"command"`
}
