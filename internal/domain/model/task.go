package model

import "encoding/json"

// TaskState is the lifecycle status of a server-side async task.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether polling should stop.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskStatus is the payload returned by the quick-search status endpoint.
type TaskStatus struct {
	TaskID   string          `json:"task_id"`
	Status   TaskState       `json:"status"`
	Progress float64         `json:"progress,omitempty"`
	Message  string          `json:"message,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ImpersonationGrant is what the admin API hands back when an admin asks to act as another user.
type ImpersonationGrant struct {
	AccessToken string          `json:"access_token"`
	User        GrantedIdentity `json:"user"`
}

// GrantedIdentity mirrors the public user summary embedded in an ImpersonationGrant.
type GrantedIdentity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}
