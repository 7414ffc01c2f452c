package domain

import "time"

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a toast-style message surfaced to the dashboard user.
type Notice struct {
	NoticeID  string      `json:"id"`
	TenantID  string      `json:"tenant_id,omitempty"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created"`
}
