package domain

import "time"

type AuditAction string

const (
	AuditCreated      AuditAction = "created"
	AuditSent         AuditAction = "sent"
	AuditViewed       AuditAction = "viewed"
	AuditSigned       AuditAction = "signed"
	AuditCancelled    AuditAction = "cancelled"
	AuditExpired      AuditAction = "expired"
	AuditReminderSent AuditAction = "reminder_sent"
)

// AuditLogEntry is append-only: entries are never edited or deleted except by
// bulk cascade with the parent request.
type AuditLogEntry struct {
	ID          string
	RequestID   string
	SignerID    string
	Action      AuditAction
	Description string
	IP          string
	UserAgent   string
	CreatedAt   time.Time
}
