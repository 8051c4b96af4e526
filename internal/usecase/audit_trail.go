package usecase

import (
	"context"
	"errors"
	"time"

	"firma/internal/domain"
)

// ViewedDedupWindow collapses rapid repeat page loads by the same signer into
// a single viewed row, first-viewed-wins.
const ViewedDedupWindow = 5 * time.Minute

// AuditTrail appends lifecycle events. The log is append-only; dedup happens
// here, before insert, so repositories never mutate rows.
type AuditTrail struct {
	Repo  AuditRepository
	Clock Clock
}

func NewAuditTrail(repo AuditRepository, clock Clock) *AuditTrail {
	return &AuditTrail{Repo: repo, Clock: clock}
}

func (t *AuditTrail) now() time.Time {
	if t != nil && t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}

// Append records one event. recorded is false when a viewed event fell inside
// the dedup window and was dropped.
func (t *AuditTrail) Append(ctx context.Context, entry domain.AuditLogEntry) (recorded bool, err error) {
	if t == nil || t.Repo == nil {
		return false, errors.New("audit repository required")
	}
	if entry.RequestID == "" || entry.Action == "" {
		return false, errors.New("audit entry missing request or action")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}

	if entry.Action == domain.AuditViewed {
		last, err := t.Repo.LastActionAt(ctx, entry.RequestID, entry.SignerID, domain.AuditViewed)
		if err != nil {
			return false, err
		}
		if last != nil && entry.CreatedAt.Sub(*last) < ViewedDedupWindow {
			return false, nil
		}
	}

	if _, err := t.Repo.Append(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

func (t *AuditTrail) List(ctx context.Context, requestID string) ([]domain.AuditLogEntry, error) {
	if t == nil || t.Repo == nil {
		return nil, errors.New("audit repository required")
	}
	return t.Repo.ListByRequest(ctx, requestID)
}
