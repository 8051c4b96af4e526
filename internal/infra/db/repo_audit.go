package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"firma/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func auditFromModel(m AuditLogModel) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:          m.ID,
		RequestID:   m.RequestID,
		SignerID:    m.SignerID,
		Action:      domain.AuditAction(m.Action),
		Description: m.Description,
		IP:          m.IP,
		UserAgent:   m.UserAgent,
		CreatedAt:   m.CreatedAt,
	}
}

// Append inserts one event. The table is insert-only; no update or delete
// path exists in this repository.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	if r.db == nil {
		return domain.AuditLogEntry{}, errDBUnavailable
	}
	if entry.RequestID == "" {
		return domain.AuditLogEntry{}, errors.New("request id is required")
	}
	id, err := newUUID()
	if err != nil {
		return domain.AuditLogEntry{}, err
	}
	entry.ID = id
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	model := AuditLogModel{
		ID:          entry.ID,
		RequestID:   entry.RequestID,
		SignerID:    entry.SignerID,
		Action:      string(entry.Action),
		Description: entry.Description,
		IP:          entry.IP,
		UserAgent:   entry.UserAgent,
		CreatedAt:   entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditLogEntry{}, err
	}
	return entry, nil
}

func (r *AuditRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.AuditLogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditLogModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entries := make([]domain.AuditLogEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, auditFromModel(m))
	}
	return entries, nil
}

func (r *AuditRepository) LastActionAt(ctx context.Context, requestID, signerID string, action domain.AuditAction) (*time.Time, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model AuditLogModel
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND signer_id = ? AND action = ?", requestID, signerID, string(action)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := model.CreatedAt
	return &t, nil
}
