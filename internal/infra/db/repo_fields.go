package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"firma/internal/domain"
)

type FieldRepository struct {
	db *gorm.DB
}

func NewFieldRepository(db *gorm.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

func fieldToModel(f domain.SignatureField) SignatureFieldModel {
	return SignatureFieldModel{
		ID:        f.ID,
		RequestID: f.RequestID,
		SignerID:  f.SignerID,
		Kind:      string(f.Kind),
		Page:      f.Page,
		X:         f.X,
		Y:         f.Y,
		W:         f.W,
		H:         f.H,
	}
}

func fieldFromModel(m SignatureFieldModel) domain.SignatureField {
	return domain.SignatureField{
		ID:        m.ID,
		RequestID: m.RequestID,
		SignerID:  m.SignerID,
		Kind:      domain.FieldKind(m.Kind),
		Page:      m.Page,
		X:         m.X,
		Y:         m.Y,
		W:         m.W,
		H:         m.H,
	}
}

// ReplaceAll swaps the request's whole field set in one transaction. Server
// ids are minted here; client-sent ids are ignored.
func (r *FieldRepository) ReplaceAll(ctx context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	now := time.Now().UTC()
	models := make([]SignatureFieldModel, 0, len(fields))
	out := make([]domain.SignatureField, 0, len(fields))
	for _, f := range fields {
		id, err := newUUID()
		if err != nil {
			return nil, err
		}
		f.ID = id
		f.RequestID = requestID
		m := fieldToModel(f)
		m.CreatedAt = now
		models = append(models, m)
		out = append(out, f)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", requestID).Delete(&SignatureFieldModel{}).Error; err != nil {
			return err
		}
		if len(models) > 0 {
			if err := tx.Create(&models).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FieldRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.SignatureField, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SignatureFieldModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("page ASC, created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	fields := make([]domain.SignatureField, 0, len(models))
	for _, m := range models {
		fields = append(fields, fieldFromModel(m))
	}
	return fields, nil
}
