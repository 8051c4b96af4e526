package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"firma/internal/domain"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func requestToModel(req *domain.SignatureRequest) SignatureRequestModel {
	return SignatureRequestModel{
		ID:           req.ID,
		Title:        req.Title,
		DocumentPath: req.DocumentPath,
		Status:       string(req.Status),
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
		PublicToken:  req.PublicToken,
		CreatedAt:    req.CreatedAt,
		ExpiresAt:    req.ExpiresAt,
	}
}

func requestFromModel(m SignatureRequestModel) *domain.SignatureRequest {
	return &domain.SignatureRequest{
		ID:           m.ID,
		Title:        m.Title,
		DocumentPath: m.DocumentPath,
		Status:       domain.RequestStatus(m.Status),
		CreatorName:  m.CreatorName,
		CreatorEmail: m.CreatorEmail,
		PublicToken:  m.PublicToken,
		CreatedAt:    m.CreatedAt,
		ExpiresAt:    m.ExpiresAt,
	}
}

// Create inserts the request together with its signer set in one transaction.
func (r *RequestRepository) Create(ctx context.Context, req *domain.SignatureRequest, signers []*domain.Signer) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if req.ID == "" {
		return errors.New("request id is required")
	}
	model := requestToModel(req)
	signerModels := make([]SignerModel, 0, len(signers))
	for _, s := range signers {
		signerModels = append(signerModels, signerToModel(s))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(signerModels) > 0 {
			if err := tx.Create(&signerModels).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RequestRepository) Get(ctx context.Context, id string) (*domain.SignatureRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SignatureRequestModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return requestFromModel(model), nil
}

// MarkSignedIfComplete flips the request to signed when no unsigned signer
// remains. The guarded UPDATE makes the transition happen at most once even
// under concurrent commits; only the winning call reports true.
func (r *RequestRepository) MarkSignedIfComplete(ctx context.Context, requestID string, signedAt time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var transitioned bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var remaining int64
		err := tx.Model(&SignerModel{}).
			Where("request_id = ? AND status <> ?", requestID, string(domain.SignerSigned)).
			Count(&remaining).Error
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		res := tx.Model(&SignatureRequestModel{}).
			Where("id = ? AND status = ?", requestID, string(domain.RequestPending)).
			Update("status", string(domain.RequestSigned))
		if res.Error != nil {
			return res.Error
		}
		transitioned = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return transitioned, nil
}

// Cancel moves a pending request and its pending signers to cancelled.
func (r *RequestRepository) Cancel(ctx context.Context, requestID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&SignatureRequestModel{}).
			Where("id = ? AND status = ?", requestID, string(domain.RequestPending)).
			Update("status", string(domain.RequestCancelled))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&SignatureRequestModel{}).Where("id = ?", requestID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrAlreadySignedOrCancelled
		}
		return tx.Model(&SignerModel{}).
			Where("request_id = ? AND status = ?", requestID, string(domain.SignerPending)).
			Update("status", string(domain.SignerCancelled)).Error
	})
}

// ExpireDue transitions every pending request whose deadline passed, together
// with its pending signers, and returns the affected requests.
func (r *RequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]domain.SignatureRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var expired []domain.SignatureRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []SignatureRequestModel
		err := tx.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(domain.RequestPending), now).
			Find(&models).Error
		if err != nil {
			return err
		}
		for _, m := range models {
			res := tx.Model(&SignatureRequestModel{}).
				Where("id = ? AND status = ?", m.ID, string(domain.RequestPending)).
				Update("status", string(domain.RequestExpired))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			err := tx.Model(&SignerModel{}).
				Where("request_id = ? AND status = ?", m.ID, string(domain.SignerPending)).
				Update("status", string(domain.SignerExpired)).Error
			if err != nil {
				return err
			}
			req := requestFromModel(m)
			req.Status = domain.RequestExpired
			expired = append(expired, *req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
