package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"firma/internal/domain"
)

type SignerRepository struct {
	db *gorm.DB
}

func NewSignerRepository(db *gorm.DB) *SignerRepository {
	return &SignerRepository{db: db}
}

func signerToModel(s *domain.Signer) SignerModel {
	m := SignerModel{
		ID:                 s.ID,
		RequestID:          s.RequestID,
		Name:               s.Name,
		Email:              s.Email,
		Phone:              s.Phone,
		CPF:                s.CPF,
		Status:             string(s.Status),
		Step:               string(s.Step),
		AccessToken:        s.AccessToken,
		VerificationCode:   s.VerificationCode,
		SignatureImagePath: s.SignatureImagePath,
		FacialImagePath:    s.FacialImagePath,
		DocumentImagePath:  s.DocumentImagePath,
		IP:                 s.IP,
		UserAgent:          s.UserAgent,
		AuthProvider:       s.AuthProvider,
		AuthContact:        s.AuthContact,
		ArtifactPath:       s.ArtifactPath,
		ArtifactHash:       s.ArtifactHash,
		SignedAt:           s.SignedAt,
		CreatedAt:          s.CreatedAt,
	}
	if s.Geolocation != nil {
		lat, lon := s.Geolocation.Lat, s.Geolocation.Lon
		m.Latitude, m.Longitude = &lat, &lon
	}
	return m
}

func signerFromModel(m SignerModel) *domain.Signer {
	s := &domain.Signer{
		ID:                 m.ID,
		RequestID:          m.RequestID,
		Name:               m.Name,
		Email:              m.Email,
		Phone:              m.Phone,
		CPF:                m.CPF,
		Status:             domain.SignerStatus(m.Status),
		Step:               domain.SigningStep(m.Step),
		AccessToken:        m.AccessToken,
		VerificationCode:   m.VerificationCode,
		SignatureImagePath: m.SignatureImagePath,
		FacialImagePath:    m.FacialImagePath,
		DocumentImagePath:  m.DocumentImagePath,
		IP:                 m.IP,
		UserAgent:          m.UserAgent,
		AuthProvider:       m.AuthProvider,
		AuthContact:        m.AuthContact,
		ArtifactPath:       m.ArtifactPath,
		ArtifactHash:       m.ArtifactHash,
		SignedAt:           m.SignedAt,
		CreatedAt:          m.CreatedAt,
	}
	if m.Latitude != nil && m.Longitude != nil {
		s.Geolocation = &domain.Geolocation{Lat: *m.Latitude, Lon: *m.Longitude}
	}
	return s
}

func (r *SignerRepository) getWhere(ctx context.Context, query string, arg any) (*domain.Signer, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SignerModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return signerFromModel(model), nil
}

func (r *SignerRepository) GetByToken(ctx context.Context, token string) (*domain.Signer, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, "access_token = ?", token)
}

func (r *SignerRepository) GetByVerificationCode(ctx context.Context, code string) (*domain.Signer, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, "verification_code = ?", code)
}

func (r *SignerRepository) GetByArtifactHash(ctx context.Context, hash string) (*domain.Signer, error) {
	if hash == "" {
		return nil, domain.ErrNotFound
	}
	return r.getWhere(ctx, "artifact_hash = ?", hash)
}

func (r *SignerRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Signer, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []SignerModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	signers := make([]domain.Signer, 0, len(models))
	for _, m := range models {
		signers = append(signers, *signerFromModel(m))
	}
	return signers, nil
}

// AdvanceStep moves the workflow pointer with a guarded UPDATE on the current
// status and step. A missed guard means the signer moved concurrently.
func (r *SignerRepository) AdvanceStep(ctx context.Context, signerID string, from, to domain.SigningStep, update domain.SignerUpdate) error {
	if r.db == nil {
		return errDBUnavailable
	}
	values := map[string]any{"step": string(to)}
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.Email != nil {
		values["email"] = *update.Email
	}
	if update.Phone != nil {
		values["phone"] = *update.Phone
	}
	if update.CPF != nil {
		values["cpf"] = *update.CPF
	}
	if update.Geolocation != nil {
		values["latitude"] = update.Geolocation.Lat
		values["longitude"] = update.Geolocation.Lon
	}
	if update.AuthProvider != nil {
		values["auth_provider"] = *update.AuthProvider
	}
	if update.AuthContact != nil {
		values["auth_contact"] = *update.AuthContact
	}

	res := r.db.WithContext(ctx).Model(&SignerModel{}).
		Where("id = ? AND status = ? AND step = ?", signerID, string(domain.SignerPending), string(from)).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&SignerModel{}).Where("id = ?", signerID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidStep
	}
	return nil
}

// CommitPending freezes the signer record. The status guard is the
// concurrency barrier: whichever confirm lands first wins and every later one
// gets ErrAlreadySignedOrCancelled.
func (r *SignerRepository) CommitPending(ctx context.Context, signer *domain.Signer) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := signerToModel(signer)
	res := r.db.WithContext(ctx).Model(&SignerModel{}).
		Where("id = ? AND status = ?", signer.ID, string(domain.SignerPending)).
		Updates(map[string]any{
			"name":                 model.Name,
			"email":                model.Email,
			"phone":                model.Phone,
			"cpf":                  model.CPF,
			"status":               model.Status,
			"step":                 model.Step,
			"signature_image_path": model.SignatureImagePath,
			"facial_image_path":    model.FacialImagePath,
			"document_image_path":  model.DocumentImagePath,
			"ip":                   model.IP,
			"user_agent":           model.UserAgent,
			"latitude":             model.Latitude,
			"longitude":            model.Longitude,
			"auth_provider":        model.AuthProvider,
			"auth_contact":         model.AuthContact,
			"artifact_path":        model.ArtifactPath,
			"artifact_hash":        model.ArtifactHash,
			"signed_at":            model.SignedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&SignerModel{}).Where("id = ?", signer.ID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadySignedOrCancelled
	}
	return nil
}
