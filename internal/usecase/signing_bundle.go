package usecase

import (
	"context"
	"errors"

	"firma/internal/domain"
)

// Bundle is everything the signing page needs, looked up by the opaque
// per-signer token.
type Bundle struct {
	Signer  domain.Signer
	Request domain.SignatureRequest
	Fields  []domain.SignatureField
	Creator struct {
		Name  string
		Email string
	}
}

// SigningBundle resolves a signer token into the public signing bundle and
// records the view (deduplicated, best-effort).
type SigningBundle struct {
	Signers  SignerRepository
	Requests RequestRepository
	Fields   FieldRepository
	Audit    *AuditTrail
	Clock    Clock
}

type BundleRequest struct {
	Token     string
	IP        string
	UserAgent string
}

func (b *SigningBundle) Execute(ctx context.Context, req BundleRequest) (*Bundle, error) {
	if b == nil || b.Signers == nil || b.Requests == nil || b.Fields == nil {
		return nil, errors.New("signing bundle requires signer, request and field repositories")
	}
	if req.Token == "" {
		return nil, domain.ErrNotFound
	}
	signer, err := b.Signers.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	request, err := b.Requests.Get(ctx, signer.RequestID)
	if err != nil {
		return nil, err
	}

	fields, err := b.Fields.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	applicable := fields[:0]
	for _, f := range fields {
		if f.AppliesTo(signer.ID) {
			applicable = append(applicable, f)
		}
	}

	// Viewed is informational: a failed audit write must not block signing.
	if b.Audit != nil {
		if _, err := b.Audit.Append(ctx, domain.AuditLogEntry{
			RequestID:   request.ID,
			SignerID:    signer.ID,
			Action:      domain.AuditViewed,
			Description: "Documento visualizado pelo signatario",
			IP:          req.IP,
			UserAgent:   req.UserAgent,
		}); err != nil {
			// best-effort by contract
			_ = err
		}
	}

	bundle := &Bundle{
		Signer:  *signer,
		Request: *request,
		Fields:  applicable,
	}
	bundle.Creator.Name = request.CreatorName
	bundle.Creator.Email = request.CreatorEmail
	return bundle, nil
}

// AdvanceStep moves a signer through the workflow, validating the transition
// table server-side so a crafted request cannot skip required steps.
type AdvanceStep struct {
	Signers SignerRepository
}

type AdvanceRequest struct {
	Token  string
	To     domain.SigningStep
	Update domain.SignerUpdate
}

func (a *AdvanceStep) Execute(ctx context.Context, req AdvanceRequest) (*domain.Signer, error) {
	if a == nil || a.Signers == nil {
		return nil, errors.New("advance step requires a signer repository")
	}
	if !req.To.Valid() {
		return nil, domain.Invalid("step", "unknown signing step")
	}
	signer, err := a.Signers.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if signer.Status != domain.SignerPending {
		return nil, domain.ErrAlreadySignedOrCancelled
	}
	if !signer.Step.CanAdvance(req.To) {
		return nil, domain.ErrInvalidStep
	}
	if err := validateStepData(req.To, req.Update); err != nil {
		return nil, err
	}
	if err := a.Signers.AdvanceStep(ctx, signer.ID, signer.Step, req.To, req.Update); err != nil {
		return nil, err
	}
	return a.Signers.GetByToken(ctx, req.Token)
}

// validateStepData rejects malformed step payloads locally, returning the
// caller to the same step.
func validateStepData(to domain.SigningStep, u domain.SignerUpdate) error {
	switch to {
	case domain.StepData:
		if u.Name != nil && *u.Name == "" {
			return domain.Invalid("name", "must not be empty")
		}
		if u.Email != nil && *u.Email == "" {
			return domain.Invalid("email", "must not be empty")
		}
	case domain.StepLocation:
		if u.Geolocation != nil {
			if u.Geolocation.Lat < -90 || u.Geolocation.Lat > 90 {
				return domain.Invalid("lat", "out of range")
			}
			if u.Geolocation.Lon < -180 || u.Geolocation.Lon > 180 {
				return domain.Invalid("lon", "out of range")
			}
		}
	}
	return nil
}
