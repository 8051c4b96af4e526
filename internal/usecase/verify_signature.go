package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"firma/internal/domain"
	"firma/pkg/fingerprint"
)

// ArtifactURLTTL bounds how long a verification page's download link stays
// valid.
const ArtifactURLTTL = 15 * time.Minute

// VerificationCacheTTL keeps hot verification codes out of the database.
const VerificationCacheTTL = 5 * time.Minute

// VerifySignature serves the public verification surface. Lookups are
// anonymous, so the response never discloses more than the summary and every
// miss collapses into not-found.
type VerifySignature struct {
	Requests RequestRepository
	Signers  SignerRepository
	Store    domain.ObjectStore
	Cache    VerificationCache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func (v *VerifySignature) cacheTTL() time.Duration {
	if v.CacheTTL > 0 {
		return v.CacheTTL
	}
	return VerificationCacheTTL
}

func (v *VerifySignature) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// ByCode resolves a printed verification code. Codes that are not 16 hex
// characters are rejected without touching storage.
func (v *VerifySignature) ByCode(ctx context.Context, code string) (*domain.VerificationSummary, error) {
	if v == nil || v.Requests == nil || v.Signers == nil {
		return nil, errors.New("verification requires request and signer repositories")
	}
	if !fingerprint.ValidCode(code) {
		return nil, domain.ErrNotFound
	}

	if v.Cache != nil {
		if cached, ok, err := v.Cache.Get(ctx, code); err == nil && ok {
			return cached, nil
		}
	}

	signer, err := v.Signers.GetByVerificationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	summary, err := v.summarize(ctx, signer)
	if err != nil {
		return nil, err
	}

	if v.Cache != nil {
		if err := v.Cache.Put(ctx, code, *summary, v.cacheTTL()); err != nil {
			v.logger().Warn("verification cache write failed", "error", err)
		}
	}
	return summary, nil
}

// ByUploadedArtifact matches an uploaded document against stored artifacts by
// content hash. Only byte-identical certified artifacts verify.
func (v *VerifySignature) ByUploadedArtifact(ctx context.Context, document []byte) (*domain.VerificationSummary, error) {
	if v == nil || v.Requests == nil || v.Signers == nil {
		return nil, errors.New("verification requires request and signer repositories")
	}
	if len(document) == 0 {
		return nil, domain.ErrNotFound
	}
	signer, err := v.Signers.GetByArtifactHash(ctx, fingerprint.ContentHash(document))
	if err != nil {
		return nil, err
	}
	return v.summarize(ctx, signer)
}

// summarize builds the public view. Signers that never reached signed are
// indistinguishable from unknown codes.
func (v *VerifySignature) summarize(ctx context.Context, signer *domain.Signer) (*domain.VerificationSummary, error) {
	if signer.Status != domain.SignerSigned {
		return nil, domain.ErrNotFound
	}
	request, err := v.Requests.Get(ctx, signer.RequestID)
	if err != nil {
		return nil, err
	}

	summary := &domain.VerificationSummary{
		RequestID:        request.ID,
		RequestTitle:     request.Title,
		RequestStatus:    request.Status,
		SignerID:         signer.ID,
		SignerName:       signer.Name,
		SignerEmail:      signer.Email,
		SignedAt:         signer.SignedAt,
		VerificationCode: signer.VerificationCode,
		Fingerprint:      fingerprint.Doc(request.ID, signer.ID),
		ArtifactHash:     signer.ArtifactHash,
	}

	if v.Store != nil && signer.ArtifactPath != "" {
		url, err := v.Store.SignedURL(ctx, signer.ArtifactPath, ArtifactURLTTL)
		if err != nil {
			v.logger().Warn("signed artifact url unavailable", "error", err, "signerId", signer.ID)
		} else {
			summary.ArtifactURL = url
		}
	}
	return summary, nil
}
