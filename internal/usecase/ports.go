package usecase

import (
	"context"
	"time"

	"firma/internal/domain"
)

type Clock func() time.Time

type RequestRepository interface {
	Create(ctx context.Context, req *domain.SignatureRequest, signers []*domain.Signer) error
	Get(ctx context.Context, id string) (*domain.SignatureRequest, error)
	// MarkSignedIfComplete transitions the request pending -> signed when
	// every signer is signed. It reports true only for the call that
	// performed the transition, so the fully-signed side effect fires
	// exactly once.
	MarkSignedIfComplete(ctx context.Context, requestID string, signedAt time.Time) (bool, error)
	Cancel(ctx context.Context, requestID string) error
	ExpireDue(ctx context.Context, now time.Time) ([]domain.SignatureRequest, error)
}

type SignerRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.Signer, error)
	GetByVerificationCode(ctx context.Context, code string) (*domain.Signer, error)
	GetByArtifactHash(ctx context.Context, hash string) (*domain.Signer, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.Signer, error)
	// AdvanceStep moves the workflow pointer from -> to and applies the
	// step's declared data, guarded on status=pending and the current step.
	AdvanceStep(ctx context.Context, signerID string, from, to domain.SigningStep, update domain.SignerUpdate) error
	// CommitPending freezes the signer: a compare-and-swap on
	// status=pending that persists all captured fields plus the certified
	// artifact reference, sets signed, and fails with
	// domain.ErrAlreadySignedOrCancelled when the guard misses.
	CommitPending(ctx context.Context, signer *domain.Signer) error
}

type FieldRepository interface {
	// ReplaceAll deletes and re-inserts the request's fields in one
	// transaction.
	ReplaceAll(ctx context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.SignatureField, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.AuditLogEntry, error)
	// LastActionAt returns the creation time of the newest matching entry,
	// or nil when none exists.
	LastActionAt(ctx context.Context, requestID, signerID string, action domain.AuditAction) (*time.Time, error)
}

// Certifier runs the certification pipeline. Pure: persistence of the result
// is the caller's job.
type Certifier interface {
	Certify(ctx context.Context, in CertifyInput) (*CertifyResult, error)
	VerifyURL(code string) string
}

type CertifyInput struct {
	Document []byte
	Request  domain.SignatureRequest
	Signer   domain.Signer
	Fields   []domain.SignatureField

	SignatureImage []byte
	FacialImage    []byte
}

type CertifyResult struct {
	Artifact          []byte
	ContentHash       string
	SignatureEmbedded bool
	FacialEmbedded    bool
}

type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.VerificationSummary, bool, error)
	Put(ctx context.Context, key string, value domain.VerificationSummary, ttl time.Duration) error
}
