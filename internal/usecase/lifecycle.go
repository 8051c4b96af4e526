package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"firma/internal/domain"
	"firma/pkg/fingerprint"
)

// Lifecycle groups the creator-facing request operations: create, send,
// remind, cancel and the expiry sweep.
type Lifecycle struct {
	Requests RequestRepository
	Signers  SignerRepository
	Fields   FieldRepository
	Audit    *AuditTrail
	Store    domain.ObjectStore
	Clock    Clock
	Logger   *slog.Logger
}

func (l *Lifecycle) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func (l *Lifecycle) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// NewSigner is the invite shape for one party.
type NewSigner struct {
	Name  string
	Email string
	Phone string
}

type CreateRequestInput struct {
	Title        string
	Document     []byte
	CreatorName  string
	CreatorEmail string
	Signers      []NewSigner
	Fields       []domain.SignatureField
	ExpiresAt    *time.Time
}

type CreatedRequest struct {
	Request domain.SignatureRequest
	Signers []domain.Signer
}

// Create stores the original document, mints per-signer access tokens and
// verification codes, and records the created audit event.
func (l *Lifecycle) Create(ctx context.Context, in CreateRequestInput) (*CreatedRequest, error) {
	if l == nil || l.Requests == nil || l.Store == nil {
		return nil, errors.New("lifecycle requires request repository and object store")
	}
	if in.Title == "" {
		return nil, domain.Invalid("title", "must not be empty")
	}
	if len(in.Document) == 0 {
		return nil, domain.Invalid("document", "pdf document is required")
	}
	if len(in.Signers) == 0 {
		return nil, domain.Invalid("signers", "at least one signer is required")
	}
	for i, s := range in.Signers {
		if s.Name == "" {
			return nil, domain.Invalid(fmt.Sprintf("signers[%d].name", i), "must not be empty")
		}
		if s.Email == "" {
			return nil, domain.Invalid(fmt.Sprintf("signers[%d].email", i), "must not be empty")
		}
	}

	now := l.now().UTC()
	requestID := uuid.NewString()
	docPath := fmt.Sprintf("requests/%s/original.pdf", requestID)
	if _, err := l.Store.Put(ctx, docPath, in.Document, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store original document: %w", err)
	}

	publicToken, err := fingerprint.NewAccessToken()
	if err != nil {
		return nil, err
	}
	request := &domain.SignatureRequest{
		ID:           requestID,
		Title:        in.Title,
		DocumentPath: docPath,
		Status:       domain.RequestPending,
		CreatorName:  in.CreatorName,
		CreatorEmail: in.CreatorEmail,
		PublicToken:  publicToken,
		CreatedAt:    now,
		ExpiresAt:    in.ExpiresAt,
	}

	signers := make([]*domain.Signer, 0, len(in.Signers))
	for _, s := range in.Signers {
		token, err := fingerprint.NewAccessToken()
		if err != nil {
			return nil, err
		}
		code, err := fingerprint.NewVerificationCode()
		if err != nil {
			return nil, err
		}
		signers = append(signers, &domain.Signer{
			ID:               uuid.NewString(),
			RequestID:        requestID,
			Name:             s.Name,
			Email:            s.Email,
			Phone:            s.Phone,
			Status:           domain.SignerPending,
			Step:             domain.StepGoogleAuth,
			AccessToken:      token,
			VerificationCode: code,
			CreatedAt:        now,
		})
	}

	if err := l.Requests.Create(ctx, request, signers); err != nil {
		return nil, err
	}

	if len(in.Fields) > 0 && l.Fields != nil {
		for i := range in.Fields {
			in.Fields[i].RequestID = requestID
			if err := in.Fields[i].Validate(); err != nil {
				return nil, err
			}
		}
		if _, err := l.Fields.ReplaceAll(ctx, requestID, in.Fields); err != nil {
			return nil, err
		}
	}

	l.appendAudit(ctx, domain.AuditLogEntry{
		RequestID:   requestID,
		Action:      domain.AuditCreated,
		Description: fmt.Sprintf("Solicitacao de assinatura criada por %s", in.CreatorName),
		CreatedAt:   now,
	})

	created := &CreatedRequest{Request: *request}
	for _, s := range signers {
		created.Signers = append(created.Signers, *s)
	}
	return created, nil
}

// MarkSent records that the invites went out. Delivery itself happens in the
// channel integrations, outside this service.
func (l *Lifecycle) MarkSent(ctx context.Context, requestID string) error {
	if l == nil || l.Requests == nil {
		return errors.New("lifecycle requires a request repository")
	}
	req, err := l.Requests.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		return domain.ErrAlreadySignedOrCancelled
	}
	l.appendAudit(ctx, domain.AuditLogEntry{
		RequestID:   requestID,
		Action:      domain.AuditSent,
		Description: "Convites de assinatura enviados",
		CreatedAt:   l.now().UTC(),
	})
	return nil
}

// RecordReminder appends a reminder_sent event for one signer.
func (l *Lifecycle) RecordReminder(ctx context.Context, requestID, signerID string) error {
	if l == nil || l.Requests == nil {
		return errors.New("lifecycle requires a request repository")
	}
	req, err := l.Requests.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		return domain.ErrAlreadySignedOrCancelled
	}
	l.appendAudit(ctx, domain.AuditLogEntry{
		RequestID:   requestID,
		SignerID:    signerID,
		Action:      domain.AuditReminderSent,
		Description: "Lembrete de assinatura enviado",
		CreatedAt:   l.now().UTC(),
	})
	return nil
}

// Cancel moves a pending request to cancelled together with its pending
// signers. Signed requests cannot be cancelled.
func (l *Lifecycle) Cancel(ctx context.Context, requestID string) error {
	if l == nil || l.Requests == nil {
		return errors.New("lifecycle requires a request repository")
	}
	req, err := l.Requests.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		return domain.ErrAlreadySignedOrCancelled
	}
	if err := l.Requests.Cancel(ctx, requestID); err != nil {
		return err
	}
	l.appendAudit(ctx, domain.AuditLogEntry{
		RequestID:   requestID,
		Action:      domain.AuditCancelled,
		Description: "Solicitacao cancelada pelo criador",
		CreatedAt:   l.now().UTC(),
	})
	return nil
}

// ExpireDue sweeps pending requests whose deadline passed, recording one
// expired event per request. Returns the number of requests expired.
func (l *Lifecycle) ExpireDue(ctx context.Context) (int, error) {
	if l == nil || l.Requests == nil {
		return 0, errors.New("lifecycle requires a request repository")
	}
	now := l.now().UTC()
	expired, err := l.Requests.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, req := range expired {
		l.appendAudit(ctx, domain.AuditLogEntry{
			RequestID:   req.ID,
			Action:      domain.AuditExpired,
			Description: "Solicitacao expirada pelo prazo limite",
			CreatedAt:   now,
		})
	}
	return len(expired), nil
}

// appendAudit is best-effort everywhere it is used: lifecycle mutations are
// already durable before the event is written.
func (l *Lifecycle) appendAudit(ctx context.Context, entry domain.AuditLogEntry) {
	if l.Audit == nil {
		return
	}
	if _, err := l.Audit.Append(ctx, entry); err != nil {
		l.logger().Warn("audit entry not recorded", "action", string(entry.Action), "requestId", entry.RequestID, "error", err)
	}
}
