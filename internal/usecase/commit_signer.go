package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"firma/internal/domain"
)

// CommitSigner executes the terminal confirm action: it freezes the signer's
// captures, runs the certification pipeline and stores the artifact. The
// status flip is a compare-and-swap, so concurrent confirms on the same token
// resolve to one winner.
type CommitSigner struct {
	Requests RequestRepository
	Signers  SignerRepository
	Fields   FieldRepository
	Audit    *AuditTrail
	Certify  Certifier
	Store    domain.ObjectStore
	Notify   domain.Notifier
	Clock    Clock
	Logger   *slog.Logger
}

// CommitRequest is the confirm payload. SignatureImage is required; facial
// and document captures are optional evidence.
type CommitRequest struct {
	Token string

	Name  string
	Email string
	Phone string
	CPF   string

	SignatureImage []byte
	FacialImage    []byte
	DocumentImage  []byte

	IP           string
	UserAgent    string
	Geolocation  *domain.Geolocation
	AuthProvider string
	AuthContact  string
}

// CommitReceipt reports what the commit produced. The embedded flags surface
// capture degradations that did not block certification.
type CommitReceipt struct {
	Signer            domain.Signer
	VerifyURL         string
	ArtifactHash      string
	SignatureEmbedded bool
	FacialEmbedded    bool
	RequestCompleted  bool
}

func (c *CommitSigner) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *CommitSigner) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func (c *CommitSigner) Execute(ctx context.Context, req CommitRequest) (*CommitReceipt, error) {
	if c == nil || c.Requests == nil || c.Signers == nil || c.Certify == nil || c.Store == nil {
		return nil, errors.New("commit signer requires request, signer, certifier and store dependencies")
	}
	if err := validateCommit(req); err != nil {
		return nil, err
	}

	signer, err := c.Signers.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if signer.Status != domain.SignerPending {
		return nil, domain.ErrAlreadySignedOrCancelled
	}
	request, err := c.Requests.Get(ctx, signer.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}
	if request.ExpiredAt(c.now()) {
		return nil, domain.ErrRequestNotPending
	}

	log := c.logger().With("requestId", request.ID, "signerId", signer.ID)
	signedAt := c.now().UTC()

	// Everything fallible runs before the status flip: capture uploads, the
	// certification pipeline and the artifact write. A transient failure
	// anywhere leaves the signer pending, so retrying the whole commit is
	// always safe.
	prefix := path.Join("requests", request.ID, "signers", signer.ID)
	g, gctx := errgroup.WithContext(ctx)
	uploadCapture := func(name string, data []byte, target *string) {
		if len(data) == 0 {
			return
		}
		p := path.Join(prefix, name)
		g.Go(func() error {
			if _, err := c.Store.Put(gctx, p, data, "image/png"); err != nil {
				return fmt.Errorf("store %s capture: %w", name, err)
			}
			return nil
		})
		*target = p
	}
	uploadCapture("signature.png", req.SignatureImage, &signer.SignatureImagePath)
	uploadCapture("facial.png", req.FacialImage, &signer.FacialImagePath)
	uploadCapture("document.png", req.DocumentImage, &signer.DocumentImagePath)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	applyDeclared(signer, req)
	signer.Status = domain.SignerSigned
	signer.Step = domain.StepConfirm
	signer.SignedAt = &signedAt

	document, err := c.Store.Get(ctx, request.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentLoad, err)
	}

	fields, err := c.fields(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	result, err := c.Certify.Certify(ctx, CertifyInput{
		Document:       document,
		Request:        *request,
		Signer:         *signer,
		Fields:         fields,
		SignatureImage: req.SignatureImage,
		FacialImage:    req.FacialImage,
	})
	if err != nil {
		return nil, err
	}

	artifactPath := path.Join(prefix, "certified.pdf")
	if _, err := c.Store.Put(ctx, artifactPath, result.Artifact, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store certified artifact: %w", err)
	}
	signer.ArtifactPath = artifactPath
	signer.ArtifactHash = result.ContentHash

	// The CAS persists the frozen identity and the artifact reference in one
	// guarded write. After it succeeds nothing about the commit can fail in a
	// way that strands the signer.
	if err := c.Signers.CommitPending(ctx, signer); err != nil {
		return nil, err
	}

	if c.Audit != nil {
		if _, err := c.Audit.Append(ctx, domain.AuditLogEntry{
			RequestID:   request.ID,
			SignerID:    signer.ID,
			Action:      domain.AuditSigned,
			Description: fmt.Sprintf("Documento assinado por %s", signer.Name),
			IP:          req.IP,
			UserAgent:   req.UserAgent,
			CreatedAt:   signedAt,
		}); err != nil {
			log.Warn("signed audit entry not recorded", "error", err)
		}
	}

	completed, err := c.Requests.MarkSignedIfComplete(ctx, request.ID, signedAt)
	if err != nil {
		return nil, err
	}
	if completed && c.Notify != nil {
		event := domain.FullySignedEvent{
			RequestID:    request.ID,
			Title:        request.Title,
			CreatorEmail: request.CreatorEmail,
			SignedAt:     signedAt,
		}
		if err := c.Notify.NotifyFullySigned(ctx, event); err != nil {
			// Notification is best-effort; the signed state is already durable.
			log.Warn("fully-signed notification failed", "error", err)
		}
	}

	return &CommitReceipt{
		Signer:            *signer,
		VerifyURL:         c.Certify.VerifyURL(signer.VerificationCode),
		ArtifactHash:      result.ContentHash,
		SignatureEmbedded: result.SignatureEmbedded,
		FacialEmbedded:    result.FacialEmbedded,
		RequestCompleted:  completed,
	}, nil
}

// fields lists the placement fields; an absent field repository means every
// commit uses the fallback placement.
func (c *CommitSigner) fields(ctx context.Context, requestID string) ([]domain.SignatureField, error) {
	if c.Fields == nil {
		return nil, nil
	}
	return c.Fields.ListByRequest(ctx, requestID)
}

func validateCommit(req CommitRequest) error {
	if req.Token == "" {
		return domain.ErrNotFound
	}
	if len(req.SignatureImage) == 0 {
		return domain.Invalid("signatureImage", "manuscript signature capture is required")
	}
	if req.Name == "" {
		return domain.Invalid("name", "must not be empty")
	}
	if req.Email == "" {
		return domain.Invalid("email", "must not be empty")
	}
	return nil
}

// applyDeclared freezes the identity the signer declared at confirm time onto
// the record, declared values winning over invite values.
func applyDeclared(s *domain.Signer, req CommitRequest) {
	s.Name = req.Name
	s.Email = req.Email
	if req.Phone != "" {
		s.Phone = req.Phone
	}
	if req.CPF != "" {
		s.CPF = req.CPF
	}
	s.IP = req.IP
	s.UserAgent = req.UserAgent
	if req.Geolocation != nil {
		s.Geolocation = req.Geolocation
	}
	if req.AuthProvider != "" {
		s.AuthProvider = req.AuthProvider
		s.AuthContact = req.AuthContact
	}
}
