package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firma/internal/domain"
)

// maxUploadBytes bounds verify-by-upload bodies; certified artifacts are a
// handful of megabytes at most.
const maxUploadBytes = 25 << 20

type verificationResponse struct {
	RequestID     string     `json:"request_id"`
	RequestTitle  string     `json:"request_title"`
	RequestStatus string     `json:"request_status"`
	SignerID      string     `json:"signer_id"`
	SignerName    string     `json:"signer_name"`
	SignerEmail   string     `json:"signer_email"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`

	VerificationCode string `json:"verification_code"`
	Fingerprint      string `json:"fingerprint"`
	ArtifactHash     string `json:"artifact_hash,omitempty"`
	ArtifactURL      string `json:"artifact_url,omitempty"`
}

func verificationToResponse(v domain.VerificationSummary) verificationResponse {
	return verificationResponse{
		RequestID:        v.RequestID,
		RequestTitle:     v.RequestTitle,
		RequestStatus:    string(v.RequestStatus),
		SignerID:         v.SignerID,
		SignerName:       v.SignerName,
		SignerEmail:      v.SignerEmail,
		SignedAt:         v.SignedAt,
		VerificationCode: v.VerificationCode,
		Fingerprint:      v.Fingerprint,
		ArtifactHash:     v.ArtifactHash,
		ArtifactURL:      v.ArtifactURL,
	}
}

func (s *Server) handleVerifyByCode(c *gin.Context) {
	if s.verify == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, "verificar") {
		return
	}
	summary, err := s.verify.ByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verificationToResponse(*summary))
}

// handleVerifyByUpload accepts the raw certified PDF as the request body and
// matches it by content hash.
func (s *Server) handleVerifyByUpload(c *gin.Context) {
	if s.verify == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, "verificar") {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_UPLOAD", "could not read upload body")
		return
	}
	if len(body) > maxUploadBytes {
		writeErrorCode(c, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "uploaded document exceeds the size limit")
		return
	}
	summary, err := s.verify.ByUploadedArtifact(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verificationToResponse(*summary))
}
