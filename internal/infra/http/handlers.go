package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firma/internal/domain"
	"firma/internal/usecase"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_INPUT", Message: ve.Reason, Field: ve.Field})
		return
	}
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadySignedOrCancelled):
		status, code = http.StatusConflict, "ALREADY_SIGNED_OR_CANCELLED"
	case errors.Is(err, domain.ErrInvalidStep):
		status, code = http.StatusConflict, "INVALID_STEP"
	case errors.Is(err, domain.ErrRequestNotPending):
		status, code = http.StatusConflict, "REQUEST_NOT_PENDING"
	case errors.Is(err, domain.ErrDocumentLoad):
		status, code = http.StatusUnprocessableEntity, "DOCUMENT_LOAD_FAILED"
	case errors.Is(err, domain.ErrMediaProcessing):
		status, code = http.StatusUnprocessableEntity, "MEDIA_PROCESSING_FAILED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}

type fieldPayload struct {
	SignerID string  `json:"signer_id,omitempty"`
	Kind     string  `json:"kind"`
	Page     int     `json:"page"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
}

type fieldResponse struct {
	ID string `json:"id"`
	fieldPayload
}

func fieldFromPayload(p fieldPayload) domain.SignatureField {
	return domain.SignatureField{
		SignerID: p.SignerID,
		Kind:     domain.FieldKind(p.Kind),
		Page:     p.Page,
		X:        p.X,
		Y:        p.Y,
		W:        p.W,
		H:        p.H,
	}
}

func fieldToResponse(f domain.SignatureField) fieldResponse {
	return fieldResponse{
		ID: f.ID,
		fieldPayload: fieldPayload{
			SignerID: f.SignerID,
			Kind:     string(f.Kind),
			Page:     f.Page,
			X:        f.X,
			Y:        f.Y,
			W:        f.W,
			H:        f.H,
		},
	}
}

type signerResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	Status           string     `json:"status"`
	Step             string     `json:"step"`
	SigningToken     string     `json:"signing_token,omitempty"`
	VerificationCode string     `json:"verification_code,omitempty"`
	ArtifactHash     string     `json:"artifact_hash,omitempty"`
	SignedAt         *time.Time `json:"signed_at,omitempty"`
}

func signerToResponse(s domain.Signer, includeSecrets bool) signerResponse {
	out := signerResponse{
		ID:           s.ID,
		Name:         s.Name,
		Email:        s.Email,
		Phone:        s.Phone,
		Status:       string(s.Status),
		Step:         string(s.Step),
		ArtifactHash: s.ArtifactHash,
		SignedAt:     s.SignedAt,
	}
	if includeSecrets {
		out.SigningToken = s.AccessToken
		out.VerificationCode = s.VerificationCode
	}
	return out
}

type requestResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	CreatorName  string           `json:"creator_name"`
	CreatorEmail string           `json:"creator_email"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	Signers      []signerResponse `json:"signers,omitempty"`
	Fields       []fieldResponse  `json:"fields,omitempty"`
}

type createRequestPayload struct {
	Title          string     `json:"title"`
	DocumentBase64 string     `json:"document_base64"`
	CreatorName    string     `json:"creator_name"`
	CreatorEmail   string     `json:"creator_email"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Signers        []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone,omitempty"`
	} `json:"signers"`
	Fields []fieldPayload `json:"fields,omitempty"`
}

func (s *Server) handleCreateRequest(c *gin.Context) {
	if s.lifecycle == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var payload createRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	document, err := base64.StdEncoding.DecodeString(payload.DocumentBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_DOCUMENT_ENCODING", "document_base64 is not valid base64")
		return
	}
	in := usecase.CreateRequestInput{
		Title:        payload.Title,
		Document:     document,
		CreatorName:  payload.CreatorName,
		CreatorEmail: payload.CreatorEmail,
		ExpiresAt:    payload.ExpiresAt,
	}
	for _, sg := range payload.Signers {
		in.Signers = append(in.Signers, usecase.NewSigner{Name: sg.Name, Email: sg.Email, Phone: sg.Phone})
	}
	for _, f := range payload.Fields {
		in.Fields = append(in.Fields, fieldFromPayload(f))
	}

	created, err := s.lifecycle.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	out := requestResponse{
		ID:           created.Request.ID,
		Title:        created.Request.Title,
		Status:       string(created.Request.Status),
		CreatorName:  created.Request.CreatorName,
		CreatorEmail: created.Request.CreatorEmail,
		CreatedAt:    created.Request.CreatedAt,
		ExpiresAt:    created.Request.ExpiresAt,
	}
	for _, sg := range created.Signers {
		out.Signers = append(out.Signers, signerToResponse(sg, true))
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) handleGetRequest(c *gin.Context) {
	if s.lifecycle == nil || s.signers == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	requestID := c.Param("request_id")
	req, err := s.lifecycle.Requests.Get(c.Request.Context(), requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	signers, err := s.signers.ListByRequest(c.Request.Context(), requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := requestResponse{
		ID:           req.ID,
		Title:        req.Title,
		Status:       string(req.Status),
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
		CreatedAt:    req.CreatedAt,
		ExpiresAt:    req.ExpiresAt,
	}
	for _, sg := range signers {
		out.Signers = append(out.Signers, signerToResponse(sg, true))
	}
	if s.fields != nil {
		fields, err := s.fields.List(c.Request.Context(), requestID)
		if err != nil {
			writeError(c, err)
			return
		}
		for _, f := range fields {
			out.Fields = append(out.Fields, fieldToResponse(f))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCancelRequest(c *gin.Context) {
	if s.lifecycle == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.lifecycle.Cancel(c.Request.Context(), c.Param("request_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleMarkSent(c *gin.Context) {
	if s.lifecycle == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.lifecycle.MarkSent(c.Request.Context(), c.Param("request_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) handleReminder(c *gin.Context) {
	if s.lifecycle == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	err := s.lifecycle.RecordReminder(c.Request.Context(), c.Param("request_id"), c.Param("signer_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reminder_recorded"})
}

type replaceFieldsPayload struct {
	Fields []fieldPayload `json:"fields"`
}

func (s *Server) handleReplaceFields(c *gin.Context) {
	if s.fields == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var payload replaceFieldsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	fields := make([]domain.SignatureField, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		fields = append(fields, fieldFromPayload(f))
	}
	saved, err := s.fields.ReplaceAll(c.Request.Context(), c.Param("request_id"), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]fieldResponse, 0, len(saved))
	for _, f := range saved {
		out = append(out, fieldToResponse(f))
	}
	c.JSON(http.StatusOK, gin.H{"fields": out})
}

func (s *Server) handleListFields(c *gin.Context) {
	if s.fields == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	fields, err := s.fields.List(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]fieldResponse, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldToResponse(f))
	}
	c.JSON(http.StatusOK, gin.H{"fields": out})
}

type auditEntryResponse struct {
	ID          string    `json:"id"`
	SignerID    string    `json:"signer_id,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	IP          string    `json:"ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleAuditLog(c *gin.Context) {
	if s.audit == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	entries, err := s.audit.List(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:          e.ID,
			SignerID:    e.SignerID,
			Action:      string(e.Action),
			Description: e.Description,
			IP:          e.IP,
			UserAgent:   e.UserAgent,
			CreatedAt:   e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}
