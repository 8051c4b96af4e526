package http

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firma/internal/domain"
	"firma/internal/usecase"
)

type bundleResponse struct {
	Request struct {
		ID        string     `json:"id"`
		Title     string     `json:"title"`
		Status    string     `json:"status"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	} `json:"request"`
	Creator struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"creator"`
	Signer signerResponse  `json:"signer"`
	Fields []fieldResponse `json:"fields"`
}

func (s *Server) handleSigningBundle(c *gin.Context) {
	if s.bundle == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, "assinar") {
		return
	}
	bundle, err := s.bundle.Execute(c.Request.Context(), usecase.BundleRequest{
		Token:     c.Param("token"),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	var out bundleResponse
	out.Request.ID = bundle.Request.ID
	out.Request.Title = bundle.Request.Title
	out.Request.Status = string(bundle.Request.Status)
	out.Request.ExpiresAt = bundle.Request.ExpiresAt
	out.Creator.Name = bundle.Creator.Name
	out.Creator.Email = bundle.Creator.Email
	out.Signer = signerToResponse(bundle.Signer, false)
	out.Fields = make([]fieldResponse, 0, len(bundle.Fields))
	for _, f := range bundle.Fields {
		out.Fields = append(out.Fields, fieldToResponse(f))
	}
	c.JSON(http.StatusOK, out)
}

type advancePayload struct {
	Step string `json:"step"`

	Name         *string  `json:"name,omitempty"`
	Email        *string  `json:"email,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	CPF          *string  `json:"cpf,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	AuthProvider *string  `json:"auth_provider,omitempty"`
	AuthContact  *string  `json:"auth_contact,omitempty"`
}

func (s *Server) handleAdvanceStep(c *gin.Context) {
	if s.advance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var payload advancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	update := domain.SignerUpdate{
		Name:         payload.Name,
		Email:        payload.Email,
		Phone:        payload.Phone,
		CPF:          payload.CPF,
		AuthProvider: payload.AuthProvider,
		AuthContact:  payload.AuthContact,
	}
	if payload.Latitude != nil && payload.Longitude != nil {
		update.Geolocation = &domain.Geolocation{Lat: *payload.Latitude, Lon: *payload.Longitude}
	}
	signer, err := s.advance.Execute(c.Request.Context(), usecase.AdvanceRequest{
		Token:  c.Param("token"),
		To:     domain.SigningStep(payload.Step),
		Update: update,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signer": signerToResponse(*signer, false)})
}

type commitPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	CPF   string `json:"cpf,omitempty"`

	SignatureImageBase64 string `json:"signature_image_base64"`
	FacialImageBase64    string `json:"facial_image_base64,omitempty"`
	DocumentImageBase64  string `json:"document_image_base64,omitempty"`

	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	AuthProvider string   `json:"auth_provider,omitempty"`
	AuthContact  string   `json:"auth_contact,omitempty"`
}

type commitResponse struct {
	Signer            signerResponse `json:"signer"`
	VerifyURL         string         `json:"verify_url"`
	ArtifactHash      string         `json:"artifact_hash"`
	SignatureEmbedded bool           `json:"signature_embedded"`
	FacialEmbedded    bool           `json:"facial_embedded"`
	RequestCompleted  bool           `json:"request_completed"`
}

func (s *Server) handleCommit(c *gin.Context) {
	if s.commit == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var payload commitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	signature, err := decodeOptionalBase64(payload.SignatureImageBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_IMAGE_ENCODING", "signature_image_base64 is not valid base64")
		return
	}
	facial, err := decodeOptionalBase64(payload.FacialImageBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_IMAGE_ENCODING", "facial_image_base64 is not valid base64")
		return
	}
	document, err := decodeOptionalBase64(payload.DocumentImageBase64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_IMAGE_ENCODING", "document_image_base64 is not valid base64")
		return
	}

	req := usecase.CommitRequest{
		Token:          c.Param("token"),
		Name:           payload.Name,
		Email:          payload.Email,
		Phone:          payload.Phone,
		CPF:            payload.CPF,
		SignatureImage: signature,
		FacialImage:    facial,
		DocumentImage:  document,
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		AuthProvider:   payload.AuthProvider,
		AuthContact:    payload.AuthContact,
	}
	if payload.Latitude != nil && payload.Longitude != nil {
		req.Geolocation = &domain.Geolocation{Lat: *payload.Latitude, Lon: *payload.Longitude}
	}

	receipt, err := s.commit.Execute(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commitResponse{
		Signer:            signerToResponse(receipt.Signer, false),
		VerifyURL:         receipt.VerifyURL,
		ArtifactHash:      receipt.ArtifactHash,
		SignatureEmbedded: receipt.SignatureEmbedded,
		FacialEmbedded:    receipt.FacialEmbedded,
		RequestCompleted:  receipt.RequestCompleted,
	})
}

func decodeOptionalBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
