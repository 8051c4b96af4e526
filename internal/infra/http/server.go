// Package http exposes the signing workflow, field editing, audit reads and
// the public verification surface over gin.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"firma/internal/config"
	"firma/internal/domain"
	"firma/internal/usecase"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	lifecycle *usecase.Lifecycle
	fields    *usecase.FieldStore
	bundle    *usecase.SigningBundle
	advance   *usecase.AdvanceStep
	commit    *usecase.CommitSigner
	verify    *usecase.VerifySignature
	audit     *usecase.AuditTrail
	signers   usecase.SignerRepository

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration

	dbReady bool
}

type ServerDeps struct {
	Lifecycle *usecase.Lifecycle
	Fields    *usecase.FieldStore
	Bundle    *usecase.SigningBundle
	Advance   *usecase.AdvanceStep
	Commit    *usecase.CommitSigner
	Verify    *usecase.VerifySignature
	Audit     *usecase.AuditTrail
	Signers   usecase.SignerRepository

	RateLimiter domain.RateLimiter
	DBReady     bool
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		lifecycle:   deps.Lifecycle,
		fields:      deps.Fields,
		bundle:      deps.Bundle,
		advance:     deps.Advance,
		commit:      deps.Commit,
		verify:      deps.Verify,
		audit:       deps.Audit,
		signers:     deps.Signers,
		rateLimiter: deps.RateLimiter,
		dbReady:     deps.DBReady,
	}
	s.rateLimitRequests = cfg.RateLimitRequests
	s.rateLimitWindow = time.Duration(cfg.RateLimitWindowSeconds) * time.Second
	if s.rateLimitWindow <= 0 {
		s.rateLimitWindow = time.Minute
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.dbReady {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/requests", s.handleCreateRequest)
		v1.GET("/requests/:request_id", s.handleGetRequest)
		v1.POST("/requests/:request_id/cancel", s.handleCancelRequest)
		v1.POST("/requests/:request_id/sent", s.handleMarkSent)
		v1.POST("/requests/:request_id/signers/:signer_id/reminder", s.handleReminder)
		v1.PUT("/requests/:request_id/fields", s.handleReplaceFields)
		v1.GET("/requests/:request_id/fields", s.handleListFields)
		v1.GET("/requests/:request_id/audit", s.handleAuditLog)

		// Signer-facing routes keyed by the opaque access token.
		v1.GET("/assinar/:token", s.handleSigningBundle)
		v1.POST("/assinar/:token/steps", s.handleAdvanceStep)
		v1.POST("/assinar/:token/commit", s.handleCommit)

		// Public verification surface.
		v1.GET("/verificar/:code", s.handleVerifyByCode)
		v1.POST("/verificar/upload", s.handleVerifyByUpload)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}
