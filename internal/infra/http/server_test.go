package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"firma/internal/config"
	"firma/internal/domain"
	"firma/internal/infra/cachemem"
	"firma/internal/infra/ratelimit"
	"firma/internal/infra/storage"
	"firma/internal/usecase"
	"firma/pkg/fingerprint"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memRepo backs the request and signer ports for handler tests.
type memRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.SignatureRequest
	signers  map[string]*domain.Signer
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests: map[string]*domain.SignatureRequest{},
		signers:  map[string]*domain.Signer{},
	}
}

func (m *memRepo) Create(_ context.Context, req *domain.SignatureRequest, signers []*domain.Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	for _, s := range signers {
		sc := *s
		m.signers[s.ID] = &sc
	}
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRepo) MarkSignedIfComplete(_ context.Context, requestID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if req.Status != domain.RequestPending {
		return false, nil
	}
	for _, s := range m.signers {
		if s.RequestID == requestID && s.Status != domain.SignerSigned {
			return false, nil
		}
	}
	req.Status = domain.RequestSigned
	return true, nil
}

func (m *memRepo) Cancel(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	req.Status = domain.RequestCancelled
	return nil
}

func (m *memRepo) ExpireDue(_ context.Context, _ time.Time) ([]domain.SignatureRequest, error) {
	return nil, nil
}

func (m *memRepo) GetByToken(_ context.Context, token string) (*domain.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signers {
		if s.AccessToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) GetByVerificationCode(_ context.Context, code string) (*domain.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signers {
		if s.VerificationCode == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) GetByArtifactHash(_ context.Context, hash string) (*domain.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signers {
		if hash != "" && s.ArtifactHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRepo) ListByRequest(_ context.Context, requestID string) ([]domain.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Signer
	for _, s := range m.signers {
		if s.RequestID == requestID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memRepo) AdvanceStep(_ context.Context, signerID string, from, to domain.SigningStep, update domain.SignerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signers[signerID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SignerPending || s.Step != from {
		return domain.ErrInvalidStep
	}
	if update.Name != nil {
		s.Name = *update.Name
	}
	if update.Email != nil {
		s.Email = *update.Email
	}
	if update.CPF != nil {
		s.CPF = *update.CPF
	}
	if update.Geolocation != nil {
		s.Geolocation = update.Geolocation
	}
	if update.AuthProvider != nil {
		s.AuthProvider = *update.AuthProvider
	}
	s.Step = to
	return nil
}

func (m *memRepo) CommitPending(_ context.Context, signer *domain.Signer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signers[signer.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SignerPending {
		return domain.ErrAlreadySignedOrCancelled
	}
	cp := *signer
	m.signers[signer.ID] = &cp
	return nil
}

type memFieldRepo struct {
	mu     sync.Mutex
	fields map[string][]domain.SignatureField
}

func newMemFieldRepo() *memFieldRepo {
	return &memFieldRepo{fields: map[string][]domain.SignatureField{}}
}

func (m *memFieldRepo) ReplaceAll(_ context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SignatureField, len(fields))
	copy(out, fields)
	m.fields[requestID] = out
	return out, nil
}

func (m *memFieldRepo) ListByRequest(_ context.Context, requestID string) ([]domain.SignatureField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields[requestID], nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
}

func (m *memAuditRepo) Append(_ context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memAuditRepo) ListByRequest(_ context.Context, requestID string) ([]domain.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, e := range m.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditRepo) LastActionAt(_ context.Context, requestID, signerID string, action domain.AuditAction) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for i := range m.entries {
		e := m.entries[i]
		if e.RequestID == requestID && e.SignerID == signerID && e.Action == action {
			t := e.CreatedAt
			last = &t
		}
	}
	return last, nil
}

type stubCertifier struct{}

func (stubCertifier) Certify(_ context.Context, in usecase.CertifyInput) (*usecase.CertifyResult, error) {
	artifact := append([]byte("certified:"), in.Document...)
	return &usecase.CertifyResult{
		Artifact:          artifact,
		ContentHash:       fingerprint.ContentHash(artifact),
		SignatureEmbedded: len(in.SignatureImage) > 0,
		FacialEmbedded:    len(in.FacialImage) > 0,
	}, nil
}

func (stubCertifier) VerifyURL(code string) string {
	return "https://firma.example/verificar/" + code
}

type testEnv struct {
	server *Server
	repo   *memRepo
	fields *memFieldRepo
	store  *storage.Memory
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	repo := newMemRepo()
	fields := newMemFieldRepo()
	audit := usecase.NewAuditTrail(&memAuditRepo{}, nil)
	store := storage.NewMemory()

	deps := ServerDeps{
		Lifecycle: &usecase.Lifecycle{Requests: repo, Signers: repo, Fields: fields, Audit: audit, Store: store},
		Fields:    &usecase.FieldStore{Requests: repo, Fields: fields},
		Bundle:    &usecase.SigningBundle{Signers: repo, Requests: repo, Fields: fields, Audit: audit},
		Advance:   &usecase.AdvanceStep{Signers: repo},
		Commit: &usecase.CommitSigner{
			Requests: repo,
			Signers:  repo,
			Fields:   fields,
			Audit:    audit,
			Certify:  stubCertifier{},
			Store:    store,
		},
		Verify:  &usecase.VerifySignature{Requests: repo, Signers: repo, Store: store, Cache: cachemem.New()},
		Audit:   audit,
		Signers: repo,
	}
	if cfg.RateLimitRequests > 0 {
		deps.RateLimiter = ratelimit.NewMemory(100, nil)
	}
	return &testEnv{
		server: NewServer(cfg, deps),
		repo:   repo,
		fields: fields,
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, config.Config{HTTPAddr: ":0"})
	w := env.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCreateAndFetchRequest(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	payload := map[string]any{
		"title":           "Contrato",
		"document_base64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")),
		"creator_name":    "Dra. Helena Prado",
		"creator_email":   "helena@prado.adv.br",
		"signers": []map[string]string{
			{"name": "Ana Martins", "email": "ana@example.com"},
		},
		"fields": []map[string]any{
			{"kind": "signature", "page": 1, "x": 10, "y": 80, "w": 25, "h": 8},
		},
	}
	w := env.do(t, http.MethodPost, "/v1/requests", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		ID      string `json:"id"`
		Signers []struct {
			SigningToken     string `json:"signing_token"`
			VerificationCode string `json:"verification_code"`
		} `json:"signers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || len(created.Signers) != 1 || created.Signers[0].SigningToken == "" {
		t.Fatalf("unexpected create response: %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/requests/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var fetched struct {
		Status string `json:"status"`
		Fields []any  `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Status != "pending" || len(fetched.Fields) != 1 {
		t.Fatalf("unexpected fetch response: %s", w.Body.String())
	}
}

func TestSigningFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	create := env.do(t, http.MethodPost, "/v1/requests", map[string]any{
		"title":           "Contrato",
		"document_base64": base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")),
		"creator_name":    "Dra. Helena Prado",
		"creator_email":   "helena@prado.adv.br",
		"signers":         []map[string]string{{"name": "Ana", "email": "ana@example.com"}},
	})
	var created struct {
		ID      string `json:"id"`
		Signers []struct {
			SigningToken     string `json:"signing_token"`
			VerificationCode string `json:"verification_code"`
		} `json:"signers"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	token := created.Signers[0].SigningToken

	w := env.do(t, http.MethodGet, "/v1/assinar/"+token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("bundle status = %d, body = %s", w.Code, w.Body.String())
	}

	for _, step := range []map[string]any{
		{"step": "data", "name": "Ana Martins Souza", "cpf": "123.456.789-00"},
		{"step": "signature"},
		{"step": "location", "latitude": -23.55, "longitude": -46.63},
		{"step": "facial"},
		{"step": "confirm"},
	} {
		w = env.do(t, http.MethodPost, "/v1/assinar/"+token+"/steps", step)
		if w.Code != http.StatusOK {
			t.Fatalf("advance to %v: status = %d, body = %s", step["step"], w.Code, w.Body.String())
		}
	}

	// Skipping ahead is rejected with a conflict.
	w = env.do(t, http.MethodPost, "/v1/assinar/"+token+"/steps", map[string]any{"step": "data"})
	if w.Code != http.StatusConflict {
		t.Fatalf("illegal transition status = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/v1/assinar/"+token+"/commit", map[string]any{
		"name":                   "Ana Martins Souza",
		"email":                  "ana@example.com",
		"cpf":                    "123.456.789-00",
		"signature_image_base64": base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body = %s", w.Code, w.Body.String())
	}
	var receipt struct {
		VerifyURL        string `json:"verify_url"`
		ArtifactHash     string `json:"artifact_hash"`
		RequestCompleted bool   `json:"request_completed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !receipt.RequestCompleted || receipt.ArtifactHash == "" {
		t.Fatalf("unexpected receipt: %s", w.Body.String())
	}

	// Second commit conflicts.
	w = env.do(t, http.MethodPost, "/v1/assinar/"+token+"/commit", map[string]any{
		"name":                   "Ana",
		"email":                  "ana@example.com",
		"signature_image_base64": base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("double commit status = %d", w.Code)
	}

	// The printed verification code now resolves publicly.
	w = env.do(t, http.MethodGet, "/v1/verificar/"+created.Signers[0].VerificationCode, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", w.Code, w.Body.String())
	}
	var verification struct {
		SignerName  string `json:"signer_name"`
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &verification); err != nil {
		t.Fatalf("decode verification: %v", err)
	}
	if verification.SignerName != "Ana Martins Souza" || len(verification.Fingerprint) != 64 {
		t.Fatalf("unexpected verification: %s", w.Body.String())
	}

	// Audit log shows the lifecycle.
	w = env.do(t, http.MethodGet, "/v1/requests/"+created.ID+"/audit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status = %d", w.Code)
	}
	var audit struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &audit); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	actions := map[string]bool{}
	for _, e := range audit.Entries {
		actions[e.Action] = true
	}
	for _, want := range []string{"created", "viewed", "signed"} {
		if !actions[want] {
			t.Fatalf("audit log missing %q: %s", want, w.Body.String())
		}
	}
}

func TestVerifyByUploadRoute(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	signedAt := time.Now().UTC()
	artifact := []byte("certified artifact bytes")
	env.repo.Create(context.Background(), &domain.SignatureRequest{
		ID:     "req-1",
		Title:  "Procuracao",
		Status: domain.RequestSigned,
	}, []*domain.Signer{{
		ID:               "signer-a",
		RequestID:        "req-1",
		Name:             "Ana",
		Status:           domain.SignerSigned,
		VerificationCode: "00112233445566fa",
		ArtifactHash:     fingerprint.ContentHash(artifact),
		SignedAt:         &signedAt,
	}})

	w := env.do(t, http.MethodPost, "/v1/verificar/upload", artifact)
	if w.Code != http.StatusOK {
		t.Fatalf("upload verify status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/v1/verificar/upload", []byte("some other document"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown upload status = %d", w.Code)
	}
}

func TestReplaceFieldsValidationStatus(t *testing.T) {
	env := newTestEnv(t, config.Config{})
	env.repo.Create(context.Background(), &domain.SignatureRequest{ID: "req-1", Status: domain.RequestPending}, nil)

	w := env.do(t, http.MethodPut, "/v1/requests/req-1/fields", map[string]any{
		"fields": []map[string]any{{"kind": "signature", "page": 0, "x": 1, "y": 1, "w": 5, "h": 5}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid field status = %d, body = %s", w.Code, w.Body.String())
	}

	env.repo.requests["req-1"].Status = domain.RequestSigned
	w = env.do(t, http.MethodPut, "/v1/requests/req-1/fields", map[string]any{
		"fields": []map[string]any{{"kind": "signature", "page": 1, "x": 1, "y": 1, "w": 5, "h": 5}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("terminal request status = %d", w.Code)
	}
}

func TestVerifyRateLimit(t *testing.T) {
	env := newTestEnv(t, config.Config{RateLimitRequests: 2, RateLimitWindowSeconds: 60})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = env.do(t, http.MethodGet, "/v1/verificar/00112233445566fa", nil)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third lookup status = %d, want 429", last.Code)
	}
	if last.Header().Get("RateLimit-Limit") != "2" {
		t.Fatalf("RateLimit-Limit = %q", last.Header().Get("RateLimit-Limit"))
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing on limited response")
	}
}
