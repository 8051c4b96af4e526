package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firma/internal/domain"
)

// memStore is an in-memory implementation of every repository port, used as
// the static collaborator in these tests.
type memStore struct {
	mu       sync.Mutex
	requests map[string]*domain.SignatureRequest
	signers  map[string]*domain.Signer
	fields   map[string][]domain.SignatureField
	audit    []domain.AuditLogEntry
}

func newMemStore() *memStore {
	return &memStore{
		requests: map[string]*domain.SignatureRequest{},
		signers:  map[string]*domain.Signer{},
		fields:   map[string][]domain.SignatureField{},
	}
}

func (m *memStore) Create(_ context.Context, req *domain.SignatureRequest, signers []*domain.Signer) error {
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

func (m *memStore) Get(_ context.Context, id string) (*domain.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memStore) MarkSignedIfComplete(_ context.Context, requestID string, signedAt time.Time) (bool, error) {
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

func (m *memStore) Cancel(_ context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return domain.ErrNotFound
	}
	if req.Status != domain.RequestPending {
		return domain.ErrAlreadySignedOrCancelled
	}
	req.Status = domain.RequestCancelled
	for _, s := range m.signers {
		if s.RequestID == requestID && s.Status == domain.SignerPending {
			s.Status = domain.SignerCancelled
		}
	}
	return nil
}

func (m *memStore) ExpireDue(_ context.Context, now time.Time) ([]domain.SignatureRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []domain.SignatureRequest
	for _, req := range m.requests {
		if req.Status == domain.RequestPending && req.ExpiredAt(now) {
			req.Status = domain.RequestExpired
			expired = append(expired, *req)
		}
	}
	return expired, nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*domain.Signer, error) {
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

func (m *memStore) GetByVerificationCode(_ context.Context, code string) (*domain.Signer, error) {
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

func (m *memStore) GetByArtifactHash(_ context.Context, hash string) (*domain.Signer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signers {
		if s.ArtifactHash == hash && hash != "" {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) ListByRequest(_ context.Context, requestID string) ([]domain.Signer, error) {
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

func (m *memStore) AdvanceStep(_ context.Context, signerID string, from, to domain.SigningStep, update domain.SignerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signers[signerID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SignerPending || s.Step != from {
		return domain.ErrInvalidStep
	}
	applyUpdate(s, update)
	s.Step = to
	return nil
}

func (m *memStore) CommitPending(_ context.Context, signer *domain.Signer) error {
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

func (m *memStore) ReplaceAll(_ context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SignatureField, len(fields))
	copy(out, fields)
	for i := range out {
		out[i].ID = fmt.Sprintf("field-%d", i+1)
	}
	m.fields[requestID] = out
	return out, nil
}

func (m *memStore) listFields(requestID string) []domain.SignatureField {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields[requestID]
}

func (m *memStore) actions(requestID string) []domain.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditAction
	for _, e := range m.audit {
		if e.RequestID == requestID {
			out = append(out, e.Action)
		}
	}
	return out
}

func applyUpdate(s *domain.Signer, u domain.SignerUpdate) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.CPF != nil {
		s.CPF = *u.CPF
	}
	if u.Geolocation != nil {
		s.Geolocation = u.Geolocation
	}
	if u.AuthProvider != nil {
		s.AuthProvider = *u.AuthProvider
	}
	if u.AuthContact != nil {
		s.AuthContact = *u.AuthContact
	}
}

// fieldRepo and auditRepo expose the memStore data behind their respective
// ports; the method sets collide on one receiver, hence the wrappers.
type fieldRepo struct{ store *memStore }

func (r fieldRepo) ReplaceAll(ctx context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	return r.store.ReplaceAll(ctx, requestID, fields)
}

func (r fieldRepo) ListByRequest(_ context.Context, requestID string) ([]domain.SignatureField, error) {
	return r.store.listFields(requestID), nil
}

type auditRepo struct{ store *memStore }

func (r auditRepo) Append(_ context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = fmt.Sprintf("audit-%d", len(m.audit)+1)
	m.audit = append(m.audit, entry)
	return entry, nil
}

func (r auditRepo) ListByRequest(_ context.Context, requestID string) ([]domain.AuditLogEntry, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, e := range m.audit {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r auditRepo) LastActionAt(_ context.Context, requestID, signerID string, action domain.AuditAction) (*time.Time, error) {
	m := r.store
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for i := range m.audit {
		e := m.audit[i]
		if e.RequestID == requestID && e.SignerID == signerID && e.Action == action {
			if last == nil || e.CreatedAt.After(*last) {
				t := e.CreatedAt
				last = &t
			}
		}
	}
	return last, nil
}

// fakeObjectStore keeps objects in a map and records every Put path.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	failPut map[string]error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, failPut: map[string]error{}}
}

func (f *fakeObjectStore) Put(_ context.Context, p string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failPut[p]; ok {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[p] = cp
	f.puts = append(f.puts, p)
	return p, nil
}

func (f *fakeObjectStore) Get(_ context.Context, p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[p]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (f *fakeObjectStore) SignedURL(_ context.Context, p string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[p]; !ok {
		return "", domain.ErrNotFound
	}
	return "https://files.example/" + p, nil
}

// fakeCertifier returns a deterministic artifact without touching any PDF.
type fakeCertifier struct {
	artifact []byte
	err      error
	calls    int
}

func (f *fakeCertifier) Certify(_ context.Context, in CertifyInput) (*CertifyResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &CertifyResult{
		Artifact:          f.artifact,
		ContentHash:       fmt.Sprintf("hash-of-%d-bytes", len(f.artifact)),
		SignatureEmbedded: len(in.SignatureImage) > 0,
		FacialEmbedded:    len(in.FacialImage) > 0,
	}, nil
}

func (f *fakeCertifier) VerifyURL(code string) string {
	return "https://firma.example/verificar/" + code
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.FullySignedEvent
	err    error
}

func (f *fakeNotifier) NotifyFullySigned(_ context.Context, event domain.FullySignedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeCache is a map-backed VerificationCache counting hits and writes.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.VerificationSummary
	gets    int
	hits    int
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]domain.VerificationSummary{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (*domain.VerificationSummary, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	f.hits++
	cp := v
	return &cp, true, nil
}

func (f *fakeCache) Put(_ context.Context, key string, value domain.VerificationSummary, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[key] = value
	return nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func strptr(s string) *string { return &s }
