package usecase

import (
	"context"
	"errors"
	"sort"

	"firma/internal/domain"
)

// FieldStore owns the placement fields of a request. Edits replace the whole
// set: no partial patch, no client/server id reconciliation.
type FieldStore struct {
	Requests RequestRepository
	Fields   FieldRepository
}

// ReplaceAll validates every field, then swaps the request's field set in one
// transaction. Requests already terminal reject edits.
func (s *FieldStore) ReplaceAll(ctx context.Context, requestID string, fields []domain.SignatureField) ([]domain.SignatureField, error) {
	if s == nil || s.Requests == nil || s.Fields == nil {
		return nil, errors.New("field store requires request and field repositories")
	}
	req, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, domain.ErrAlreadySignedOrCancelled
	}
	for i := range fields {
		fields[i].RequestID = requestID
		if err := fields[i].Validate(); err != nil {
			return nil, err
		}
	}
	return s.Fields.ReplaceAll(ctx, requestID, fields)
}

// List returns the request's fields ordered by page number.
func (s *FieldStore) List(ctx context.Context, requestID string) ([]domain.SignatureField, error) {
	if s == nil || s.Fields == nil {
		return nil, errors.New("field store requires a field repository")
	}
	fields, err := s.Fields.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Page < fields[j].Page })
	return fields, nil
}
