package domain

import "time"

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestSigned    RequestStatus = "signed"
	RequestExpired   RequestStatus = "expired"
	RequestCancelled RequestStatus = "cancelled"
)

// SignatureRequest is one document submitted for signature by one or more
// signers. Status never moves to signed directly: it is derived from the
// signer set once every signer reaches signed.
type SignatureRequest struct {
	ID           string
	Title        string
	DocumentPath string
	Status       RequestStatus
	CreatorName  string
	CreatorEmail string
	PublicToken  string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
}

func (r SignatureRequest) Terminal() bool {
	return r.Status == RequestSigned || r.Status == RequestExpired || r.Status == RequestCancelled
}

func (r SignatureRequest) ExpiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}
