package domain

import "time"

// VerificationSummary is the redacted public view returned by the verification
// service. It is either fully populated or not returned at all.
type VerificationSummary struct {
	RequestID     string
	RequestTitle  string
	RequestStatus RequestStatus

	SignerID    string
	SignerName  string
	SignerEmail string
	SignedAt    *time.Time

	VerificationCode string
	Fingerprint      string
	ArtifactHash     string
	ArtifactURL      string
}
