package domain

import "time"

type SignerStatus string

const (
	SignerPending   SignerStatus = "pending"
	SignerSigned    SignerStatus = "signed"
	SignerExpired   SignerStatus = "expired"
	SignerCancelled SignerStatus = "cancelled"
)

// SigningStep is one stage of the signer workflow. Order is enforced
// server-side through the transition table below; the UI cannot force a skip
// the table does not allow.
type SigningStep string

const (
	StepGoogleAuth SigningStep = "google_auth"
	StepData       SigningStep = "data"
	StepSignature  SigningStep = "signature"
	StepLocation   SigningStep = "location"
	StepFacial     SigningStep = "facial"
	StepConfirm    SigningStep = "confirm"
)

// stepTransitions maps each step to the steps reachable from it. location and
// facial may be skipped by explicit user action; google_auth may be skipped in
// favor of the declared-data identity path.
var stepTransitions = map[SigningStep][]SigningStep{
	StepGoogleAuth: {StepData},
	StepData:       {StepSignature},
	StepSignature:  {StepLocation, StepFacial},
	StepLocation:   {StepFacial, StepConfirm},
	StepFacial:     {StepConfirm},
	StepConfirm:    {},
}

func (s SigningStep) Valid() bool {
	_, ok := stepTransitions[s]
	return ok
}

// CanAdvance reports whether to is a legal successor of s.
func (s SigningStep) CanAdvance(to SigningStep) bool {
	for _, next := range stepTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialSteps are the steps a freshly created signer may start on.
// google_auth is the default; data is the alternate identity-confirmation
// path when the signer declines provider auth.
func InitialSteps() []SigningStep {
	return []SigningStep{StepGoogleAuth, StepData}
}

// Geolocation is the structured capture taken at the location step.
type Geolocation struct {
	Lat float64
	Lon float64
}

// DeviceInfo is the best-effort parse of the signer's user-agent string.
// Fields read "unknown" rather than empty when parsing fails.
type DeviceInfo struct {
	Device  string
	Browser string
	OS      string
}

// AuthIdentity is the opaque triple supplied by the identity collaborator.
type AuthIdentity struct {
	Provider  string
	Email     string
	Name      string
	SubjectID string
}

// Signer is one party acting on a SignatureRequest. Contact fields stay
// mutable until signing and are frozen with whatever the signer declares at
// commit time. Once status is signed the record is immutable; the certified
// artifact reference is persisted as part of that same commit write.
type Signer struct {
	ID        string
	RequestID string
	Name      string
	Email     string
	Phone     string
	CPF       string
	Status    SignerStatus
	Step      SigningStep

	AccessToken      string
	VerificationCode string

	SignatureImagePath string
	FacialImagePath    string
	DocumentImagePath  string

	IP           string
	UserAgent    string
	Geolocation  *Geolocation
	AuthProvider string
	AuthContact  string

	ArtifactPath string
	ArtifactHash string

	SignedAt  *time.Time
	CreatedAt time.Time
}

func (s Signer) Terminal() bool {
	return s.Status == SignerSigned || s.Status == SignerExpired || s.Status == SignerCancelled
}

// SignerUpdate carries the mutable-until-signing fields a workflow step may
// set. Nil members are left untouched.
type SignerUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	CPF          *string
	Geolocation  *Geolocation
	AuthProvider *string
	AuthContact  *string
}
