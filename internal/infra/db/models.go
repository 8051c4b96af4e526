package db

import "time"

type SignatureRequestModel struct {
	ID           string     `gorm:"type:uuid;primaryKey"`
	Title        string     `gorm:"not null"`
	DocumentPath string     `gorm:"not null"`
	Status       string     `gorm:"index;not null"`
	CreatorName  string     `gorm:"not null"`
	CreatorEmail string     `gorm:"index;not null"`
	PublicToken  string     `gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time  `gorm:"not null"`
	ExpiresAt    *time.Time `gorm:"index"`
}

func (SignatureRequestModel) TableName() string {
	return "signature_requests"
}

type SignerModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	RequestID string `gorm:"type:uuid;index;not null"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Phone     string
	CPF       string `gorm:"column:cpf"`
	Status    string `gorm:"index;not null"`
	Step      string `gorm:"not null"`

	AccessToken      string `gorm:"uniqueIndex;not null"`
	VerificationCode string `gorm:"uniqueIndex;not null"`

	SignatureImagePath string
	FacialImagePath    string
	DocumentImagePath  string

	IP           string   `gorm:"column:ip"`
	UserAgent    string
	Latitude     *float64
	Longitude    *float64
	AuthProvider string
	AuthContact  string

	ArtifactPath string
	ArtifactHash string `gorm:"index"`

	SignedAt  *time.Time
	CreatedAt time.Time  `gorm:"not null"`
}

func (SignerModel) TableName() string {
	return "signers"
}

type SignatureFieldModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	RequestID string    `gorm:"type:uuid;index;not null"`
	SignerID  string    `gorm:"type:uuid;index"`
	Kind      string    `gorm:"not null"`
	Page      int       `gorm:"not null"`
	X         float64   `gorm:"not null"`
	Y         float64   `gorm:"not null"`
	W         float64   `gorm:"not null"`
	H         float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SignatureFieldModel) TableName() string {
	return "signature_fields"
}

type AuditLogModel struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	RequestID   string    `gorm:"type:uuid;index;not null"`
	SignerID    string    `gorm:"type:uuid;index"`
	Action      string    `gorm:"index;not null"`
	Description string
	IP          string    `gorm:"column:ip"`
	UserAgent   string
	CreatedAt   time.Time `gorm:"index;not null"`
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}
