package domain

type FieldKind string

const (
	FieldSignature FieldKind = "signature"
	FieldInitials  FieldKind = "initials"
	FieldName      FieldKind = "name"
	FieldCPF       FieldKind = "cpf"
	FieldDate      FieldKind = "date"
)

var fieldKinds = map[FieldKind]bool{
	FieldSignature: true,
	FieldInitials:  true,
	FieldName:      true,
	FieldCPF:       true,
	FieldDate:      true,
}

// SignatureField is a placement instruction. Percentages are anchored to the
// top-left origin of the rendered page at 100% scale. SignerID empty means the
// field applies to any signer of the request.
type SignatureField struct {
	ID        string
	RequestID string
	SignerID  string
	Kind      FieldKind
	Page      int // 1-based
	X         float64
	Y         float64
	W         float64
	H         float64
}

func (f SignatureField) Validate() error {
	if !fieldKinds[f.Kind] {
		return Invalid("kind", "unknown field kind")
	}
	if f.Page < 1 {
		return Invalid("page", "page numbers are 1-based")
	}
	if f.X < 0 || f.Y < 0 {
		return Invalid("position", "x and y must not be negative")
	}
	if f.W <= 0 || f.H <= 0 {
		return Invalid("size", "w and h must be positive")
	}
	if f.X+f.W > 100 {
		return Invalid("size", "x+w exceeds page width")
	}
	if f.Y+f.H > 100 {
		return Invalid("size", "y+h exceeds page height")
	}
	return nil
}

// AppliesTo reports whether the field binds the given signer. Unowned fields
// apply to every signer.
func (f SignatureField) AppliesTo(signerID string) bool {
	return f.SignerID == "" || f.SignerID == signerID
}
