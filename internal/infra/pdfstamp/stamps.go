package pdfstamp

import (
	"fmt"
	"strings"
	"time"

	"firma/internal/domain"
)

// pageDim keeps the stamp planning layer free of pdfcpu types.
type pageDim struct {
	W float64
	H float64
}

// stamp is one planned watermark application. Image stamps carry encoded
// raster bytes; text stamps carry the text itself. desc follows the pdfcpu
// watermark description syntax.
type stamp struct {
	page  int
	text  string
	image []byte
	desc  string
}

func (s stamp) isImage() bool { return len(s.image) > 0 }

const (
	footerFontPts   = 6
	footerQRPts     = 42.0
	reportQRPts     = 110.0
	fieldInkColor   = "#1a237e"
	footerTextColor = "#37474f"
)

// displayLocation is the fixed timezone certification texts are rendered in.
var displayLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}()

func formatStamp(t time.Time) string {
	return t.In(displayLocation).Format("02/01/2006 15:04:05 -07:00")
}

// imagePlacementDesc anchors an image stamp to an absolute bottom-left rect,
// scaling the raster so it fits inside the rect without distortion.
func imagePlacementDesc(r domain.Rect, imgW, imgH int) string {
	scale := r.W / float64(imgW)
	if s := r.H / float64(imgH); s < scale {
		scale = s
	}
	return fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.5f abs, rot:0, op:1", r.X, r.Y, scale)
}

func textPlacementDesc(r domain.Rect) string {
	points := int(r.H * 0.6)
	if points < 6 {
		points = 6
	}
	if points > 24 {
		points = 24
	}
	return fmt.Sprintf("fontname:Helvetica, points:%d, scale:1 abs, pos:bl, off:%.2f %.2f, rot:0, fillcolor:%s, op:1",
		points, r.X, r.Y, fieldInkColor)
}

// signatureStamps plans the manuscript signature placement. Fields referencing
// pages outside the document are skipped silently; when the signer has no
// signature fields at all, the signature falls back to a fixed rect on the
// last page so the document always visibly bears it.
func signatureStamps(dims []pageDim, fields []domain.SignatureField, signerID string, sigImage []byte, imgW, imgH int) []stamp {
	var stamps []stamp
	placed := false
	for _, f := range fields {
		if f.Kind != domain.FieldSignature || !f.AppliesTo(signerID) {
			continue
		}
		placed = true
		if f.Page < 1 || f.Page > len(dims) {
			continue
		}
		d := dims[f.Page-1]
		rect := domain.ToAbsoluteRect(d.W, d.H, f)
		stamps = append(stamps, stamp{
			page:  f.Page,
			image: sigImage,
			desc:  imagePlacementDesc(rect, imgW, imgH),
		})
	}
	if !placed {
		last := len(dims)
		d := dims[last-1]
		rect := domain.FallbackSignatureRect(d.W, d.H)
		stamps = append(stamps, stamp{
			page:  last,
			image: sigImage,
			desc:  imagePlacementDesc(rect, imgW, imgH),
		})
	}
	return stamps
}

// textFieldStamps renders the non-signature field kinds as text at their
// marked rects.
func textFieldStamps(dims []pageDim, fields []domain.SignatureField, signer domain.Signer, signedAt time.Time) []stamp {
	var stamps []stamp
	for _, f := range fields {
		if f.Kind == domain.FieldSignature || !f.AppliesTo(signer.ID) {
			continue
		}
		if f.Page < 1 || f.Page > len(dims) {
			continue
		}
		value := fieldValue(f.Kind, signer, signedAt)
		if value == "" {
			continue
		}
		d := dims[f.Page-1]
		rect := domain.ToAbsoluteRect(d.W, d.H, f)
		stamps = append(stamps, stamp{
			page: f.Page,
			text: value,
			desc: textPlacementDesc(rect),
		})
	}
	return stamps
}

func fieldValue(kind domain.FieldKind, signer domain.Signer, signedAt time.Time) string {
	switch kind {
	case domain.FieldName:
		return signer.Name
	case domain.FieldCPF:
		return signer.CPF
	case domain.FieldDate:
		return signedAt.In(displayLocation).Format("02/01/2006")
	case domain.FieldInitials:
		return initials(signer.Name)
	}
	return ""
}

func initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)
		if len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return strings.ToUpper(b.String())
}

// footerMeta is everything the per-page certification band needs.
type footerMeta struct {
	SignerName  string
	SignerEmail string
	SignedAt    time.Time
	IP          string
	Fingerprint string // truncated display form
	VerifyURL   string
}

// footerStamps plans the certification band for every original page: the legal
// banner plus signer identity and verification data, and a QR code encoding
// the verification URL.
func footerStamps(pageCount int, meta footerMeta, qr []byte) []stamp {
	lines := []string{
		footerBanner,
		fmt.Sprintf("Assinado por %s <%s> em %s", meta.SignerName, meta.SignerEmail, formatStamp(meta.SignedAt)),
	}
	detail := fmt.Sprintf("Hash: %s | Verifique em %s", meta.Fingerprint, meta.VerifyURL)
	if meta.IP != "" {
		detail = fmt.Sprintf("IP: %s | %s", meta.IP, detail)
	}
	lines = append(lines, detail)
	text := strings.Join(lines, "\n")

	textDesc := fmt.Sprintf("fontname:Helvetica, points:%d, scale:1 abs, pos:bc, off:0 10, rot:0, fillcolor:%s, op:1",
		footerFontPts, footerTextColor)
	qrDesc := fmt.Sprintf("pos:br, off:-8 8, scale:%.5f abs, rot:0, op:1", qrScale(footerQRPts))

	stamps := make([]stamp, 0, pageCount*2)
	for page := 1; page <= pageCount; page++ {
		stamps = append(stamps, stamp{page: page, text: text, desc: textDesc})
		stamps = append(stamps, stamp{page: page, image: qr, desc: qrDesc})
	}
	return stamps
}

// reportMeta is the evidence content of the two appended report pages.
type reportMeta struct {
	Request     domain.SignatureRequest
	Signer      domain.Signer
	Device      domain.DeviceInfo
	SignedAt    time.Time
	Fingerprint string // full printed fingerprint
	VerifyURL   string

	SignatureImage []byte
	SignatureW     int
	SignatureH     int
	FacialImage    []byte
	FacialW        int
	FacialH        int
}

// evidenceList enumerates the authentication evidence points actually
// collected. Bullets for absent captures are omitted, not filled with
// placeholders.
func evidenceList(m reportMeta) []string {
	items := []string{"Assinatura manuscrita capturada eletronicamente"}
	if m.Signer.AuthProvider != "" {
		contact := m.Signer.AuthContact
		if contact == "" {
			contact = m.Signer.Email
		}
		items = append(items, fmt.Sprintf("Identidade confirmada via %s (%s)", m.Signer.AuthProvider, contact))
	} else {
		items = append(items, fmt.Sprintf("Dados declarados pelo signatario (%s)", m.Signer.Email))
	}
	if m.Signer.IP != "" {
		items = append(items, fmt.Sprintf("Endereco IP de origem: %s", m.Signer.IP))
	}
	if m.Signer.Geolocation != nil {
		items = append(items, fmt.Sprintf("Geolocalizacao: %.6f, %.6f", m.Signer.Geolocation.Lat, m.Signer.Geolocation.Lon))
	}
	if m.Signer.UserAgent != "" {
		items = append(items, fmt.Sprintf("Dispositivo: %s | Navegador: %s | Sistema: %s", m.Device.Device, m.Device.Browser, m.Device.OS))
	}
	if len(m.FacialImage) > 0 {
		items = append(items, "Captura facial coletada no momento da assinatura")
	}
	return items
}

// reportStamps plans the two report pages appended after the original
// document. pageA and pageB are 1-based page numbers in the augmented
// document; dim is the report page size.
func reportStamps(pageA, pageB int, dim pageDim, m reportMeta, qr []byte) []stamp {
	var stamps []stamp

	header := func(page int, title string) {
		stamps = append(stamps, stamp{
			page: page,
			text: title,
			desc: "fontname:Helvetica, points:14, scale:1 abs, pos:tc, off:0 -40, rot:0, fillcolor:#000000, op:1",
		})
	}

	// Page A: identity, evidence list, large signature rendering, QR.
	header(pageA, reportTitleA)
	identity := strings.Join([]string{
		fmt.Sprintf("Documento: %s", m.Request.Title),
		fmt.Sprintf("Identificador: %s", m.Request.ID),
		fmt.Sprintf("Signatario: %s <%s>", m.Signer.Name, m.Signer.Email),
		fmt.Sprintf("Assinado em: %s", formatStamp(m.SignedAt)),
	}, "\n")
	stamps = append(stamps, stamp{
		page: pageA,
		text: identity,
		desc: "fontname:Helvetica, points:10, scale:1 abs, pos:tl, off:40 -80, rot:0, fillcolor:#000000, op:1",
	})

	evidence := "Pontos de autenticacao coletados:\n- " + strings.Join(evidenceList(m), "\n- ")
	stamps = append(stamps, stamp{
		page: pageA,
		text: evidence,
		desc: "fontname:Helvetica, points:9, scale:1 abs, pos:tl, off:40 -170, rot:0, fillcolor:#000000, op:1",
	})

	if len(m.SignatureImage) > 0 {
		rect := domain.Rect{X: dim.W * 0.2, Y: dim.H * 0.22, W: dim.W * 0.6, H: dim.H * 0.18}
		stamps = append(stamps, stamp{
			page:  pageA,
			image: m.SignatureImage,
			desc:  imagePlacementDesc(rect, m.SignatureW, m.SignatureH),
		})
	}
	stamps = append(stamps, stamp{
		page:  pageA,
		image: qr,
		desc:  fmt.Sprintf("pos:bc, off:0 40, scale:%.5f abs, rot:0, op:1", qrScale(reportQRPts)),
	})

	// Page B: facial capture (or explicit placeholder) under a confidential
	// watermark, then the legal citations and closing statement.
	header(pageB, reportTitleB)
	if len(m.FacialImage) > 0 {
		rect := domain.Rect{X: dim.W * 0.3, Y: dim.H * 0.5, W: dim.W * 0.4, H: dim.H * 0.3}
		stamps = append(stamps, stamp{
			page:  pageB,
			image: m.FacialImage,
			desc:  imagePlacementDesc(rect, m.FacialW, m.FacialH),
		})
	} else {
		stamps = append(stamps, stamp{
			page: pageB,
			text: facialNotCollected,
			desc: "fontname:Helvetica, points:12, scale:1 abs, pos:c, off:0 120, rot:0, fillcolor:#555555, op:1",
		})
	}
	stamps = append(stamps, stamp{
		page: pageB,
		text: fmt.Sprintf("%s %s", confidentialLabel, formatStamp(m.SignedAt)),
		desc: "fontname:Helvetica, points:28, scale:1 abs, pos:c, off:0 140, rot:45, fillcolor:#b71c1c, op:0.3",
	})

	legal := strings.Join([]string{
		"Fundamentacao legal:",
		legalCitationMP,
		"",
		legalCitationLei,
		"",
		fmt.Sprintf("Hash do documento: %s", m.Fingerprint),
		fmt.Sprintf("Verificacao: %s", m.VerifyURL),
		"",
		closingStatement,
	}, "\n")
	stamps = append(stamps, stamp{
		page: pageB,
		text: legal,
		desc: "fontname:Helvetica, points:8, scale:1 abs, pos:bl, off:40 60, rot:0, fillcolor:#000000, op:1",
	})

	return stamps
}
