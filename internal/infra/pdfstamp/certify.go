// Package pdfstamp turns an original document plus a committed signer into
// the final certified artifact: signature images at their marked rects, a
// certification band on every original page and two appended report pages.
package pdfstamp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"firma/internal/domain"
	"firma/internal/infra/imaging"
	"firma/internal/infra/uaparse"
	"firma/internal/usecase"
	"firma/pkg/fingerprint"
)

// Certifier runs the certification pipeline. It is a pure transformation:
// nothing is persisted here, the caller stores the returned artifact.
type Certifier struct {
	Origin         string // public origin for verification URLs
	Now            func() time.Time
	Logger         *slog.Logger
	WhiteThreshold uint8
}

func (c *Certifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Certifier) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Certifier) VerifyURL(code string) string {
	return fmt.Sprintf("%s/verificar/%s", c.Origin, code)
}

func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Certify executes the pipeline: load, place, band, report, serialize. Only
// an unreadable original document is fatal; capture decode failures degrade
// to placeholders.
func (c *Certifier) Certify(ctx context.Context, in usecase.CertifyInput) (*usecase.CertifyResult, error) {
	log := c.logger().With("requestId", in.Request.ID, "signerId", in.Signer.ID)
	conf := pdfConf()

	dims, err := pageDimensions(in.Document, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentLoad, err)
	}
	pageCount := len(dims)
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrDocumentLoad)
	}

	signedAt := in.Signer.SignedAt
	now := c.now()
	if signedAt == nil {
		signedAt = &now
	}

	sigImage, sigW, sigH, sigOK := c.prepareSignature(in.SignatureImage, log)
	facImage, facW, facH, facOK := c.prepareFacial(in.FacialImage, log)

	verifyURL := c.VerifyURL(in.Signer.VerificationCode)
	qr, err := qrPNG(verifyURL)
	if err != nil {
		// A missing QR must not block the legal record; the URL is still
		// printed in full next to it.
		log.Warn("qr generation failed", "error", err)
		qr = nil
	}

	var originalStamps []stamp
	if sigOK {
		originalStamps = append(originalStamps, signatureStamps(dims, in.Fields, in.Signer.ID, sigImage, sigW, sigH)...)
	}
	originalStamps = append(originalStamps, textFieldStamps(dims, in.Fields, in.Signer, *signedAt)...)

	meta := footerMeta{
		SignerName:  in.Signer.Name,
		SignerEmail: in.Signer.Email,
		SignedAt:    *signedAt,
		IP:          in.Signer.IP,
		Fingerprint: fingerprint.DocDisplay(in.Request.ID, in.Signer.ID),
		VerifyURL:   verifyURL,
	}
	originalStamps = append(originalStamps, dropImageless(footerStamps(pageCount, meta, qr))...)

	doc, err := applyStamps(in.Document, originalStamps, conf)
	if err != nil {
		return nil, fmt.Errorf("stamp original pages: %w", err)
	}

	doc, err = appendBlankPages(doc, pageCount, 2, conf)
	if err != nil {
		return nil, fmt.Errorf("append report pages: %w", err)
	}

	rm := reportMeta{
		Request:     in.Request,
		Signer:      in.Signer,
		Device:      uaparse.Parse(in.Signer.UserAgent),
		SignedAt:    *signedAt,
		Fingerprint: fingerprint.Doc(in.Request.ID, in.Signer.ID),
		VerifyURL:   verifyURL,
		SignatureW:  sigW,
		SignatureH:  sigH,
		FacialW:     facW,
		FacialH:     facH,
	}
	if sigOK {
		rm.SignatureImage = sigImage
	}
	if facOK {
		rm.FacialImage = facImage
	}

	reportDim := dims[pageCount-1]
	doc, err = applyStamps(doc, dropImageless(reportStamps(pageCount+1, pageCount+2, reportDim, rm, qr)), conf)
	if err != nil {
		return nil, fmt.Errorf("stamp report pages: %w", err)
	}

	return &usecase.CertifyResult{
		Artifact:          doc,
		ContentHash:       fingerprint.ContentHash(doc),
		SignatureEmbedded: sigOK,
		FacialEmbedded:    facOK,
	}, nil
}

var _ usecase.Certifier = (*Certifier)(nil)

// prepareSignature normalizes the manuscript capture with the background
// stripped. Decode failures are recoverable: the pipeline proceeds without
// the rendering and the report labels it.
func (c *Certifier) prepareSignature(raw []byte, log *slog.Logger) (img []byte, w, h int, ok bool) {
	if len(raw) == 0 {
		return nil, 0, 0, false
	}
	normalized, err := imaging.Normalize(raw, imaging.Options{
		StripBackground: true,
		WhiteThreshold:  c.WhiteThreshold,
	})
	if err != nil {
		log.Warn("signature background strip failed, using original capture", "error", err)
	}
	w, h, err = imaging.Dimensions(normalized)
	if err != nil {
		log.Warn("signature capture undecodable, proceeding with placeholder", "error", err)
		return nil, 0, 0, false
	}
	return normalized, w, h, true
}

// prepareFacial keeps the facial capture as-is; backgrounds are never
// stripped from photographs.
func (c *Certifier) prepareFacial(raw []byte, log *slog.Logger) (img []byte, w, h int, ok bool) {
	if len(raw) == 0 {
		return nil, 0, 0, false
	}
	w, h, err := imaging.Dimensions(raw)
	if err != nil {
		log.Warn("facial capture undecodable, proceeding with placeholder", "error", err)
		return nil, 0, 0, false
	}
	return raw, w, h, true
}

// dropImageless removes planned image stamps whose raster is missing (e.g. QR
// generation failed) while keeping all text stamps.
func dropImageless(stamps []stamp) []stamp {
	out := stamps[:0]
	for _, s := range stamps {
		if s.text == "" && !s.isImage() {
			continue
		}
		out = append(out, s)
	}
	return out
}

func pageDimensions(doc []byte, conf *model.Configuration) ([]pageDim, error) {
	raw, err := api.PageDims(bytes.NewReader(doc), conf)
	if err != nil {
		return nil, err
	}
	dims := make([]pageDim, len(raw))
	for i, d := range raw {
		dims[i] = pageDim{W: d.Width, H: d.Height}
	}
	return dims, nil
}

// applyStamps applies the planned watermarks one pass each. AddWatermarksMap
// takes a single watermark per page, so stacked stamps on the same page need
// sequential rewrites of the document.
func applyStamps(doc []byte, stamps []stamp, conf *model.Configuration) ([]byte, error) {
	for _, s := range stamps {
		var (
			wm  *model.Watermark
			err error
		)
		if s.isImage() {
			wm, err = api.ImageWatermarkForReader(bytes.NewReader(s.image), s.desc, true, false, types.POINTS)
		} else {
			wm, err = api.TextWatermark(s.text, s.desc, true, false, types.POINTS)
		}
		if err != nil {
			return nil, fmt.Errorf("build watermark for page %d: %w", s.page, err)
		}
		var out bytes.Buffer
		if err := api.AddWatermarksMap(bytes.NewReader(doc), &out, map[int]*model.Watermark{s.page: wm}, conf); err != nil {
			return nil, fmt.Errorf("apply watermark to page %d: %w", s.page, err)
		}
		doc = out.Bytes()
	}
	return doc, nil
}

// appendBlankPages inserts n blank pages after page afterPage, one at a time.
func appendBlankPages(doc []byte, afterPage, n int, conf *model.Configuration) ([]byte, error) {
	for i := 0; i < n; i++ {
		var out bytes.Buffer
		pages := []string{strconv.Itoa(afterPage + i)}
		if err := api.InsertPages(bytes.NewReader(doc), &out, pages, false, nil, conf); err != nil {
			return nil, fmt.Errorf("insert blank page after %d: %w", afterPage+i, err)
		}
		doc = out.Bytes()
	}
	return doc, nil
}
