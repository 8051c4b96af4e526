// Package imaging normalizes captured raster images before they are embedded
// into certified documents.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// DefaultWhiteThreshold is the channel floor above which a pixel counts as
// background. It is a heuristic tuned for scanned signature strokes, not a
// contract; callers may override it per capture source.
const DefaultWhiteThreshold = 240

type Options struct {
	// StripBackground turns near-white pixels fully transparent. Used for
	// signature strokes, never for facial captures.
	StripBackground bool
	// WhiteThreshold overrides DefaultWhiteThreshold when > 0.
	WhiteThreshold uint8
}

// Normalize decodes raw, applies the requested background strip and re-encodes
// losslessly as PNG. When StripBackground is false the original bytes are
// returned untouched. Decode or encode failures degrade gracefully to the
// original bytes with a wrapped error the caller may log: background removal
// is cosmetic, never a reason to fail a signing commit.
func Normalize(raw []byte, opts Options) ([]byte, error) {
	if !opts.StripBackground {
		return raw, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return raw, fmt.Errorf("decode capture: %w", err)
	}

	threshold := opts.WhiteThreshold
	if threshold == 0 {
		threshold = DefaultWhiteThreshold
	}

	out := stripBackground(img, threshold)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return raw, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}

// stripBackground copies img into an NRGBA canvas and zeroes the alpha of
// every pixel whose R, G and B all exceed threshold.
func stripBackground(img image.Image, threshold uint8) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(bounds)
	xdraw.Draw(out, bounds, img, bounds.Min, xdraw.Src)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := out.NRGBAAt(x, y)
			if c.R > threshold && c.G > threshold && c.B > threshold {
				out.SetNRGBA(x, y, color.NRGBA{})
			}
		}
	}
	return out
}

// Dimensions reports the pixel size of an encoded raster without a full
// decode. The pipeline uses it to scale placements.
func Dimensions(raw []byte) (w, h int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
