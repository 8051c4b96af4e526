package pdfstamp

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrPixels is the raster size QR codes are generated at; stamps scale them
// down to the target point size.
const qrPixels = 256

func qrPNG(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %q: %w", url, err)
	}
	return png, nil
}

// qrScale converts a desired rendered size in points into the abs scale factor
// for a generated QR image.
func qrScale(points float64) float64 {
	return points / float64(qrPixels)
}
