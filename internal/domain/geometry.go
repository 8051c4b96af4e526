package domain

// Rect is an absolute rectangle in page units with a bottom-left origin, the
// convention of PDF page description.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// ToAbsoluteRect converts a percent-anchored field into page units. Field
// percentages use a top-left origin, so y is flipped into the bottom-left
// origin here. No clamping: callers validate the field before placement.
func ToAbsoluteRect(pageWidth, pageHeight float64, f SignatureField) Rect {
	w := pageWidth * f.W / 100
	h := pageHeight * f.H / 100
	x := pageWidth * f.X / 100
	y := pageHeight - (pageHeight * f.Y / 100) - h
	return Rect{X: x, Y: y, W: w, H: h}
}

// FallbackSignatureRect anchors a signature to the bottom-right area of a page
// for signers without any placement fields, so every signed document visibly
// bears a signature.
func FallbackSignatureRect(pageWidth, pageHeight float64) Rect {
	w := pageWidth * 0.25
	h := pageHeight * 0.08
	return Rect{
		X: pageWidth - w - pageWidth*0.05,
		Y: pageHeight * 0.05,
		W: w,
		H: h,
	}
}
