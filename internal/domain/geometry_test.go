package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestToAbsoluteRectLetterPage(t *testing.T) {
	f := SignatureField{Kind: FieldSignature, Page: 1, X: 10, Y: 80, W: 25, H: 8}
	r := ToAbsoluteRect(612, 792, f)

	if !almostEqual(r.X, 61.2) {
		t.Errorf("X = %v, want 61.2", r.X)
	}
	if !almostEqual(r.W, 153) {
		t.Errorf("W = %v, want 153", r.W)
	}
	if !almostEqual(r.H, 63.36) {
		t.Errorf("H = %v, want 63.36", r.H)
	}
	// y = 792 - 792*0.80 - 63.36
	if !almostEqual(r.Y, 95.04) {
		t.Errorf("Y = %v, want 95.04", r.Y)
	}
}

func TestToAbsoluteRectStaysOnPage(t *testing.T) {
	pages := []struct{ w, h float64 }{
		{612, 792},
		{595.28, 841.89},
		{200, 100},
	}
	fields := []SignatureField{
		{Kind: FieldSignature, Page: 1, X: 0, Y: 0, W: 100, H: 100},
		{Kind: FieldSignature, Page: 1, X: 0, Y: 0, W: 0.1, H: 0.1},
		{Kind: FieldInitials, Page: 1, X: 99, Y: 99, W: 1, H: 1},
		{Kind: FieldDate, Page: 1, X: 33.3, Y: 66.6, W: 10, H: 5},
		{Kind: FieldName, Page: 1, X: 50, Y: 0, W: 50, H: 100},
	}
	for _, p := range pages {
		for _, f := range fields {
			if err := f.Validate(); err != nil {
				t.Fatalf("field %+v should be valid: %v", f, err)
			}
			r := ToAbsoluteRect(p.w, p.h, f)
			if r.X < -1e-9 || r.Y < -1e-9 {
				t.Errorf("field %+v on %vx%v: negative origin %+v", f, p.w, p.h, r)
			}
			if r.X+r.W > p.w+1e-9 {
				t.Errorf("field %+v on %vx%v: x+w=%v exceeds page width", f, p.w, p.h, r.X+r.W)
			}
			if r.Y+r.H > p.h+1e-9 {
				t.Errorf("field %+v on %vx%v: y+h=%v exceeds page height", f, p.w, p.h, r.Y+r.H)
			}
		}
	}
}

func TestFallbackSignatureRect(t *testing.T) {
	r := FallbackSignatureRect(612, 792)
	if r.X+r.W > 612 || r.Y+r.H > 792 || r.X < 0 || r.Y < 0 {
		t.Fatalf("fallback rect off page: %+v", r)
	}
	// Anchored to the bottom-right area.
	if r.X < 612/2 {
		t.Errorf("fallback rect not right-anchored: %+v", r)
	}
	if r.Y > 792.0/4 {
		t.Errorf("fallback rect not bottom-anchored: %+v", r)
	}
}

func TestFieldValidateRejectsBadGeometry(t *testing.T) {
	cases := []SignatureField{
		{Kind: FieldSignature, Page: 0, X: 10, Y: 10, W: 10, H: 10},
		{Kind: FieldSignature, Page: 1, X: -1, Y: 10, W: 10, H: 10},
		{Kind: FieldSignature, Page: 1, X: 10, Y: -0.5, W: 10, H: 10},
		{Kind: FieldSignature, Page: 1, X: 95, Y: 10, W: 10, H: 10},
		{Kind: FieldSignature, Page: 1, X: 10, Y: 95, W: 10, H: 10},
		{Kind: FieldSignature, Page: 1, X: 10, Y: 10, W: 0, H: 10},
		{Kind: "stamp", Page: 1, X: 10, Y: 10, W: 10, H: 10},
	}
	for _, f := range cases {
		if err := f.Validate(); err == nil {
			t.Errorf("field %+v passed validation", f)
		} else if !IsValidation(err) {
			t.Errorf("field %+v: error %v is not a ValidationError", f, err)
		}
	}
}
