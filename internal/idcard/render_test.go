package idcard

import (
	"bytes"
	"image/png"
	"testing"
)

func TestRender(t *testing.T) {
	data, err := Render(Info{
		Issuer:    "Springfield Elementary",
		Name:      "Ada Lovelace",
		RollNo:    "17",
		Grade:     "5A",
		StudentID: "9b2e7c1a",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != cardWidth || b.Dy() != cardHeight {
		t.Errorf("card is %dx%d, want %dx%d", b.Dx(), b.Dy(), cardWidth, cardHeight)
	}
}

func TestRenderMinimalInfo(t *testing.T) {
	// Missing grade/issuer should not break the layout.
	data, err := Render(Info{Name: "Ada Lovelace", RollNo: "17", StudentID: "9b2e7c1a"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
}
