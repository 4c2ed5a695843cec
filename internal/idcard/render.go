// Package idcard renders printable student ID cards as PNG images: issuer
// header, identity lines, and a QR code of the student id that the scan
// flow can read back.
package idcard

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Card dimensions follow the CR80 badge ratio at print resolution.
const (
	cardWidth  = 600
	cardHeight = 378
	headerH    = 90
	qrSize     = 150
)

var (
	headerBg = color.RGBA{R: 0x1e, G: 0x3a, B: 0x5f, A: 0xff}
	cardBg   = color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	textInk  = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	labelInk = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// Info is what gets printed on a card.
type Info struct {
	Issuer    string // school / teacher display name
	Name      string
	RollNo    string
	Grade     string
	StudentID string // encoded in the QR
}

// Render draws the card and returns it PNG-encoded.
func Render(info Info) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBg), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, cardWidth, headerH), image.NewUniform(headerBg), image.Point{}, draw.Src)

	issuer := info.Issuer
	if issuer == "" {
		issuer = "Student ID"
	}
	drawText(img, issuer, 24, 40, color.White)
	drawText(img, "STUDENT IDENTIFICATION", 24, 66, color.RGBA{R: 0xb8, G: 0xc7, B: 0xdb, A: 0xff})

	y := headerH + 56
	for _, line := range []struct{ label, value string }{
		{"NAME", info.Name},
		{"ROLL NO", info.RollNo},
		{"GRADE", info.Grade},
	} {
		if line.value == "" {
			continue
		}
		drawText(img, line.label, 24, y, labelInk)
		drawText(img, line.value, 24, y+20, textInk)
		y += 56
	}

	qr, err := qrcode.New(info.StudentID, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	qr.DisableBorder = true
	qrImg := qr.Image(qrSize)
	qrPos := image.Pt(cardWidth-qrSize-30, headerH+(cardHeight-headerH-qrSize)/2)
	draw.Draw(img, image.Rectangle{Min: qrPos, Max: qrPos.Add(image.Pt(qrSize, qrSize))}, qrImg, qrImg.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawText(dst draw.Image, s string, x, y int, ink color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
