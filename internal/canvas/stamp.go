package canvas

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// StampIndex draws the frame index as a QR code into the top-left corner
// so that rendered debug output can be checked frame by frame.
func (s *Surface) StampIndex(index int) error {
	if s.img == nil {
		return ErrReleased
	}
	size := s.img.Bounds().Dy() / 8
	if w := s.img.Bounds().Dx() / 8; w < size {
		size = w
	}
	if size < 21 {
		return nil
	}

	qr, err := qrcode.New(fmt.Sprintf("frame:%d", index), qrcode.Low)
	if err != nil {
		return fmt.Errorf("canvas: qr: %w", err)
	}
	code := qr.Image(size)
	draw.Draw(s.img, image.Rect(0, 0, size, size), code, code.Bounds().Min, draw.Src)
	return nil
}
