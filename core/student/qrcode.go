package student

import (
	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// QRCode renders the student's code as a PNG image of size x size pixels.
func (s Student) QRCode(size int) ([]byte, error) {
	if size < MinQRSize || size > MaxQRSize {
		size = DefaultQRSize
	}
	return qrcode.Encode(s.Code, qrcode.Medium, size)
}
