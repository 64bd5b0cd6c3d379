package entry

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Fingerprint returns a content fingerprint for an encoded image.
//
// The image is decoded and hashed with BLAKE2b-256 over its width, height and
// the 16-bit premultiplied RGBA value of every pixel in row-major order, so the
// same pixels fingerprint equal whether they arrive as PNG, TIFF or BMP.
// Embedded metadata and colour profiles do not take part. Data that does not
// decode is hashed as-is with a "raw:" prefix.
func Fingerprint(data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		sum := blake2b.Sum256(data)
		return "raw:" + hex.EncodeToString(sum[:])
	}

	h, _ := blake2b.New256(nil)
	b := img.Bounds()
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(b.Dy()))
	h.Write(hdr[:])

	row := make([]byte, 0, b.Dx()*8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			row = binary.BigEndian.AppendUint16(row, uint16(r))
			row = binary.BigEndian.AppendUint16(row, uint16(g))
			row = binary.BigEndian.AppendUint16(row, uint16(bl))
			row = binary.BigEndian.AppendUint16(row, uint16(a))
		}
		h.Write(row)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Dimensions returns the pixel size of an encoded image without decoding the
// pixel data.
func Dimensions(data []byte) (w, h int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
