// Package imaging turns the raw bytes carried by a Job into a decoded frame
// that detection backends can consume.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/smartcampus/occupancy-pipeline/internal/domain"
)

// Frame is a decoded camera snapshot.
// Raw keeps the original encoded bytes for backends that want them.
type Frame struct {
	Raw    []byte
	Format string
	Image  image.Image
	Width  int
	Height int
}

// Decode decodes raw image bytes. Corrupt or unsupported data is reported
// as domain.ErrMalformedJob since retrying it can never succeed.
func Decode(raw []byte) (*Frame, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrMalformedJob)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", domain.ErrMalformedJob, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", domain.ErrMalformedJob)
	}

	return &Frame{
		Raw:    raw,
		Format: format,
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
