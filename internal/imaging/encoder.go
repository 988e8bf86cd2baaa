package imaging

import (
	"errors"
	"fmt"

	"github.com/h2non/bimg"
)

// ErrUnsupportedImage reports input that libvips cannot decode.
var ErrUnsupportedImage = errors.New("imaging: unsupported or corrupt image")

// Derivatives holds the four encoded variants of one source image.
type Derivatives struct {
	ThumbnailJPEG []byte
	ThumbnailWebP []byte
	LargeJPEG     []byte
	LargeWebP     []byte
}

// Encoder turns an original image into its derivative set.
type Encoder interface {
	Encode(src []byte) (*Derivatives, error)
}

// Options configures VipsEncoder.
type Options struct {
	ThumbnailMaxSize int
	LargeMaxSize     int
	JPEGQuality      int
	WebPQuality      int
}

// VipsEncoder encodes derivatives with libvips through bimg.
type VipsEncoder struct {
	opts Options
}

// NewVipsEncoder applies defaults to opts and checks that libvips can write WebP.
func NewVipsEncoder(opts Options) (*VipsEncoder, error) {
	if opts.ThumbnailMaxSize <= 0 {
		opts.ThumbnailMaxSize = 400
	}
	if opts.LargeMaxSize <= 0 {
		opts.LargeMaxSize = 1600
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 82
	}
	if opts.WebPQuality <= 0 || opts.WebPQuality > 100 {
		opts.WebPQuality = 80
	}
	if !bimg.IsTypeSupportedSave(bimg.WEBP) {
		return nil, errors.New("imaging: libvips build cannot encode webp")
	}
	return &VipsEncoder{opts: opts}, nil
}

// Encode resizes src to fit the thumbnail and large bounds, never enlarging,
// and writes each size as JPEG and WebP.
func (e *VipsEncoder) Encode(src []byte) (*Derivatives, error) {
	if len(src) == 0 || bimg.DetermineImageType(src) == bimg.UNKNOWN {
		return nil, ErrUnsupportedImage
	}
	if _, err := bimg.NewImage(src).Size(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var out Derivatives
	var err error
	if out.ThumbnailJPEG, err = e.render(src, e.opts.ThumbnailMaxSize, bimg.JPEG, e.opts.JPEGQuality); err != nil {
		return nil, err
	}
	if out.ThumbnailWebP, err = e.render(src, e.opts.ThumbnailMaxSize, bimg.WEBP, e.opts.WebPQuality); err != nil {
		return nil, err
	}
	if out.LargeJPEG, err = e.render(src, e.opts.LargeMaxSize, bimg.JPEG, e.opts.JPEGQuality); err != nil {
		return nil, err
	}
	if out.LargeWebP, err = e.render(src, e.opts.LargeMaxSize, bimg.WEBP, e.opts.WebPQuality); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *VipsEncoder) render(src []byte, bound int, typ bimg.ImageType, quality int) ([]byte, error) {
	options := bimg.Options{
		Width:         bound,
		Height:        bound,
		Type:          typ,
		Quality:       quality,
		StripMetadata: true,
	}
	if typ == bimg.JPEG {
		// JPEG has no alpha channel
		options.Interlace = true
		options.Background = bimg.Color{R: 255, G: 255, B: 255}
	}
	out, err := bimg.NewImage(src).Process(options)
	if err != nil {
		return nil, fmt.Errorf("imaging: encode %s %dpx: %w", bimg.ImageTypeName(typ), bound, err)
	}
	return out, nil
}

var _ Encoder = (*VipsEncoder)(nil)
