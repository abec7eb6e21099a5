package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// Image processing defaults.
const (
	DefaultMaxBytes     = 5 << 20
	DefaultMaxDimension = 1600
	DefaultJPEGQuality  = 60
)

var (
	// ErrUnsupportedImage rejects anything that is not a JPEG or PNG.
	ErrUnsupportedImage = errors.New("only jpeg and png images are allowed")
	// ErrImageTooLarge rejects uploads over the byte limit.
	ErrImageTooLarge = errors.New("image exceeds the upload size limit")
	// ErrEmptyImage rejects empty uploads.
	ErrEmptyImage = errors.New("image is empty")
)

// ImageProcessor validates, downsizes and re-encodes uploaded images.
type ImageProcessor struct {
	MaxBytes     int64
	MaxDimension int
	JPEGQuality  int
}

// NewImageProcessor fills non-positive settings with defaults.
func NewImageProcessor(maxBytes int64, maxDimension, quality int) *ImageProcessor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &ImageProcessor{MaxBytes: maxBytes, MaxDimension: maxDimension, JPEGQuality: quality}
}

// Process returns an Upload holding the compressed image. PNGs stay PNG; everything else is JPEG.
func (p *ImageProcessor) Process(filename string, data []byte) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, ErrEmptyImage
	}
	if int64(len(data)) > p.MaxBytes {
		return Upload{}, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	var format imaging.Format
	switch contentType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return Upload{}, ErrUnsupportedImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	img = resizeToFit(img, p.MaxDimension)

	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, format,
		imaging.JPEGQuality(p.JPEGQuality),
		imaging.PNGCompressionLevel(png.BestCompression),
	); err != nil {
		return Upload{}, fmt.Errorf("encode image: %w", err)
	}

	return Upload{Filename: filename, ContentType: contentType, Data: buf.Bytes()}, nil
}

func resizeToFit(src image.Image, maxSide int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}

	scale := float64(maxSide) / float64(w)
	if s := float64(maxSide) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
