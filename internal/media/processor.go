package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds the longest side of a processed poster.
	DefaultMaxDimension = 1920
	jpegQuality         = 85
)

// Upload describes an incoming image file.
type Upload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

// Result is the normalized output: always JPEG, bounded dimensions.
type Result struct {
	Bytes       []byte
	ContentType string
	Resized     bool
}

// Processor normalizes uploaded poster images before storage.
type Processor interface {
	Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error)
}

// JPEGProcessor decodes JPEG, PNG, GIF and WebP posters, downscales
// anything larger than the configured dimension and re-encodes as JPEG.
// Re-encoding also strips metadata and rejects non-image payloads.
type JPEGProcessor struct {
	maxDimension int
}

func NewJPEGProcessor(maxDimension int) *JPEGProcessor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &JPEGProcessor{maxDimension: maxDimension}
}

func (p *JPEGProcessor) Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error) {
	if upload.Reader == nil {
		return nil, fmt.Errorf("media: empty reader")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDimension <= 0 {
		maxDimension = p.maxDimension
	}

	src, _, err := image.Decode(upload.Reader)
	if err != nil {
		return nil, fmt.Errorf("media: decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("media: empty image")
	}

	resized := false
	if width > maxDimension || height > maxDimension {
		scale := float64(maxDimension) / float64(width)
		if height > width {
			scale = float64(maxDimension) / float64(height)
		}
		dstW := int(float64(width) * scale)
		dstH := int(float64(height) * scale)
		if dstW < 1 {
			dstW = 1
		}
		if dstH < 1 {
			dstH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
		resized = true
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("media: encode jpeg: %w", err)
	}

	return &Result{
		Bytes:       buf.Bytes(),
		ContentType: "image/jpeg",
		Resized:     resized,
	}, nil
}
