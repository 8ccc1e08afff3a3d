package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidImage = errors.New("invalid image")
	ErrUnsupported  = errors.New("unsupported image type")
)

// AvatarOptions bounds what an avatar upload may be and how it is stored.
type AvatarOptions struct {
	MaxBytes int64
	// MaxPixels rejects images whose header declares more pixels, before decoding.
	MaxPixels   int
	MaxDim      int
	JPEGQuality int
	// Transparent sources are flattened onto Background.
	Background color.RGBA
}

// DefaultAvatarOptions accepts up to 5 MiB and stores at most 500px on the long edge.
func DefaultAvatarOptions() AvatarOptions {
	return AvatarOptions{
		MaxBytes:    5 * 1024 * 1024,
		MaxPixels:   40_000_000,
		MaxDim:      500,
		JPEGQuality: 85,
		Background:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

type imageFormat struct {
	matches      func(header []byte) bool
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

// Only formats listed here are accepted, whatever the client claims the file is.
var avatarFormats = []imageFormat{
	{
		matches:      func(h []byte) bool { return bytes.HasPrefix(h, []byte{0xFF, 0xD8, 0xFF}) },
		decode:       jpeg.Decode,
		decodeConfig: jpeg.DecodeConfig,
	},
	{
		matches:      func(h []byte) bool { return bytes.HasPrefix(h, []byte("\x89PNG\r\n\x1a\n")) },
		decode:       png.Decode,
		decodeConfig: png.DecodeConfig,
	},
	{
		matches:      func(h []byte) bool { return bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP")) },
		decode:       webp.Decode,
		decodeConfig: webp.DecodeConfig,
	},
}

func sniffFormat(header []byte) (*imageFormat, error) {
	if len(header) < 12 {
		return nil, ErrInvalidImage
	}
	for i := range avatarFormats {
		if avatarFormats[i].matches(header) {
			return &avatarFormats[i], nil
		}
	}
	return nil, ErrUnsupported
}

// ProcessedImage is a re-encoded image ready for the media store.
type ProcessedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

func (p *ProcessedImage) Size() int64 { return int64(len(p.Data)) }

// ProcessAvatarImage validates an upload by its magic bytes, shrinks it to
// fit within MaxDim (never enlarging) and re-encodes it as an opaque JPEG.
func ProcessAvatarImage(r io.Reader, opts AvatarOptions) (*ProcessedImage, error) {
	def := DefaultAvatarOptions()
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	if opts.MaxDim <= 0 {
		opts.MaxDim = def.MaxDim
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, ErrTooLarge
	}

	format, err := sniffFormat(data)
	if err != nil {
		return nil, err
	}

	cfg, err := format.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	if cfg.Width*cfg.Height > opts.MaxPixels {
		return nil, ErrTooLarge
	}

	src, err := format.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return &ProcessedImage{Data: out.Bytes(), ContentType: "image/jpeg", Width: w, Height: h}, nil
}

// fitWithin scales w x h down so the long edge is at most limit, keeping the aspect ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
