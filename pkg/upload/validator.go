package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"
)

var (
	// ErrEmpty is returned for a zero-length upload
	ErrEmpty = errors.New("upload is empty")
	// ErrTooLarge is returned when an upload exceeds the size limit
	ErrTooLarge = errors.New("upload exceeds size limit")
	// ErrUnsupportedFormat is returned when the bytes are not a decodable image
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Info describes an accepted upload
type Info struct {
	Format string
	Width  int
	Height int
	Size   int64
}

// Ext returns the file extension for the image format
func (i Info) Ext() string {
	switch i.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	default:
		return "." + i.Format
	}
}

// ContentType returns the MIME type for the image format
func (i Info) ContentType() string {
	return "image/" + i.Format
}

// Validator checks that uploads are images of an acceptable size
type Validator struct {
	maxBytes int64
}

// NewValidator creates a validator. A non-positive maxBytes disables the size check.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// Validate checks data and reports its format and dimensions
func (v *Validator) Validate(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), v.maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrUnsupportedFormat)
	}

	return &Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   int64(len(data)),
	}, nil
}

// ReadAndValidate reads r, refusing to buffer more than the size limit
func (v *Validator) ReadAndValidate(r io.Reader) ([]byte, *Info, error) {
	if v.maxBytes > 0 {
		r = io.LimitReader(r, v.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}

	info, err := v.Validate(data)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}
