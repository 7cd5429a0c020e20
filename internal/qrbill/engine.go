package qrbill

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable is returned by Unavailable.
	ErrEngineUnavailable = errors.New("QR bill engine not available")
	// ErrInvalidBill is wrapped by engines rejecting a bill they cannot encode.
	ErrInvalidBill = errors.New("bill is not valid")
)

// Renderer draws a validated bill.
type Renderer interface {
	Render(ctx context.Context, bill Bill, format Format) ([]byte, error)
}

// Decoder locates QR symbols in an image or PDF and returns their texts.
type Decoder interface {
	Decode(ctx context.Context, image []byte, contentType string) ([]string, error)
}

// Unavailable is the engine used when none is configured.
type Unavailable struct{}

func (Unavailable) Render(context.Context, Bill, Format) ([]byte, error) {
	return nil, ErrEngineUnavailable
}

func (Unavailable) Decode(context.Context, []byte, string) ([]string, error) {
	return nil, ErrEngineUnavailable
}

// Scannable content types.
var scanTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"application/pdf": true,
}

// Scannable reports whether a Decoder accepts contentType.
func Scannable(contentType string) bool {
	return scanTypes[contentType]
}
