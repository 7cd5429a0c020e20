package qrbill

import (
	"fmt"
	"strconv"
	"strings"
)

// OutputSize selects what part of the bill is drawn.
type OutputSize string

const (
	SizeA4Sheet      OutputSize = "A4_PORTRAIT_SHEET"
	SizeBillOnly     OutputSize = "QR_BILL_ONLY"
	SizeBillWithLine OutputSize = "QR_BILL_WITH_HORIZONTAL_LINE"
	SizeQRCodeOnly   OutputSize = "QR_CODE_ONLY"
)

// Resolution bounds in dpi; the upper bound is exclusive.
const (
	DefaultResolution = 150
	minResolution     = 144
	maxResolution     = 600
)

// dimensions returns the default width and height in millimetres.
func (s OutputSize) dimensions() (float64, float64) {
	switch s {
	case SizeA4Sheet:
		return 210, 297
	case SizeBillWithLine:
		return 210, 110
	case SizeQRCodeOnly:
		return 46, 46
	default:
		return 210, 105
	}
}

// GraphicsFormat is the file format of a rendered bill.
type GraphicsFormat string

const (
	FormatPNG GraphicsFormat = "PNG"
	FormatPDF GraphicsFormat = "PDF"
	FormatSVG GraphicsFormat = "SVG"
)

// ContentType returns the MIME type of f.
func (f GraphicsFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Language of the bill labels.
type Language string

const (
	LanguageDE Language = "DE"
	LanguageFR Language = "FR"
	LanguageIT Language = "IT"
	LanguageEN Language = "EN"
)

// Format holds the output options of one rendering.
type Format struct {
	Size       OutputSize
	Graphics   GraphicsFormat
	Language   Language
	Width      float64 // mm
	Height     float64 // mm
	Resolution int     // dpi
}

// FormatOptions are the raw request parameters; empty values select defaults.
type FormatOptions struct {
	Size       string
	Graphics   string
	Language   string
	Width      string
	Height     string
	Resolution string
}

// ParseFormat validates raw options and fills in defaults.
func ParseFormat(o FormatOptions) (Format, error) {
	var f Format

	switch size := OutputSize(upperOr(o.Size, string(SizeBillOnly))); size {
	case SizeA4Sheet, SizeBillOnly, SizeBillWithLine, SizeQRCodeOnly:
		f.Size = size
	default:
		return f, fmt.Errorf("illegal value for parameter 'type', possible values are %s, %s, %s or %s",
			SizeA4Sheet, SizeBillOnly, SizeBillWithLine, SizeQRCodeOnly)
	}

	switch g := GraphicsFormat(upperOr(o.Graphics, string(FormatPNG))); g {
	case FormatPNG, FormatPDF, FormatSVG:
		f.Graphics = g
	default:
		return f, fmt.Errorf("illegal value for parameter 'format', possible values are PNG, PDF or SVG")
	}

	switch l := Language(upperOr(o.Language, string(LanguageEN))); l {
	case LanguageDE, LanguageFR, LanguageIT, LanguageEN:
		f.Language = l
	default:
		return f, fmt.Errorf("illegal value for parameter 'language', possible values are DE, FR, IT or EN")
	}

	f.Width, f.Height = f.Size.dimensions()
	var err error
	if o.Width != "" {
		if f.Width, err = strconv.ParseFloat(o.Width, 64); err != nil {
			return f, fmt.Errorf("illegal value for parameter 'width': %w", err)
		}
	}
	if o.Height != "" {
		if f.Height, err = strconv.ParseFloat(o.Height, 64); err != nil {
			return f, fmt.Errorf("illegal value for parameter 'height': %w", err)
		}
	}
	if f.Width <= 0 || f.Height <= 0 {
		return f, fmt.Errorf("width and height must be greater than zero")
	}

	f.Resolution = DefaultResolution
	if o.Resolution != "" {
		if f.Resolution, err = strconv.Atoi(o.Resolution); err != nil {
			return f, fmt.Errorf("illegal value for parameter 'resolution': %w", err)
		}
	}
	if f.Resolution < minResolution || f.Resolution >= maxResolution {
		return f, fmt.Errorf("resolution must be between %d and %d dpi", minResolution, maxResolution)
	}

	return f, nil
}

func upperOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return strings.ToUpper(v)
}
