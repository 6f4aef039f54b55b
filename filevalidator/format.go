package filevalidator

import (
	"fmt"
	"strings"
)

// Format is a container format recognized from the leading bytes of a file.
// The set is closed: every value below has an entry in the formats table,
// which carries its own dimension and duration decoders.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatGIF
	FormatWebP
	FormatBMP
	FormatMP4
	FormatWebM
	FormatPDF
	FormatCSV

	formatCount
)

// Kind groups formats by the kind of content they carry.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
	KindDocument
	KindSpreadsheet
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// Dimensions is the intrinsic pixel geometry declared by a container header.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

type formatSpec struct {
	name       string
	mime       string
	kind       Kind
	extensions []string
	dimensions func(data []byte) (Dimensions, error)
	duration   func(data []byte) (float64, bool)
}

var formats = [formatCount]formatSpec{
	FormatUnknown: {name: "unknown", mime: "application/octet-stream"},
	FormatPNG: {
		name:       "png",
		mime:       "image/png",
		kind:       KindImage,
		extensions: []string{".png"},
		dimensions: pngDimensions,
	},
	FormatJPEG: {
		name:       "jpeg",
		mime:       "image/jpeg",
		kind:       KindImage,
		extensions: []string{".jpg", ".jpeg", ".jpe"},
		dimensions: jpegDimensions,
	},
	FormatGIF: {
		name:       "gif",
		mime:       "image/gif",
		kind:       KindImage,
		extensions: []string{".gif"},
		dimensions: gifDimensions,
	},
	FormatWebP: {
		name:       "webp",
		mime:       "image/webp",
		kind:       KindImage,
		extensions: []string{".webp"},
		dimensions: webpDimensions,
	},
	FormatBMP: {
		name:       "bmp",
		mime:       "image/bmp",
		kind:       KindImage,
		extensions: []string{".bmp"},
		dimensions: bmpDimensions,
	},
	FormatMP4: {
		name:       "mp4",
		mime:       "video/mp4",
		kind:       KindVideo,
		extensions: []string{".mp4", ".m4v"},
		dimensions: mp4Dimensions,
		duration:   mp4Duration,
	},
	FormatWebM: {
		name:       "webm",
		mime:       "video/webm",
		kind:       KindVideo,
		extensions: []string{".webm"},
		dimensions: webmDimensions,
		duration:   webmDuration,
	},
	FormatPDF: {
		name:       "pdf",
		mime:       "application/pdf",
		kind:       KindDocument,
		extensions: []string{".pdf"},
	},
	FormatCSV: {
		name:       "csv",
		mime:       "text/csv",
		kind:       KindSpreadsheet,
		extensions: []string{".csv"},
	},
}

func (f Format) spec() formatSpec {
	if f >= formatCount {
		return formats[FormatUnknown]
	}
	return formats[f]
}

// String returns the short lowercase name of the format (e.g. "png").
func (f Format) String() string { return f.spec().name }

// MIME returns the canonical MIME type of the format.
func (f Format) MIME() string { return f.spec().mime }

// Kind returns the content kind of the format.
func (f Format) Kind() Kind { return f.spec().kind }

// Extensions returns the file extensions conventionally used for the format.
func (f Format) Extensions() []string {
	return append([]string(nil), f.spec().extensions...)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	if string(text) == FormatUnknown.String() {
		*f = FormatUnknown
		return nil
	}
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat resolves a format from its name, a MIME type or an extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "jpg":
		return FormatJPEG, nil
	case "":
		return FormatUnknown, fmt.Errorf("empty format name")
	}
	for f := FormatPNG; f < formatCount; f++ {
		spec := formats[f]
		if s == spec.name || s == spec.mime {
			return f, nil
		}
		for _, ext := range spec.extensions {
			if s == ext {
				return f, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("unknown format %q", s)
}

// AllFormats returns every recognized format in declaration order.
func AllFormats() []Format {
	out := make([]Format, 0, formatCount-1)
	for f := FormatPNG; f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}

// DimensionsOf extracts the declared pixel dimensions of data, which must already
// be known to be of format f. It returns ErrNoDimensions when the format variant
// carries dimensions this package does not decode, and ErrCorruptHeader when the
// header is truncated or malformed.
func DimensionsOf(data []byte, f Format) (Dimensions, error) {
	decode := f.spec().dimensions
	if decode == nil {
		return Dimensions{}, ErrNoDimensions
	}
	return decode(data)
}

// DurationOf returns the declared duration in seconds for video formats.
// The second result is false when the container does not state one.
func DurationOf(data []byte, f Format) (float64, bool) {
	decode := f.spec().duration
	if decode == nil {
		return 0, false
	}
	return decode(data)
}
