package filevalidator

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// MagicSignature defines a file type signature
type MagicSignature struct {
	Format Format
	Offset int    // Offset from start of file
	Magic  []byte // Magic bytes to match
}

// magicSignatures contains the signatures of every recognized binary format.
// RIFF and ftyp matches are refined by refineDetection.
var magicSignatures = []MagicSignature{
	{Format: FormatPNG, Offset: 0, Magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{Format: FormatJPEG, Offset: 0, Magic: []byte{0xFF, 0xD8, 0xFF}},
	{Format: FormatGIF, Offset: 0, Magic: []byte("GIF8")},
	{Format: FormatWebP, Offset: 0, Magic: []byte("RIFF")}, // WEBP at offset 8
	{Format: FormatBMP, Offset: 0, Magic: []byte("BM")},
	{Format: FormatMP4, Offset: 4, Magic: []byte("ftyp")},
	{Format: FormatWebM, Offset: 0, Magic: []byte{0x1A, 0x45, 0xDF, 0xA3}}, // EBML
	{Format: FormatPDF, Offset: 0, Magic: []byte("%PDF-")},
}

// ftyp brands that belong to still-image containers, never to MP4 video.
var imageBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "mif1": true, "msf1": true, "avif": true, "avis": true,
}

// DIB header sizes: CORE, INFO, V2, V3, V4, V5.
var bmpHeaderSizes = map[uint32]bool{12: true, 40: true, 52: true, 56: true, 108: true, 124: true}

// textSniffLen bounds how much of a file is inspected to classify it as text.
const textSniffLen = 8 * 1024

// DetectFormat identifies the container format of data from its leading bytes.
// The declared MIME type and file name are never consulted. A byte sequence
// shorter than a signature, or matching none, yields FormatUnknown and false.
func DetectFormat(data []byte) (Format, bool) {
	if len(data) == 0 {
		return FormatUnknown, false
	}

	if f := detectByMagic(data); f != FormatUnknown {
		return f, true
	}

	if looksLikeText(data) {
		return FormatCSV, true
	}
	return FormatUnknown, false
}

// detectByMagic checks data against known magic signatures
func detectByMagic(data []byte) Format {
	for _, sig := range magicSignatures {
		if sig.Offset+len(sig.Magic) > len(data) {
			continue
		}

		if bytes.Equal(data[sig.Offset:sig.Offset+len(sig.Magic)], sig.Magic) {
			if f := refineDetection(data, sig.Format); f != FormatUnknown {
				return f
			}
		}
	}
	return FormatUnknown
}

// refineDetection handles cases where a prefix match is not conclusive
func refineDetection(data []byte, initial Format) Format {
	switch initial {
	case FormatWebP:
		// RIFF container - WEBP form type at offset 8
		if len(data) >= 12 && string(data[8:12]) == "WEBP" {
			return FormatWebP
		}
		return FormatUnknown

	case FormatBMP:
		// BITMAPFILEHEADER is followed by a DIB header whose size names its version
		if len(data) < 18 {
			return FormatUnknown
		}
		if !bmpHeaderSizes[le32(data[14:18])] {
			return FormatUnknown
		}
		return FormatBMP

	case FormatMP4:
		if len(data) < 12 {
			return FormatUnknown
		}
		if imageBrands[string(data[8:12])] {
			return FormatUnknown
		}
		return FormatMP4

	default:
		return initial
	}
}

// looksLikeText reports whether data is plausibly delimited text: valid UTF-8
// without NUL bytes in the sniffed window.
func looksLikeText(data []byte) bool {
	window := data
	if len(window) > textSniffLen {
		window = window[:textSniffLen]
		// drop a rune cut in half by the window
		for i := 0; i < utf8.UTFMax-1 && len(window) > 0; i++ {
			if r, _ := utf8.DecodeLastRune(window); r != utf8.RuneError {
				break
			}
			window = window[:len(window)-1]
		}
	}
	if bytes.IndexByte(window, 0) >= 0 {
		return false
	}
	return utf8.Valid(window)
}

// DescribeContent returns a best-effort MIME label for content that did not
// match any recognized signature. It is used only to make error messages
// actionable and never influences a verdict.
func DescribeContent(data []byte) string {
	mt := mimetype.Detect(data).String()
	if idx := strings.Index(mt, ";"); idx > 0 {
		mt = mt[:idx]
	}
	return mt
}
