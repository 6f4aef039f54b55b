package filevalidator

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Header decoders for the still-image formats. Each reads only the fixed
// offsets its container publishes; no pixel data is decoded.

func be16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func be32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// pngDimensions reads the IHDR width and height, the two big-endian uint32
// values following the signature, chunk length and chunk type.
func pngDimensions(data []byte) (Dimensions, error) {
	if len(data) < 24 {
		return Dimensions{}, ErrCorruptHeader
	}
	w, h := be32(data[16:20]), be32(data[20:24])
	if w > 1<<31-1 || h > 1<<31-1 {
		return Dimensions{}, ErrCorruptHeader
	}
	return Dimensions{Width: int(w), Height: int(h)}, nil
}

// jpegDimensions walks JPEG segments from offset 2 until a baseline (SOF0) or
// progressive (SOF2) frame header is found.
func jpegDimensions(data []byte) (Dimensions, error) {
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return Dimensions{}, ErrCorruptHeader
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF:
			// fill byte
			i++
			continue
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// standalone markers carry no length
			i += 2
			continue
		case marker == 0xD9 || marker == 0xDA:
			// end of image or start of scan before any frame header
			return Dimensions{}, ErrCorruptHeader
		}

		length := int(be16(data[i+2 : i+4]))
		if length < 2 {
			return Dimensions{}, ErrCorruptHeader
		}

		if marker == 0xC0 || marker == 0xC2 {
			if i+9 > len(data) {
				return Dimensions{}, ErrCorruptHeader
			}
			h := be16(data[i+5 : i+7])
			w := be16(data[i+7 : i+9])
			return Dimensions{Width: int(w), Height: int(h)}, nil
		}
		if isOtherSOF(marker) {
			return Dimensions{}, ErrNoDimensions
		}

		i += 2 + length
	}
	return Dimensions{}, ErrCorruptHeader
}

// isOtherSOF reports frame markers other than SOF0/SOF2 (extended, lossless,
// hierarchical and arithmetic-coded variants). DHT (C4), JPG (C8) and DAC (CC)
// share the range but are not frame headers.
func isOtherSOF(marker byte) bool {
	if marker < 0xC1 || marker > 0xCF {
		return false
	}
	switch marker {
	case 0xC2, 0xC4, 0xC8, 0xCC:
		return false
	}
	return true
}

// gifDimensions reads the logical screen descriptor.
func gifDimensions(data []byte) (Dimensions, error) {
	if len(data) < 10 {
		return Dimensions{}, ErrCorruptHeader
	}
	return Dimensions{Width: int(le16(data[6:8])), Height: int(le16(data[8:10]))}, nil
}

// webpDimensions decodes the simple lossy "VP8 " sub-chunk only. The 14-bit
// width and height live in the frame header after the start code.
func webpDimensions(data []byte) (Dimensions, error) {
	if len(data) < 16 {
		return Dimensions{}, ErrCorruptHeader
	}
	switch string(data[12:16]) {
	case "VP8 ":
	case "VP8L", "VP8X":
		return Dimensions{}, ErrNoDimensions
	default:
		return Dimensions{}, ErrCorruptHeader
	}
	if len(data) < 30 {
		return Dimensions{}, ErrCorruptHeader
	}
	w := le16(data[26:28]) & 0x3FFF
	h := le16(data[28:30]) & 0x3FFF
	return Dimensions{Width: int(w), Height: int(h)}, nil
}

// bmpDimensions reads the BITMAPINFOHEADER width and the signed height. A
// negative height marks a top-down bitmap; only its magnitude is reported.
func bmpDimensions(data []byte) (Dimensions, error) {
	if len(data) < 26 {
		return Dimensions{}, ErrCorruptHeader
	}
	w := int32(le32(data[18:22]))
	h := int32(le32(data[22:26]))
	if w < 0 || h == math.MinInt32 {
		return Dimensions{}, ErrCorruptHeader
	}
	if h < 0 {
		h = -h
	}
	return Dimensions{Width: int(w), Height: int(h)}, nil
}

var exifIdentifier = []byte("Exif\x00\x00")

// jpegExifSize sums the declared lengths of the APP1 segments carrying the
// EXIF identifier before the first scan. XMP and other APP1 payloads are not
// counted.
func jpegExifSize(data []byte) int {
	total := 0
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xDA || marker == 0xD9 {
			break
		}
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		length := int(be16(data[i+2 : i+4]))
		if length < 2 {
			break
		}
		if marker == 0xE1 && bytes.HasPrefix(data[i+4:], exifIdentifier) {
			total += length
		}
		i += 2 + length
	}
	return total
}
