package filevalidator

import (
	"encoding/binary"
	"math"
)

// Video containers are probed, not parsed: only the boxes/elements that state
// duration and geometry are visited. When a container does not state a value
// it is reported as absent rather than guessed.

// --- MP4 (ISO base media file format) ---

// walkBoxes calls visit for each box at one level of data. It stops at the
// first box whose declared size does not fit.
func walkBoxes(data []byte, visit func(typ string, payload []byte) bool) {
	for len(data) >= 8 {
		size := uint64(be32(data[0:4]))
		typ := string(data[4:8])
		header := uint64(8)

		switch size {
		case 0:
			// box extends to the end of the enclosing container
			size = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return
			}
			size = binary.BigEndian.Uint64(data[8:16])
			header = 16
		}

		if size < header || size > uint64(len(data)) {
			return
		}
		if !visit(typ, data[header:size]) {
			return
		}
		data = data[size:]
	}
}

// findBox returns the payload of the first box matching path.
func findBox(data []byte, path ...string) ([]byte, bool) {
	if len(path) == 0 {
		return data, true
	}
	var found []byte
	ok := false
	walkBoxes(data, func(typ string, payload []byte) bool {
		if typ != path[0] {
			return true
		}
		found, ok = findBox(payload, path[1:]...)
		return !ok
	})
	return found, ok
}

func mp4Duration(data []byte) (float64, bool) {
	mvhd, ok := findBox(data, "moov", "mvhd")
	if !ok || len(mvhd) < 4 {
		return 0, false
	}

	var timescale uint32
	var duration uint64
	switch mvhd[0] {
	case 0:
		if len(mvhd) < 20 {
			return 0, false
		}
		timescale = be32(mvhd[12:16])
		d := be32(mvhd[16:20])
		if d == math.MaxUint32 {
			return 0, false
		}
		duration = uint64(d)
	case 1:
		if len(mvhd) < 32 {
			return 0, false
		}
		timescale = be32(mvhd[20:24])
		duration = binary.BigEndian.Uint64(mvhd[24:32])
		if duration == math.MaxUint64 {
			return 0, false
		}
	default:
		return 0, false
	}

	if timescale == 0 {
		return 0, false
	}
	return float64(duration) / float64(timescale), true
}

func mp4Dimensions(data []byte) (Dimensions, error) {
	moov, ok := findBox(data, "moov")
	if !ok {
		return Dimensions{}, ErrNoDimensions
	}

	var dims Dimensions
	walkBoxes(moov, func(typ string, payload []byte) bool {
		if typ != "trak" {
			return true
		}
		tkhd, ok := findBox(payload, "tkhd")
		if !ok || len(tkhd) < 4 {
			return true
		}
		// width and height are 16.16 fixed point at the end of the box
		var off int
		switch tkhd[0] {
		case 0:
			off = 76
		case 1:
			off = 88
		default:
			return true
		}
		if len(tkhd) < off+8 {
			return true
		}
		w := be32(tkhd[off:off+4]) >> 16
		h := be32(tkhd[off+4:off+8]) >> 16
		if w == 0 || h == 0 {
			// audio and hint tracks carry zero geometry
			return true
		}
		dims = Dimensions{Width: int(w), Height: int(h)}
		return false
	})

	if dims.Width == 0 {
		return Dimensions{}, ErrNoDimensions
	}
	return dims, nil
}

// --- WebM (Matroska/EBML) ---

const (
	ebmlSegment       = 0x18538067
	ebmlInfo          = 0x1549A966
	ebmlTimecodeScale = 0x2AD7B1
	ebmlDuration      = 0x4489
	ebmlTracks        = 0x1654AE6B
	ebmlTrackEntry    = 0xAE
	ebmlVideo         = 0xE0
	ebmlPixelWidth    = 0xB0
	ebmlPixelHeight   = 0xBA

	defaultTimecodeScale = 1_000_000 // nanoseconds
)

// readVint decodes an EBML variable-length integer. Element IDs keep their
// length marker; data sizes do not. unknown is set for an all-ones size.
func readVint(b []byte, keepMarker bool) (val uint64, n int, unknown bool, ok bool) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0, false, false
	}
	n = 1
	for mask := byte(0x80); b[0]&mask == 0; mask >>= 1 {
		n++
	}
	if n > 8 || len(b) < n {
		return 0, 0, false, false
	}

	first := uint64(b[0])
	if !keepMarker {
		first &= uint64(0xFF >> n)
	}
	val = first
	allOnes := first == uint64(0xFF>>n)
	for i := 1; i < n; i++ {
		val = val<<8 | uint64(b[i])
		if b[i] != 0xFF {
			allOnes = false
		}
	}
	return val, n, !keepMarker && allOnes, true
}

// walkElements calls visit for each element at one level of data. Unknown or
// oversized element sizes are clamped to the remaining bytes.
func walkElements(data []byte, visit func(id uint64, payload []byte) bool) {
	for len(data) > 0 {
		id, idLen, _, ok := readVint(data, true)
		if !ok {
			return
		}
		size, sizeLen, unknown, ok := readVint(data[idLen:], false)
		if !ok {
			return
		}
		start := idLen + sizeLen
		end := len(data)
		if !unknown && size <= uint64(len(data)-start) {
			end = start + int(size)
		}
		if !visit(id, data[start:end]) {
			return
		}
		data = data[end:]
	}
}

func findElement(data []byte, path ...uint64) ([]byte, bool) {
	if len(path) == 0 {
		return data, true
	}
	var found []byte
	ok := false
	walkElements(data, func(id uint64, payload []byte) bool {
		if id != path[0] {
			return true
		}
		found, ok = findElement(payload, path[1:]...)
		return !ok
	})
	return found, ok
}

func ebmlUint(b []byte) (uint64, bool) {
	if len(b) == 0 || len(b) > 8 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, true
}

func ebmlFloat(b []byte) (float64, bool) {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(be32(b))), true
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), true
	default:
		return 0, false
	}
}

func webmDuration(data []byte) (float64, bool) {
	info, ok := findElement(data, ebmlSegment, ebmlInfo)
	if !ok {
		return 0, false
	}

	scale := uint64(defaultTimecodeScale)
	if raw, ok := findElement(info, ebmlTimecodeScale); ok {
		if v, ok := ebmlUint(raw); ok && v > 0 {
			scale = v
		}
	}

	raw, ok := findElement(info, ebmlDuration)
	if !ok {
		return 0, false
	}
	ticks, ok := ebmlFloat(raw)
	if !ok || ticks < 0 || math.IsNaN(ticks) || math.IsInf(ticks, 0) {
		return 0, false
	}
	return ticks * float64(scale) / 1e9, true
}

func webmDimensions(data []byte) (Dimensions, error) {
	tracks, ok := findElement(data, ebmlSegment, ebmlTracks)
	if !ok {
		return Dimensions{}, ErrNoDimensions
	}

	var dims Dimensions
	walkElements(tracks, func(id uint64, entry []byte) bool {
		if id != ebmlTrackEntry {
			return true
		}
		video, ok := findElement(entry, ebmlVideo)
		if !ok {
			return true
		}
		wRaw, okW := findElement(video, ebmlPixelWidth)
		hRaw, okH := findElement(video, ebmlPixelHeight)
		if !okW || !okH {
			return true
		}
		w, okW := ebmlUint(wRaw)
		h, okH := ebmlUint(hRaw)
		if !okW || !okH || w == 0 || h == 0 || w > math.MaxInt32 || h > math.MaxInt32 {
			return true
		}
		dims = Dimensions{Width: int(w), Height: int(h)}
		return false
	})

	if dims.Width == 0 {
		return Dimensions{}, ErrNoDimensions
	}
	return dims, nil
}
