package filevalidator

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Hand-built container headers. Only the bytes the decoders read are
// meaningful; CRCs and pixel data are left zero.

func pngHeader(w, h uint32) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	binary.Write(&b, binary.BigEndian, uint32(13))
	b.WriteString("IHDR")
	binary.Write(&b, binary.BigEndian, w)
	binary.Write(&b, binary.BigEndian, h)
	b.Write([]byte{8, 2, 0, 0, 0}) // bit depth, color type, compression, filter, interlace
	b.Write([]byte{0, 0, 0, 0})    // CRC
	b.Write([]byte{0, 0, 0, 0})
	b.WriteString("IEND")
	b.Write([]byte{0xAE, 0x42, 0x60, 0x82})
	return b.Bytes()
}

func jpegSegment(marker byte, payload []byte) []byte {
	seg := []byte{0xFF, marker, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// jpegHeader builds SOI, a JFIF APP0 segment and a frame header with the given marker.
func jpegHeader(sof byte, w, h uint16) []byte {
	b := []byte{0xFF, 0xD8}
	b = append(b, jpegSegment(0xE0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"))...)
	frame := []byte{8, 0, 0, 0, 0, 1, 1, 0x11, 0}
	binary.BigEndian.PutUint16(frame[1:3], h)
	binary.BigEndian.PutUint16(frame[3:5], w)
	b = append(b, jpegSegment(sof, frame)...)
	b = append(b, 0xFF, 0xD9)
	return b
}

func gifHeader(w, h uint16) []byte {
	b := []byte("GIF89a")
	b = binary.LittleEndian.AppendUint16(b, w)
	b = binary.LittleEndian.AppendUint16(b, h)
	return append(b, 0x00, 0x00, 0x00, 0x3B)
}

func webpHeader(chunk string, w, h uint16) []byte {
	b := []byte("RIFF")
	b = binary.LittleEndian.AppendUint32(b, 22)
	b = append(b, "WEBP"...)
	b = append(b, chunk...)
	b = binary.LittleEndian.AppendUint32(b, 10)
	b = append(b, 0x30, 0x01, 0x00) // frame tag
	b = append(b, 0x9D, 0x01, 0x2A) // start code
	b = binary.LittleEndian.AppendUint16(b, w)
	b = binary.LittleEndian.AppendUint16(b, h)
	return b
}

func bmpHeader(w, h int32) []byte {
	b := make([]byte, 54)
	copy(b, "BM")
	binary.LittleEndian.PutUint32(b[2:], 54)
	binary.LittleEndian.PutUint32(b[10:], 54)
	binary.LittleEndian.PutUint32(b[14:], 40)
	binary.LittleEndian.PutUint32(b[18:], uint32(w))
	binary.LittleEndian.PutUint32(b[22:], uint32(h))
	binary.LittleEndian.PutUint16(b[26:], 1)
	binary.LittleEndian.PutUint16(b[28:], 24)
	return b
}

// --- ISO BMFF ---

func box(typ string, payloads ...[]byte) []byte {
	var payload []byte
	for _, p := range payloads {
		payload = append(payload, p...)
	}
	b := binary.BigEndian.AppendUint32(nil, uint32(8+len(payload)))
	b = append(b, typ...)
	return append(b, payload...)
}

func ftyp(brand string) []byte {
	return box("ftyp", []byte(brand), []byte{0, 0, 0, 0}, []byte("isomiso2"))
}

func mvhdV0(timescale, duration uint32) []byte {
	p := make([]byte, 100)
	binary.BigEndian.PutUint32(p[12:], timescale)
	binary.BigEndian.PutUint32(p[16:], duration)
	return box("mvhd", p)
}

func mvhdV1(timescale uint32, duration uint64) []byte {
	p := make([]byte, 112)
	p[0] = 1
	binary.BigEndian.PutUint32(p[20:], timescale)
	binary.BigEndian.PutUint64(p[24:], duration)
	return box("mvhd", p)
}

func tkhdV0(w, h uint32) []byte {
	p := make([]byte, 84)
	binary.BigEndian.PutUint32(p[76:], w<<16)
	binary.BigEndian.PutUint32(p[80:], h<<16)
	return box("tkhd", p)
}

func mp4File(timescale, duration, w, h uint32) []byte {
	moov := box("moov",
		mvhdV0(timescale, duration),
		box("trak", tkhdV0(0, 0)), // audio track first
		box("trak", tkhdV0(w, h)),
	)
	return append(ftyp("isom"), moov...)
}

// --- EBML ---

func ebml(id []byte, payloads ...[]byte) []byte {
	var payload []byte
	for _, p := range payloads {
		payload = append(payload, p...)
	}
	b := append([]byte(nil), id...)
	// 8-byte size vint
	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, uint64(len(payload)))
	size[0] = 0x01
	b = append(b, size...)
	return append(b, payload...)
}

func ebmlUnknownSize(id []byte, payloads ...[]byte) []byte {
	b := append([]byte(nil), id...)
	b = append(b, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	for _, p := range payloads {
		b = append(b, p...)
	}
	return b
}

var (
	idEBML          = []byte{0x1A, 0x45, 0xDF, 0xA3}
	idDocType       = []byte{0x42, 0x82}
	idSegment       = []byte{0x18, 0x53, 0x80, 0x67}
	idInfo          = []byte{0x15, 0x49, 0xA9, 0x66}
	idTimecodeScale = []byte{0x2A, 0xD7, 0xB1}
	idDuration      = []byte{0x44, 0x89}
	idTracks        = []byte{0x16, 0x54, 0xAE, 0x6B}
	idTrackEntry    = []byte{0xAE}
	idVideo         = []byte{0xE0}
	idPixelWidth    = []byte{0xB0}
	idPixelHeight   = []byte{0xBA}
)

func float64Bytes(f float64) []byte {
	return binary.BigEndian.AppendUint64(nil, math.Float64bits(f))
}

func webmFile(scale uint32, ticks float64, w, h uint16) []byte {
	info := ebml(idInfo,
		ebml(idTimecodeScale, binary.BigEndian.AppendUint32(nil, scale)),
		ebml(idDuration, float64Bytes(ticks)),
	)
	tracks := ebml(idTracks,
		ebml(idTrackEntry,
			ebml(idVideo,
				ebml(idPixelWidth, binary.BigEndian.AppendUint16(nil, w)),
				ebml(idPixelHeight, binary.BigEndian.AppendUint16(nil, h)),
			),
		),
	)
	head := ebml(idEBML, ebml(idDocType, []byte("webm")))
	return append(head, ebmlUnknownSize(idSegment, info, tracks)...)
}

// --- PDF ---

const minimalPDF = "%PDF-1.4\n1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
	"2 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n" +
	"trailer << /Root 1 0 R >>\n%%EOF\n"

// byteRamp returns every byte value n times in order.
func byteRamp(n int) []byte {
	b := make([]byte, 0, 256*n)
	for i := 0; i < n; i++ {
		for c := 0; c < 256; c++ {
			b = append(b, byte(c))
		}
	}
	return b
}
