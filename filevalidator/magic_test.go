package filevalidator

import (
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   Format
		wantOK bool
	}{
		{name: "PNG", data: pngHeader(10, 10), want: FormatPNG, wantOK: true},
		{name: "JPEG", data: jpegHeader(0xC0, 10, 10), want: FormatJPEG, wantOK: true},
		{name: "GIF", data: gifHeader(10, 10), want: FormatGIF, wantOK: true},
		{name: "WebP", data: webpHeader("VP8 ", 10, 10), want: FormatWebP, wantOK: true},
		{name: "BMP", data: bmpHeader(10, 10), want: FormatBMP, wantOK: true},
		{name: "MP4", data: mp4File(1000, 1000, 640, 480), want: FormatMP4, wantOK: true},
		{name: "WebM", data: webmFile(1_000_000, 1000, 640, 480), want: FormatWebM, wantOK: true},
		{name: "PDF", data: []byte(minimalPDF), want: FormatPDF, wantOK: true},
		{name: "CSV", data: []byte("name,quantity\nblind,2\n"), want: FormatCSV, wantOK: true},
		{name: "UTF-8 text", data: []byte("room,notes\nlobby,café\n"), want: FormatCSV, wantOK: true},
		{name: "empty", data: nil, want: FormatUnknown},
		{name: "truncated PNG signature", data: []byte{0x89, 0x50, 0x4E}, want: FormatUnknown},
		{name: "RIFF without WEBP", data: append([]byte("RIFF\x00\x00\x00\x00AVI "), 0x00), want: FormatUnknown},
		{name: "HEIC brand is not MP4", data: ftyp("heic"), want: FormatUnknown},
		{name: "ftyp too short", data: []byte{0, 0, 0, 8, 'f', 't', 'y', 'p'}, want: FormatUnknown},
		{name: "BM without DIB header", data: []byte{'B', 'M', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 7, 0, 0, 0}, want: FormatUnknown},
		{name: "binary noise", data: []byte{0x00, 0x01, 0x02, 0x03, 0xFE}, want: FormatUnknown},
		{name: "invalid UTF-8", data: []byte{'a', ',', 0xC3, 0x28, '\n'}, want: FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormat(tt.data)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("DetectFormat() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDetectFormat_IgnoresDeclaredType(t *testing.T) {
	// a PNG named like a JPEG is still a PNG
	got, _ := DetectFormat(pngHeader(1, 1))
	if got != FormatPNG {
		t.Errorf("DetectFormat() = %v, want png", got)
	}
}

func TestLooksLikeText_CutRuneAtWindow(t *testing.T) {
	// "é" is two bytes; place it across the sniff boundary
	data := []byte(strings.Repeat("a", textSniffLen-1) + "é" + "tail")
	if !looksLikeText(data) {
		t.Error("looksLikeText() = false for valid UTF-8 cut by the sniff window")
	}
}

func TestDescribeContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "html", data: []byte("<!DOCTYPE html><html><body>x</body></html>"), want: "text/html"},
		{name: "zip", data: []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), want: "application/zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeContent(tt.data); got != tt.want {
				t.Errorf("DescribeContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "png", want: FormatPNG},
		{in: "JPG", want: FormatJPEG},
		{in: "jpeg", want: FormatJPEG},
		{in: "image/webp", want: FormatWebP},
		{in: ".webm", want: FormatWebM},
		{in: " csv ", want: FormatCSV},
		{in: "application/pdf", want: FormatPDF},
		{in: "tiff", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat_TableIsComplete(t *testing.T) {
	for _, f := range AllFormats() {
		if f.String() == "" || f.String() == "unknown" {
			t.Errorf("format %d has no name", f)
		}
		if f.MIME() == "" {
			t.Errorf("format %s has no MIME type", f)
		}
		if f.Kind() == KindUnknown {
			t.Errorf("format %s has no kind", f)
		}
		if len(f.Extensions()) == 0 {
			t.Errorf("format %s has no extensions", f)
		}
		text, _ := f.MarshalText()
		var back Format
		if err := back.UnmarshalText(text); err != nil || back != f {
			t.Errorf("text round trip of %s = %v, %v", f, back, err)
		}
	}
	if Format(200).String() != "unknown" {
		t.Error("out of range format should report unknown")
	}
}
