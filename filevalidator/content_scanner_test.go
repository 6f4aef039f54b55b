package filevalidator

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{name: "empty", data: nil, want: 0},
		{name: "constant", data: bytes.Repeat([]byte{0x41}, 512), want: 0},
		{name: "two symbols", data: []byte("abababab"), want: 1},
		{name: "every byte value four times", data: byteRamp(4), want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShannonEntropy(tt.data); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ShannonEntropy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContentScanner_Scan(t *testing.T) {
	scanner := DefaultContentScanner()

	withSuffix := func(data []byte, suffix string) []byte {
		return append(append([]byte(nil), data...), suffix...)
	}
	padded := func(data []byte, n int) []byte {
		out := append([]byte(nil), data...)
		return append(out, make([]byte, n)...)
	}

	app1 := func(identifier string) []byte {
		payload := make([]byte, 60000)
		copy(payload, identifier)
		return jpegSegment(0xE1, payload)
	}
	jpegWith := func(segments ...[]byte) []byte {
		data := []byte{0xFF, 0xD8}
		for _, seg := range segments {
			data = append(data, seg...)
		}
		return append(data, 0xFF, 0xDA, 0x00, 0x02)
	}
	bigExif := jpegWith(app1("Exif\x00\x00"), app1("Exif\x00\x00"))
	exifAndXMP := jpegWith(app1("Exif\x00\x00"), app1("http://ns.adobe.com/xap/1.0/\x00"))

	tests := []struct {
		name         string
		data         []byte
		kind         Kind
		wantErrors   int
		wantWarnings int
		wantMessage  string
	}{
		{name: "clean PNG", data: pngHeader(100, 50), kind: KindImage},
		{name: "script tag in PNG", data: withSuffix(pngHeader(100, 50), "<script>alert(1)</script>"), kind: KindImage, wantErrors: 1, wantMessage: "markup"},
		{name: "uppercase script tag", data: withSuffix(pngHeader(1, 1), "<SCRIPT src=x>"), kind: KindImage, wantErrors: 1},
		{name: "javascript URI", data: withSuffix(pngHeader(1, 1), "javascript:void(0)"), kind: KindImage, wantErrors: 1},
		{name: "vbscript URI", data: withSuffix(pngHeader(1, 1), "vbscript:msgbox"), kind: KindImage, wantErrors: 1},
		{name: "php tag", data: withSuffix(pngHeader(1, 1), "<?php system($_GET['c']); ?>"), kind: KindImage, wantErrors: 1},
		{name: "server template", data: withSuffix(pngHeader(1, 1), "<%= Runtime %>"), kind: KindImage, wantErrors: 1},
		{name: "script past the prefix window", data: withSuffix(padded(pngHeader(1, 1), 2048), "<script>"), kind: KindImage},
		{name: "ELF header", data: withSuffix(pngHeader(1, 1), "\x7FELF\x02\x01"), kind: KindImage, wantErrors: 1, wantMessage: "ELF"},
		{name: "PE header", data: withSuffix(pngHeader(1, 1), "MZ\x90\x00\x03"), kind: KindImage, wantErrors: 1, wantMessage: "PE"},
		{name: "ZIP inside image", data: withSuffix(pngHeader(1, 1), "PK\x03\x04\x14\x00"), kind: KindImage, wantErrors: 1, wantMessage: "polyglot"},
		{name: "ZIP appended past the prefix window", data: withSuffix(padded(pngHeader(100, 50), 2048), "PK\x03\x04pay"), kind: KindImage, wantErrors: 1, wantMessage: "polyglot"},
		{name: "ZIP inside document is not a polyglot finding", data: withSuffix([]byte(minimalPDF), "PK\x03\x04\x14\x00"), kind: KindDocument},
		{name: "high entropy image", data: withSuffix(pngHeader(1, 1)[:8], string(byteRamp(4))), kind: KindImage, wantWarnings: 1, wantMessage: "entropy"},
		{name: "large EXIF block", data: bigExif, kind: KindImage, wantWarnings: 1, wantMessage: "EXIF"},
		{name: "XMP does not count as EXIF", data: exifAndXMP, kind: KindImage},
		{name: "iframe in video", data: padded(withSuffix(ftyp("isom"), "<iframe src=x>"), 2048), kind: KindVideo, wantErrors: 1},
		{name: "eval in video", data: padded(withSuffix(ftyp("isom"), "eval (x)"), 2048), kind: KindVideo, wantErrors: 1},
		{name: "tiny video", data: mp4File(1000, 1000, 640, 480), kind: KindVideo, wantWarnings: 1, wantMessage: "small"},
		{name: "clean PDF", data: []byte(minimalPDF), kind: KindDocument},
		{name: "PDF with JavaScript action", data: []byte(strings.Replace(minimalPDF, "/Type /Catalog", "/Type /Catalog /OpenAction 3 0 R /JavaScript", 1)), kind: KindDocument, wantWarnings: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := scanner.Scan(tt.data, tt.kind)
			if len(report.Errors) != tt.wantErrors {
				t.Errorf("Scan() errors = %v, want %d", report.Errors, tt.wantErrors)
			}
			if len(report.Warnings) != tt.wantWarnings {
				t.Errorf("Scan() warnings = %v, want %d", report.Warnings, tt.wantWarnings)
			}
			if report.Clean() != (tt.wantErrors == 0) {
				t.Errorf("Clean() = %v with %d errors", report.Clean(), len(report.Errors))
			}
			for _, e := range report.Errors {
				if e.Type != ErrorTypeSecurity {
					t.Errorf("error type = %s, want security", e.Type)
				}
			}
			if tt.wantMessage != "" && !reportMentions(report, tt.wantMessage) {
				t.Errorf("Scan() report %+v does not mention %q", report, tt.wantMessage)
			}
		})
	}
}

func reportMentions(r ScanReport, s string) bool {
	for _, e := range r.Errors {
		if strings.Contains(e.Message, s) {
			return true
		}
	}
	for _, w := range r.Warnings {
		if strings.Contains(w, s) {
			return true
		}
	}
	return false
}

func TestContentScanner_Spreadsheet(t *testing.T) {
	scanner := DefaultContentScanner()

	manyURLs := "site,link\n"
	for i := 0; i < 11; i++ {
		manyURLs += fmt.Sprintf("s%d,https://example.com/%d\n", i, i)
	}
	manyRows := "room,quantity\n" + strings.Repeat("lobby,1\n", 501)

	tests := []struct {
		name         string
		csv          string
		wantErrors   int
		wantWarnings int
	}{
		{name: "clean", csv: "room,quantity\nlobby,2\nkitchen,3\n"},
		{name: "formula", csv: "room,quantity\n=HYPERLINK(\"http://x\"),1\n", wantErrors: 1},
		{name: "at-sign formula", csv: "room,quantity\n@SUM(A1),1\n", wantErrors: 1},
		{name: "plus formula", csv: "room,quantity\n+cmd,1\n", wantErrors: 1},
		{name: "negative number in first column is still rejected", csv: "delta,room\n-5,lobby\n", wantErrors: 1},
		{name: "formula sign mid-line is fine", csv: "room,note\nlobby,a=b\n"},
		{name: "shell pipe", csv: "room,note\nlobby,cmd|' /C calc'!A0\n", wantErrors: 1},
		{name: "powershell", csv: "room,note\nlobby,PowerShell -enc\n", wantErrors: 1},
		{name: "unix traversal", csv: "room,file\nlobby,../../etc/passwd\n", wantErrors: 1},
		{name: "windows traversal", csv: "room,file\nlobby,..\\..\\boot.ini\n", wantErrors: 1},
		{name: "event handler", csv: "room,note\nlobby,<img onerror=alert(1)>\n", wantErrors: 1},
		{name: "script tag", csv: "room,note\nlobby,<script>x</script>\n", wantErrors: 1},
		{name: "ten URLs is fine", csv: strings.Join(strings.SplitAfter(manyURLs, "\n")[:11], "")},
		{name: "eleven URLs", csv: manyURLs, wantWarnings: 1},
		{name: "large file", csv: manyRows, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := scanner.Scan([]byte(tt.csv), KindSpreadsheet)
			if len(report.Errors) != tt.wantErrors {
				t.Errorf("Scan() errors = %v, want %d", report.Errors, tt.wantErrors)
			}
			if len(report.Warnings) != tt.wantWarnings {
				t.Errorf("Scan() warnings = %v, want %d", report.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestContentScanner_Deterministic(t *testing.T) {
	scanner := DefaultContentScanner()
	inputs := []struct {
		data []byte
		kind Kind
	}{
		{data: withScript(pngHeader(10, 10)), kind: KindImage},
		{data: byteRamp(8), kind: KindImage},
		{data: []byte("a,b\n=1,2\n../x,3\n"), kind: KindSpreadsheet},
	}

	for _, in := range inputs {
		first := scanner.Scan(in.data, in.kind)
		for i := 0; i < 3; i++ {
			if again := scanner.Scan(in.data, in.kind); !reflect.DeepEqual(first, again) {
				t.Fatalf("Scan() not deterministic: %+v vs %+v", first, again)
			}
		}
	}
}

func withScript(data []byte) []byte {
	return append(append([]byte(nil), data...), "<script>"...)
}

func TestCountDataRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "empty", in: "", want: 0},
		{name: "header only", in: "a,b\n", want: 0},
		{name: "two rows", in: "a,b\n1,2\n3,4\n", want: 2},
		{name: "comments and blanks skipped", in: "# title\n#\na,b\n\n1,2\n  \n3,4", want: 2},
		{name: "CRLF", in: "a,b\r\n1,2\r\n", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountDataRows([]byte(tt.in)); got != tt.want {
				t.Errorf("CountDataRows() = %d, want %d", got, tt.want)
			}
		})
	}
}
