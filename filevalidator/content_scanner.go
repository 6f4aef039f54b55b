package filevalidator

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
)

// ScanReport collects the findings of a content scan. Errors are always
// security violations; warnings flag anomalies that never block acceptance.
type ScanReport struct {
	Errors   []ValidationError
	Warnings []string
}

// Clean reports whether the scan found no security violations.
func (r ScanReport) Clean() bool {
	return len(r.Errors) == 0
}

func (r *ScanReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Type: ErrorTypeSecurity, Message: fmt.Sprintf(format, args...)})
}

func (r *ScanReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ContentScanner looks for embedded malicious or anomalous content. It is pure:
// the same bytes always produce the same report, with no I/O.
type ContentScanner struct {
	// PrefixWindow is how many leading bytes of a binary file are searched
	// for markup and executable signatures and used for the entropy estimate.
	// Archive signatures in images are searched in the whole file.
	PrefixWindow int

	// EntropyThreshold is the Shannon entropy (bits/byte) above which the
	// prefix window is reported as possibly smuggled compressed data.
	EntropyThreshold float64

	// MaxEXIFSize is the EXIF segment total above which a JPEG is flagged.
	MaxEXIFSize int

	// MaxURLs is the URL count above which a spreadsheet is flagged.
	MaxURLs int

	// LargeRowCount is the data row count above which a spreadsheet is flagged as slow to process.
	LargeRowCount int

	// MinVideoSize is the size below which a video is flagged as suspiciously small.
	MinVideoSize int
}

// DefaultContentScanner creates a scanner with the standard thresholds
func DefaultContentScanner() *ContentScanner {
	return &ContentScanner{
		PrefixWindow:     1024,
		EntropyThreshold: 7.5,
		MaxEXIFSize:      int(100 * KB),
		MaxURLs:          10,
		LargeRowCount:    500,
		MinVideoSize:     int(KB),
	}
}

var (
	// markup and server-side template signatures searched in binary prefixes
	markupPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)vbscript:`),
		regexp.MustCompile(`(?i)<\?php`),
		regexp.MustCompile(`<%[=@\s]`),
	}

	// additional markup searched in video prefixes
	videoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<iframe`),
		regexp.MustCompile(`(?i)eval\s*\(`),
	}

	executableSignatures = []struct {
		name  string
		magic []byte
	}{
		{name: "ELF executable", magic: []byte{0x7F, 'E', 'L', 'F'}},
		{name: "PE executable", magic: []byte{'M', 'Z', 0x90, 0x00}},
	}

	zipLocalHeader = []byte{0x50, 0x4B, 0x03, 0x04}

	formulaInjection   = regexp.MustCompile(`(?m)^[=@+\-]`)
	shellSequences     = regexp.MustCompile(`(?i)cmd\||powershell|system\(|exec\(`)
	urlPattern         = regexp.MustCompile(`(?i)https?://[^\s,]+`)
	spreadsheetScripts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)vbscript:`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
	}
)

// Scan inspects data declared to be of the given kind.
func (s *ContentScanner) Scan(data []byte, kind Kind) ScanReport {
	var report ScanReport

	if kind == KindSpreadsheet {
		s.scanSpreadsheet(data, &report)
		return report
	}

	window := data
	if s.PrefixWindow > 0 && len(window) > s.PrefixWindow {
		window = window[:s.PrefixWindow]
	}

	for _, p := range markupPatterns {
		if p.Match(window) {
			report.fail("embedded markup or script detected (%s)", p.String())
		}
	}
	for _, sig := range executableSignatures {
		if bytes.Contains(window, sig.magic) {
			report.fail("embedded %s header detected", sig.name)
		}
	}

	switch kind {
	case KindImage:
		if bytes.Contains(data, zipLocalHeader) {
			report.fail("embedded ZIP archive signature in image (polyglot file)")
		}
		if bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}) {
			if n := jpegExifSize(data); n > s.MaxEXIFSize {
				report.warn("large EXIF metadata block: %d bytes", n)
			}
		}
	case KindVideo:
		for _, p := range videoPatterns {
			if p.Match(window) {
				report.fail("suspicious content pattern in video (%s)", p.String())
			}
		}
		if len(data) < s.MinVideoSize {
			report.warn("video file is suspiciously small: %d bytes", len(data))
		}
	case KindDocument:
		for _, marker := range pdfActiveContent(data) {
			report.warn("document contains active content marker %s", marker)
		}
	}

	if e := ShannonEntropy(window); e > s.EntropyThreshold {
		report.warn("high entropy detected (%.2f bits/byte): file may carry compressed or encrypted payload", e)
	}

	return report
}

// scanSpreadsheet searches the whole text. Any line starting with a formula
// trigger is rejected, including legitimate negative numbers.
func (s *ContentScanner) scanSpreadsheet(data []byte, report *ScanReport) {
	if formulaInjection.Match(data) || shellSequences.Match(data) {
		report.fail("spreadsheet contains potentially malicious formulas")
	}
	if bytes.Contains(data, []byte("../")) || bytes.Contains(data, []byte(`..\`)) {
		report.fail("spreadsheet contains path traversal patterns")
	}
	for _, p := range spreadsheetScripts {
		if p.Match(data) {
			report.fail("spreadsheet contains script injection patterns")
			break
		}
	}

	if urls := urlPattern.FindAll(data, s.MaxURLs+1); len(urls) > s.MaxURLs {
		report.warn("spreadsheet contains an excessive number of URLs (more than %d)", s.MaxURLs)
	}
	if rows := CountDataRows(data); rows > s.LargeRowCount {
		report.warn("large spreadsheet (%d rows) may take longer to process", rows)
	}
}

// ShannonEntropy returns the entropy of b in bits per byte.
func ShannonEntropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var freq [256]int
	for _, c := range b {
		freq[c]++
	}
	n := float64(len(b))
	var e float64
	for _, f := range freq {
		if f == 0 {
			continue
		}
		p := float64(f) / n
		e -= p * math.Log2(p)
	}
	return e
}

// CountDataRows counts non-blank, non-comment lines after the first such line.
func CountDataRows(data []byte) int {
	rows := -1
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		rows++
	}
	if rows < 0 {
		return 0
	}
	return rows
}
