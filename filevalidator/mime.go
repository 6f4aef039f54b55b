package filevalidator

import (
	"mime"
	"path/filepath"
	"strings"
)

// Extensions that are never accepted in a file name, regardless of content.
var blockedExtensions = map[string]bool{
	// executables and scripts
	".exe": true, ".dll": true, ".com": true, ".bat": true, ".cmd": true, ".msi": true,
	".scr": true, ".pif": true, ".cpl": true, ".sh": true, ".bash": true, ".ps1": true,
	".vbs": true, ".vbe": true, ".js": true, ".jse": true, ".wsf": true, ".hta": true,
	".jar": true, ".php": true, ".phtml": true, ".asp": true, ".aspx": true, ".jsp": true,
	// macro-enabled office documents
	".docm": true, ".dotm": true, ".xlsm": true, ".xltm": true, ".xlam": true,
	".pptm": true, ".potm": true, ".ppam": true, ".sldm": true,
}

// IsBlockedExtension reports whether ext (with leading dot) names an
// executable or macro-enabled document type.
func IsBlockedExtension(ext string) bool {
	return blockedExtensions[strings.ToLower(ext)]
}

// FormatForExtension returns the format conventionally stored under ext.
func FormatForExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext == "" {
		return FormatUnknown, false
	}
	for _, f := range AllFormats() {
		for _, e := range formats[f].extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return FormatUnknown, false
}

// MIMEForName guesses a content type from a file name, for callers that have
// no client-declared type. The result is advisory like any declared MIME.
func MIMEForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := FormatForExtension(ext); ok {
		return f.MIME()
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return normalizeMIME(t)
	}
	return ""
}

// normalizeMIME lowercases a content type and strips its parameters.
func normalizeMIME(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if idx := strings.Index(s, ";"); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}

// mimeAliases maps non-canonical types clients commonly send.
var mimeAliases = map[string]Format{
	"image/jpg":                   FormatJPEG,
	"image/pjpeg":                 FormatJPEG,
	"image/x-png":                 FormatPNG,
	"image/x-ms-bmp":              FormatBMP,
	"image/x-bmp":                 FormatBMP,
	"application/csv":             FormatCSV,
	"text/comma-separated-values": FormatCSV,
	"application/vnd.ms-excel":    FormatCSV,
	"application/x-pdf":           FormatPDF,
}

// declaredFormat resolves a client-declared MIME to a format, if it names one.
func declaredFormat(declared string) (Format, bool) {
	declared = normalizeMIME(declared)
	if declared == "" {
		return FormatUnknown, false
	}
	if f, ok := mimeAliases[declared]; ok {
		return f, true
	}
	for _, f := range AllFormats() {
		if f.MIME() == declared {
			return f, true
		}
	}
	return FormatUnknown, false
}
