package filevalidator

import (
	"bytes"
	"strings"
)

// PDF structure checks. This is TYPE validation, not malware scanning: the
// header and trailer are checked and a few active-content markers reported.

const pdfTrailerWindow = 1024

// pdfStructure verifies the %PDF- header and an %%EOF marker in the last KiB.
// A missing trailer means the upload was truncated.
func pdfStructure(data []byte) error {
	if len(data) < 8 || !strings.HasPrefix(string(data[:8]), "%PDF-") {
		return ErrCorruptHeader
	}

	tail := data
	if len(tail) > pdfTrailerWindow {
		tail = tail[len(tail)-pdfTrailerWindow:]
	}
	if !bytes.Contains(tail, []byte("%%EOF")) {
		return ErrCorruptHeader
	}
	return nil
}

var pdfActiveMarkers = []string{"/JavaScript", "/JS", "/Launch", "/EmbeddedFile", "/OpenAction"}

// pdfActiveContent lists the active-content name objects present in data.
func pdfActiveContent(data []byte) []string {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil
	}
	var found []string
	for _, marker := range pdfActiveMarkers {
		if containsName(data, marker) {
			found = append(found, marker)
		}
	}
	return found
}

// containsName matches a PDF name object, so "/JS" does not match "/JSON".
func containsName(data []byte, name string) bool {
	needle := []byte(name)
	for off := 0; ; {
		i := bytes.Index(data[off:], needle)
		if i < 0 {
			return false
		}
		end := off + i + len(needle)
		if end == len(data) || !isPDFRegular(data[end]) {
			return true
		}
		off = end
	}
}

func isPDFRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '/', '(', ')', '<', '>', '[', ']', '{', '}', '%':
		return false
	}
	return true
}
