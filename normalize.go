package brandsite

import (
	"bytes"
	"regexp"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rxCodeFence matches a document wrapped in ``` fences, optionally tagged
// (```json).
var rxCodeFence = regexp.MustCompile("(?s)```[A-Za-z]*\\r?\\n(.*?)```")

// unfence returns the body of the first code fence in s, or s itself.
func unfence(s string) string {
	m := rxCodeFence.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return strings.TrimSpace(m[1])
}

// normalizeContent strips a UTF-8 BOM and an enclosing code fence.
func normalizeContent(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed
	}
	return []byte(unfence(string(trimmed)))
}

// normalizeHeader lowercases and trims a table header cell.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, string(utf8BOM))
	return strings.ToLower(strings.TrimSpace(h))
}
