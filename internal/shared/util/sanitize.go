package util

import (
	"strings"
	"unicode"
)

// CleanFileName reduces a client-supplied file name to its last path element
// and strips control characters. Browsers on Windows may send full paths.
func CleanFileName(name string) string {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if s == "." || s == ".." {
		return ""
	}
	return strings.TrimSpace(s)
}
