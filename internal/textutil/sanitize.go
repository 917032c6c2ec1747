package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes caps sanitized names below common filesystem limits once
// a prefix is added.
const MaxFileNameBytes = 180

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName reduces a client-supplied name to a safe base name.
// Directory components are dropped, unsafe characters replaced, control
// characters removed, and the stem shortened so the result fits
// MaxFileNameBytes while keeping the extension. Empty results become
// "upload".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		name = ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		return "upload"
	}
	if len(name) <= MaxFileNameBytes {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > 16 {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	budget := MaxFileNameBytes - len(ext)
	for len(stem) > budget {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return stem + ext
}

// Truncate returns at most limit runes of s, appending "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
