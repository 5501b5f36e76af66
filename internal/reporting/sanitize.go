package reporting

import (
	"strings"
	"unicode"
)

// MarkdownExt is the extension of generated Markdown reports.
const MarkdownExt = ".md"

// SanitizeName strips whitespace, commas, periods, question marks and exclamation
// marks from an entity name. The result names the entity's report file, so the
// publish and reconcile paths must use this function and nothing else.
//
// Whitespace is exactly what unicode.IsSpace reports: '\t', '\n', '\v', '\f', '\r',
// ' ', U+0085 (NEL), U+00A0 (NBSP) and the Unicode White_Space characters
// (U+1680, U+2000 through U+200A, U+2028, U+2029, U+202F, U+205F, U+3000).
// U+FEFF (BOM) is not whitespace and is kept.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case ',', '.', '?', '!':
			return -1
		}
		return r
	}, name)
}

// FileName is the report file name for an entity with the given extension
// (including the leading dot).
func FileName(name, ext string) string {
	return SanitizeName(name) + ext
}
