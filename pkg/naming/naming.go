// Package naming converts human-readable service names into identifiers for
// generated code.
//
// All three conversions are pure, locale-independent and total over any
// input. Words are separated by runs of whitespace (and, for Pascal and
// camel case, underscores); empty words are never produced.
package naming

import (
	"strings"
	"unicode"
)

// ToPascalCase converts "auth service" or "AUTH_SERVICE" to "AuthService".
// Each word keeps its first letter upper-cased and the rest lower-cased.
func ToPascalCase(s string) string {
	var result strings.Builder
	for _, word := range pascalWords(s) {
		writeTitle(&result, word)
	}
	return result.String()
}

// ToCamelCase converts "Auth Service" to "authService". The first word is
// lower-cased entirely.
func ToCamelCase(s string) string {
	words := pascalWords(s)
	if len(words) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(strings.ToLower(words[0]))
	for _, word := range words[1:] {
		writeTitle(&result, word)
	}
	return result.String()
}

// ToSnakeCase converts "Auth Service" to "auth_service". Only whitespace
// separates words; existing underscores are kept.
func ToSnakeCase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}

func pascalWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
}

func writeTitle(b *strings.Builder, word string) {
	runes := []rune(word)
	if len(runes) == 0 {
		return
	}
	b.WriteRune(unicode.ToUpper(runes[0]))
	b.WriteString(strings.ToLower(string(runes[1:])))
}
