// Package strcase converts Go field names to the spellings used in API
// payloads: validation errors name fields the way clients sent them.
package strcase

import (
	"strings"
	"unicode"
)

// words splits a Go identifier at case boundaries, keeping acronyms whole:
// "HTTPServerID" yields [HTTP Server ID].
func words(s string) []string {
	runes := []rune(s)
	var out []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

		lowerToUpper := unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev))
		acronymEnd := unicode.IsUpper(cur) && unicode.IsUpper(prev) && nextLower
		if lowerToUpper || acronymEnd {
			out = append(out, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// ToLowerSnake renders PhoneNumber as phone_number and UserID as user_id.
func ToLowerSnake(s string) string {
	return strings.ToLower(strings.Join(words(s), "_"))
}

// ToLowerCamel renders PhoneNumber as phoneNumber and OTP as otp.
func ToLowerCamel(s string) string {
	ws := words(s)
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(ws[0]))
	for _, w := range ws[1:] {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(strings.ToLower(string(r[1:])))
	}
	return b.String()
}
