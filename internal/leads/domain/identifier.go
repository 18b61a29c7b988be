package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Identifiers are the two ways the provider names a person: the public
// profile slug and the provider-internal member id. Either may be empty.
type Identifiers struct {
	Public  string
	Private string
}

// Empty reports whether neither identifier is set.
func (i Identifiers) Empty() bool {
	return i.Public == "" && i.Private == ""
}

// Normalize returns the identifiers in their stored form.
func (i Identifiers) Normalize() Identifiers {
	return Identifiers{
		Public:  NormalizePublicIdentifier(i.Public),
		Private: strings.TrimSpace(i.Private),
	}
}

// NormalizePublicIdentifier is applied on both the read and the write path
// so stored slugs and lookups agree.
func NormalizePublicIdentifier(raw string) string {
	return DecodeJapaneseOnly(strings.TrimSpace(raw))
}

// DecodeJapaneseOnly decodes percent-escapes only where they spell Japanese
// script (Hiragana, Katakana incl. phonetic extensions and half-width forms,
// Han, prolonged sound marks). Every other escape, and any escape that is not
// valid UTF-8, is kept byte for byte. "%E4%BA%8C%2Fabc" becomes "二%2Fabc".
func DecodeJapaneseOnly(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if !isEscapeAt(s, i) {
			b.WriteByte(s[i])
			i++
			continue
		}

		start := i
		raw := make([]byte, 0, 8)
		for i < len(s) && isEscapeAt(s, i) {
			raw = append(raw, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 3
		}
		run := s[start:i]

		for j := 0; j < len(raw); {
			r, size := utf8.DecodeRune(raw[j:])
			if r != utf8.RuneError && isJapanese(r) {
				b.WriteRune(r)
			} else {
				b.WriteString(run[j*3 : (j+size)*3])
			}
			j += size
		}
	}

	return b.String()
}

func isJapanese(r rune) bool {
	switch {
	case unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han):
		return true
	case r == 0x30FC: // ー
		return true
	case r >= 0x31F0 && r <= 0x31FF:
		return true
	case r >= 0xFF65 && r <= 0xFF9F:
		return true
	}
	return false
}

func isEscapeAt(s string, i int) bool {
	return s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
