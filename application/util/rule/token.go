package rule

import "strings"

// tcharSymbols are the tchar bytes other than ALPHA and DIGIT.
const tcharSymbols = "!#$%&'*+-.^_`|~"

// IsTChar reports whether r may appear in a token.
func IsTChar(r rune) bool {
	return IsAlpha(r) || IsDigit(r) || strings.ContainsRune(tcharSymbols, r)
}

// IsValidToken reports whether s is a non-empty token, as used for methods,
// field names and cookie names.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !IsTChar(r) }) < 0
}

// HasCTL reports whether s contains a control byte.
func HasCTL(s string) bool {
	for i := 0; i < len(s); i++ {
		if IsCTL(s[i]) {
			return true
		}
	}
	return false
}

// Unquote strips the double quotes around a quoted-string and removes its
// backslash escapes. Anything not fully quoted is returned as a copy.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4
func Unquote(token []byte) []byte {
	if len(token) < 2 || token[0] != '"' || token[len(token)-1] != '"' {
		return append([]byte(nil), token...)
	}

	inner := token[1 : len(token)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		out = append(out, inner[i])
	}
	return out
}
