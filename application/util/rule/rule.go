// Package rule holds the character classes shared by the URL, cookie and
// message parsers.
package rule

const (
	CR   byte = '\r'
	LF   byte = '\n'
	SP   byte = ' '
	HTAB byte = '\t'
	VT   byte = 0x0B
	FF   byte = 0x0C
)

var (
	// OWS is optional whitespace.
	OWS  = []byte{SP, HTAB}
	CRLF = []byte{CR, LF}

	// HeaderTerminator separates the header block from the body.
	HeaderTerminator = []byte("\r\n\r\n")
)

// IsWhitespace reports whether r is SP, HTAB, VT, FF or CR.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
func IsWhitespace(r rune) bool {
	switch r {
	case rune(SP), rune(HTAB), rune(VT), rune(FF), rune(CR):
		return true
	}
	return false
}

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }

func IsHex(r rune) bool {
	return IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// IsWordChar reports whether r is matched by the regexp class \w.
func IsWordChar(r rune) bool { return IsAlpha(r) || IsDigit(r) || r == '_' }

// IsCTL reports whether c is a control byte.
func IsCTL(c byte) bool { return c < ' ' || c == 0x7f }
