// Package status names HTTP status codes and classifies them.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15
package status

const (
	Continue           uint = 100
	SwitchingProtocols uint = 101

	OK             uint = 200
	Created        uint = 201
	Accepted       uint = 202
	NoContent      uint = 204
	PartialContent uint = 206

	MultipleChoices   uint = 300
	MovedPermanently  uint = 301
	Found             uint = 302
	SeeOther          uint = 303
	NotModified       uint = 304
	UseProxy          uint = 305
	TemporaryRedirect uint = 307
	PermanentRedirect uint = 308

	BadRequest       uint = 400
	Unauthorized     uint = 401
	Forbidden        uint = 403
	NotFound         uint = 404
	MethodNotAllowed uint = 405
	RequestTimeout   uint = 408
	Gone             uint = 410
	TooManyRequests  uint = 429

	InternalServerError uint = 500
	NotImplemented      uint = 501
	BadGateway          uint = 502
	ServiceUnavailable  uint = 503
	GatewayTimeout      uint = 504
)

var reasons = map[uint]string{
	Continue:           "Continue",
	SwitchingProtocols: "Switching Protocols",

	OK:             "OK",
	Created:        "Created",
	Accepted:       "Accepted",
	NoContent:      "No Content",
	PartialContent: "Partial Content",

	MultipleChoices:   "Multiple Choices",
	MovedPermanently:  "Moved Permanently",
	Found:             "Found",
	SeeOther:          "See Other",
	NotModified:       "Not Modified",
	UseProxy:          "Use Proxy",
	TemporaryRedirect: "Temporary Redirect",
	PermanentRedirect: "Permanent Redirect",

	BadRequest:       "Bad Request",
	Unauthorized:     "Unauthorized",
	Forbidden:        "Forbidden",
	NotFound:         "Not Found",
	MethodNotAllowed: "Method Not Allowed",
	RequestTimeout:   "Request Timeout",
	Gone:             "Gone",
	TooManyRequests:  "Too Many Requests",

	InternalServerError: "Internal Server Error",
	NotImplemented:      "Not Implemented",
	BadGateway:          "Bad Gateway",
	ServiceUnavailable:  "Service Unavailable",
	GatewayTimeout:      "Gateway Timeout",
}

// Text returns the usual reason phrase of code, or "" for codes not listed.
func Text(code uint) string { return reasons[code] }

func IsInformational(code uint) bool { return 100 <= code && code < 200 }
func IsSuccessful(code uint) bool    { return 200 <= code && code < 300 }
func IsRedirection(code uint) bool   { return 300 <= code && code < 400 }
func IsClientError(code uint) bool   { return 400 <= code && code < 500 }
func IsServerError(code uint) bool   { return 500 <= code && code < 600 }

// KeepsMethod reports whether a redirect with code must be repeated with
// the same method and content.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4.8
func KeepsMethod(code uint) bool {
	return code == TemporaryRedirect || code == PermanentRedirect
}

// HasNoContent reports whether a response with code never carries content.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.1
func HasNoContent(code uint) bool {
	return IsInformational(code) || code == NoContent || code == NotModified
}
