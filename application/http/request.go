package http

import (
	"strconv"

	"http-conversation/application/util/rule"
	"http-conversation/application/util/uri"

	"github.com/pkg/errors"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/101.0.4951.54 Safari/537.36"
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif," +
		"image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9"
	DefaultAcceptLanguage = "en-GB,en;q=0.9"
	DefaultAcceptEncoding = "gzip, deflate, br"
)

// extendedHeaders are the client hint and fetch metadata headers a browser
// sends on a top-level navigation.
var extendedHeaders = Headers{
	{"sec-ch-ua", `" Not A;Brand";v="99", "Chromium";v="101", "Google Chrome";v="101"`},
	{"sec-ch-ua-mobile", "?0"},
	{"sec-ch-ua-platform", `"Windows"`},
	{"sec-fetch-dest", "document"},
	{"sec-fetch-mode", "navigate"},
	{"sec-fetch-site", "none"},
	{"sec-fetch-user", "?1"},
}

type RequestOptions struct {
	// Referer is sent when not empty.
	Referer string

	// Cookie is the cookie header value for the target, sent when not empty.
	Cookie string

	// Headers are appended last. A field replaces a generated field of the same name.
	Headers Headers

	// ExtendedHeaders adds the sec-ch-ua and sec-fetch headers.
	ExtendedHeaders bool

	// AcceptEncoding is sent when not empty.
	AcceptEncoding string

	// KeepAlive selects "Connection: keep-alive" over "Connection: close".
	KeepAlive bool

	UserAgent string
}

var DefaultRequestOptions = RequestOptions{
	AcceptEncoding: DefaultAcceptEncoding,
	KeepAlive:      true,
	UserAgent:      DefaultUserAgent,
}

var ErrInvalidMethod = errors.New("invalid method")

// NewRequest builds a request for target.
// The field order is fixed so the same input always gives the same bytes.
func NewRequest(method string, target uri.URL, body []byte, opts RequestOptions) (Request, error) {
	if !rule.IsValidToken(method) {
		return Request{}, errors.Wrapf(ErrInvalidMethod, "%q", method)
	}

	connection := "close"
	if opts.KeepAlive {
		connection = "keep-alive"
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	headers := Headers{
		{"Host", target.Host()},
		{"Connection", connection},
		{"Pragma", "no-cache"},
		{"Cache-Control", "no-cache"},
		{"Upgrade-Insecure-Requests", "1"},
		{"User-Agent", userAgent},
		{"Accept", DefaultAccept},
	}
	if opts.AcceptEncoding != "" {
		headers.Add("Accept-Encoding", opts.AcceptEncoding)
	}
	headers.Add("Accept-Language", DefaultAcceptLanguage)

	if opts.Referer != "" {
		headers.Add("Referer", opts.Referer)
	}
	if opts.Cookie != "" {
		headers.Add("Cookie", opts.Cookie)
	}
	if len(body) > 0 || method == MethodPost {
		headers.Add("Content-Length", strconv.Itoa(len(body)))
	}
	if opts.ExtendedHeaders {
		headers = append(headers, extendedHeaders...)
	}

	for _, f := range opts.Headers {
		headers.Del(f.Name)
	}
	headers = append(headers, opts.Headers...)

	return Request{
		RequestLine: RequestLine{
			Method:  method,
			Target:  target.RequestTarget(),
			Version: Version11,
		},
		URL:     target,
		Headers: headers,
		Body:    body,
	}, nil
}
