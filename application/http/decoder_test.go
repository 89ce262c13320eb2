package http

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func newTestDecoder(input string, opts DecodeOptions) *MessageDecoder {
	md := newMessageDecoder(strings.NewReader(input), opts)
	return &md
}

func TestReadLine(t *testing.T) {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		limit    uint
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "CRLF",
			input:    "Accept: */*\r\n",
			expected: "Accept: */*",
		},
		{
			desc:    "over limit",
			input:   "Accept: */*\r\n",
			limit:   4,
			wantErr: ErrLineTooLong,
		},
		{
			desc:     "limit counts terminator",
			input:    "Host\r\n",
			limit:    6,
			expected: "Host",
		},
		{
			desc:    "sole LF rejected",
			input:   "Host\n",
			wantErr: ErrMissingCRBeforeLF,
		},
		{
			desc:     "sole LF allowed",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "Host\n",
			expected: "Host",
		},
		{
			desc:     "bare CR becomes SP",
			input:    "a\rb\r\n",
			expected: "a b",
		},
		{
			desc:     "lenient whitespace",
			opts:     DecodeOptions{LenientWhitespace: true},
			input:    "\t GET\x0b/\x0cHTTP/1.1 \r\n",
			expected: "GET / HTTP/1.1",
		},
		{
			desc:     "lenient keeps non-ascii bytes",
			opts:     DecodeOptions{LenientWhitespace: true},
			input:    "caf\xe9\r\n",
			expected: "caf\xe9",
		},
		{
			desc:    "no terminator",
			input:   "Host",
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			line, err := newTestDecoder(tc.input, tc.opts).readLine(tc.limit)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(line))
		})
	}
}

func TestDecodeHeaders(t *testing.T) {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected Headers
		wantErr  error
	}{
		{
			desc:     "none",
			input:    "\r\n",
			expected: Headers{},
		},
		{
			desc:  "names kept as sent",
			input: "Content-Type: text/html\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\n\r\n",
			expected: Headers{
				{"Content-Type", "text/html"},
				{"Set-Cookie", "a=1"},
				{"Set-Cookie", "b=2"},
			},
		},
		{
			desc:     "lowercase names",
			opts:     DecodeOptions{LowercaseNames: true},
			input:    "Content-Type: text/html\r\n\r\n",
			expected: Headers{{"content-type", "text/html"}},
		},
		{
			desc:     "obs-fold joined",
			opts:     DecodeOptions{AllowObsFold: true},
			input:    "X-Long: first\r\n  second\r\n\tthird\r\nHost: a\r\n\r\n",
			expected: Headers{{"X-Long", "first second third"}, {"Host", "a"}},
		},
		{
			desc:    "obs-fold rejected",
			input:   "X-Long: first\r\n second\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "obs-fold without field",
			opts:    DecodeOptions{AllowObsFold: true},
			input:   " second\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "space before colon",
			input:   "Host : a\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "no colon",
			input:   "Host\r\n\r\n",
			wantErr: ErrMalformedFieldLine,
		},
		{
			desc:    "line too long",
			opts:    DecodeOptions{MaxFieldLineLength: 8},
			input:   "Host: example.com\r\n\r\n",
			wantErr: ErrLineTooLong,
		},
		{
			desc:    "too many fields",
			opts:    DecodeOptions{MaxFields: 1},
			input:   "A: 1\r\nB: 2\r\n\r\n",
			wantErr: ErrTooManyFields,
		},
		{
			desc:    "missing empty line",
			input:   "Host: a\r\n",
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			var headers Headers
			err := newTestDecoder(tc.input, tc.opts).decodeHeaders(&headers)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, headers)
		})
	}
}

type RequestDecoderTestSuite struct {
	suite.Suite
}

func TestRequestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(RequestDecoderTestSuite))
}

func (s *RequestDecoderTestSuite) TestPipelined() {
	input := "" +
		"\r\n" +
		"POST /login HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		"user=me" +
		"GET /home HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"\r\n"

	dec := NewRequestDecoder(strings.NewReader(input), DecodeOptions{})

	var first Request
	s.Require().NoError(dec.Decode(&first))
	s.Equal(RequestLine{Method: "POST", Target: "/login", Version: Version{1, 1}}, first.RequestLine)
	s.Equal(Headers{{"Host", "example.com"}, {"Content-Length", "7"}}, first.Headers)
	s.Equal("user=me", string(first.Body))

	var second Request
	s.Require().NoError(dec.Decode(&second))
	s.Equal("/home", second.Target)
	s.Nil(second.Body)

	s.ErrorIs(dec.Decode(&second), io.ErrUnexpectedEOF)
}

func (s *RequestDecoderTestSuite) TestChunkedBody() {
	input := "" +
		"POST /upload HTTP/1.1\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n" +
		"GET / HTTP/1.1\r\n\r\n"

	dec := NewRequestDecoder(strings.NewReader(input), DecodeOptions{})

	var req Request
	s.Require().NoError(dec.Decode(&req))
	s.Equal("abcde", string(req.Body))

	s.Require().NoError(dec.Decode(&req))
	s.Equal(MethodGet, req.Method)
}

func (s *RequestDecoderTestSuite) TestShortBody() {
	input := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nshort"

	var req Request
	err := NewRequestDecoder(strings.NewReader(input), DecodeOptions{}).Decode(&req)
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *RequestDecoderTestSuite) TestRequestLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected RequestLine
		wantErr  error
	}{
		{
			desc:     "origin form",
			input:    "GET /a?b=c HTTP/1.1\r\n\r\n",
			expected: RequestLine{Method: "GET", Target: "/a?b=c", Version: Version{1, 1}},
		},
		{
			desc:     "absolute form",
			input:    "GET http://example.com/ HTTP/1.0\r\n\r\n",
			expected: RequestLine{Method: "GET", Target: "http://example.com/", Version: Version{1, 0}},
		},
		{
			desc:    "two parts",
			input:   "GET /\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "four parts",
			input:   "GET / HTTP/1.1 x\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "double space",
			input:   "GET  / HTTP/1.1\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "method not a token",
			input:   "G(T / HTTP/1.1\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "bad version",
			input:   "GET / HTTP/one\r\n\r\n",
			wantErr: ErrMalformedRequestLine,
		},
		{
			desc:    "too long",
			opts:    DecodeOptions{MaxStartLineLength: 10},
			input:   "GET /a/long/path HTTP/1.1\r\n\r\n",
			wantErr: ErrLineTooLong,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var req Request
			err := NewRequestDecoder(strings.NewReader(tc.input), tc.opts).Decode(&req)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, req.RequestLine)
		})
	}
}

type ResponseDecoderTestSuite struct {
	suite.Suite
}

func TestResponseDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseDecoderTestSuite))
}

func (s *ResponseDecoderTestSuite) TestLeavesBody() {
	br := bufio.NewReader(strings.NewReader("HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nbody"))
	dec := NewResponseDecoder(br, DecodeOptions{})

	var resp Response
	s.Require().NoError(dec.Decode(&resp))
	s.Equal(StatusLine{Version: Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK"}, resp.StatusLine)
	s.Equal(Headers{{"Content-Length", "4"}}, resp.Headers)
	s.Same(br, dec.Rest())

	body, err := io.ReadAll(dec.Rest())
	s.Require().NoError(err)
	s.Equal("body", string(body))
}

func (s *ResponseDecoderTestSuite) TestStatusLine() {
	testcases := []struct {
		desc     string
		opts     DecodeOptions
		input    string
		expected StatusLine
		wantErr  error
	}{
		{
			desc:     "reason with spaces",
			input:    "HTTP/1.1 404 Not Found Here\r\n\r\n",
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 404, ReasonPhrase: "Not Found Here"},
		},
		{
			desc:     "empty reason",
			input:    "HTTP/1.0 204 \r\n\r\n",
			expected: StatusLine{Version: Version{1, 0}, StatusCode: 204},
		},
		{
			desc:     "no reason",
			input:    "HTTP/1.1 302\r\n\r\n",
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 302},
		},
		{
			desc:     "leading empty lines",
			opts:     DecodeOptions{AllowSoleLF: true},
			input:    "\n\r\nHTTP/1.1 200 OK\n\n",
			expected: StatusLine{Version: Version{1, 1}, StatusCode: 200, ReasonPhrase: "OK"},
		},
		{
			desc:    "version only",
			input:   "HTTP/1.1\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "two digit code",
			input:   "HTTP/1.1 20 OK\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "code not a number",
			input:   "HTTP/1.1 2OO OK\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "not http",
			input:   "ICY 200 OK\r\n\r\n",
			wantErr: ErrMalformedStatusLine,
		},
		{
			desc:    "too long",
			opts:    DecodeOptions{MaxStartLineLength: 10},
			input:   "HTTP/1.1 200 OK\r\n\r\n",
			wantErr: ErrLineTooLong,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var resp Response
			err := NewResponseDecoder(strings.NewReader(tc.input), tc.opts).Decode(&resp)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, resp.StatusLine)
		})
	}
}
