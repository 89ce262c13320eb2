package http

import (
	"bytes"
	"testing"
	"time"

	"http-conversation/application/http/content"
	"http-conversation/application/http/cookie"
	"http-conversation/application/http/transfer"
	"http-conversation/application/util/uri"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ParseResponseTestSuite struct {
	suite.Suite

	target uri.URL
	opts   ParseOptions
}

func TestParseResponseTestSuite(t *testing.T) {
	suite.Run(t, new(ParseResponseTestSuite))
}

func (s *ParseResponseTestSuite) SetupTest() {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC))

	s.target = uri.MustParse("https://example.com/a")
	s.opts = DefaultParseOptions
	s.opts.Clock = mock
}

func (s *ParseResponseTestSuite) parse(raw string) *Response {
	resp, err := ParseResponse([]byte(raw), s.target, s.opts)
	s.Require().NoError(err)
	return resp
}

func gzipString(s string) string {
	buf := bytes.NewBuffer(nil)
	w := gzip.NewWriter(buf)
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	return buf.String()
}

func (s *ParseResponseTestSuite) TestMalformed() {
	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "empty", input: ""},
		{desc: "no prefix", input: "<html></html>\r\n\r\n"},
		{desc: "no separator", input: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n"},
		{desc: "bad status code", input: "HTTP/1.1 2OO OK\r\n\r\n"},
		{desc: "bad header", input: "HTTP/1.1 200 OK\r\nno colon\r\n\r\n"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			_, err := ParseResponse([]byte(tc.input), s.target, s.opts)
			s.ErrorIs(err, ErrMalformedResponse)
		})
	}
}

func (s *ParseResponseTestSuite) TestStatusAndHeaders() {
	resp := s.parse("" +
		"HTTP/1.1 404 Not Found Here\r\n" +
		"Content-Type:   text/html  \r\n" +
		"X-Custom: a:b\r\n" +
		"Content-Length: 2\r\n" +
		"\r\n" +
		"hi")

	s.Equal(Version{1, 1}, resp.Version)
	s.Equal(uint(404), resp.StatusCode)
	s.Equal("Not Found Here", resp.ReasonPhrase)
	s.Equal(Headers{
		{"content-type", "text/html"},
		{"x-custom", "a:b"},
		{"content-length", "2"},
	}, resp.Headers)
	s.Equal("hi", resp.Body)
	s.Equal(s.target, resp.URL)
}

func (s *ParseResponseTestSuite) TestSetCookieMerge() {
	resp := s.parse("" +
		"HTTP/1.1 302 Found\r\n" +
		"Set-Cookie: sid=deleted; Path=/\r\n" +
		"Set-Cookie: theme=dark\r\n" +
		"Set-Cookie: sid=abc; Path=/\r\n" +
		"Set-Cookie: theme=light\r\n" +
		"Location: /home\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n")

	s.Require().Len(resp.Cookies, 3)
	s.Equal("sid=abc", resp.Cookies[0].String())
	s.Equal("theme=dark", resp.Cookies[1].String())
	s.Equal("theme=light", resp.Cookies[2].String())
	for _, c := range resp.Cookies {
		s.Equal("example.com", c.Domain)
	}

	loc, ok := resp.Location()
	s.True(ok)
	s.Equal("/home", loc)
}

func (s *ParseResponseTestSuite) TestSetCookieMaxAgeUsesClock() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Set-Cookie: a=1; Max-Age=3600\r\n" +
		"\r\n")

	s.Require().Len(resp.Cookies, 1)
	s.Equal("Sun, 10 Mar 2024 13:00:00 GMT", resp.Cookies[0].Attributes[cookie.AttrExpires])
}

func (s *ParseResponseTestSuite) TestInvalidSetCookie() {
	_, err := ParseResponse([]byte(""+
		"HTTP/1.1 200 OK\r\n"+
		"Set-Cookie: no pair here\r\n"+
		"\r\n"), s.target, s.opts)
	s.ErrorIs(err, cookie.ErrInvalidCookie)
}

func (s *ParseResponseTestSuite) TestChunked() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\ntest\r\n0\r\n\r\n")

	s.Equal("test", resp.Body)
	s.True(resp.IsChunked())
}

func (s *ParseResponseTestSuite) TestChunkedTrailers() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\nExpires: never\r\n\r\n")

	s.Equal("hello world", resp.Body)
	s.Equal([]transfer.Field{{Name: "Expires", Value: "never"}}, resp.Trailers)
}

func (s *ParseResponseTestSuite) TestChunkedFallback() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"1f4\r\n<html>\r\n") // cut short

	s.Equal("<html>\r\n", resp.Body)
}

func (s *ParseResponseTestSuite) TestContentLengthTruncates() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"helloHTTP/1.1 200 OK\r\n")

	s.Equal("hello", resp.Body)
}

func (s *ParseResponseTestSuite) TestGzip() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Encoding: gzip\r\n" +
		"\r\n" +
		gzipString("plain text body"))

	s.Equal("plain text body", resp.Body)
}

func (s *ParseResponseTestSuite) TestChunkedGzip() {
	compressed := gzipString("chunked and compressed")

	buf := bytes.NewBuffer(nil)
	cw := transfer.NewChunkedWriter(buf)
	_, err := cw.Write([]byte(compressed[:10]))
	s.Require().NoError(err)
	_, err = cw.Write([]byte(compressed[10:]))
	s.Require().NoError(err)
	s.Require().NoError(cw.Close())

	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"Content-Encoding: gzip\r\n" +
		"\r\n" +
		buf.String())

	s.Equal("chunked and compressed", resp.Body)
}

func (s *ParseResponseTestSuite) TestUnsupportedEncoding() {
	_, err := ParseResponse([]byte(""+
		"HTTP/1.1 200 OK\r\n"+
		"Content-Encoding: compress\r\n"+
		"\r\n"+
		"abc"), s.target, s.opts)
	s.ErrorIs(err, content.ErrUnsupportedEncoding)
}

func (s *ParseResponseTestSuite) TestBytesPreserved() {
	resp := s.parse("" +
		"HTTP/1.1 200 OK\r\n" +
		"\r\n" +
		"caf\xe9")

	s.Equal([]byte{'c', 'a', 'f', 0xe9}, []byte(resp.Body))
}

func TestIsComplete(t *testing.T) {
	testcases := []struct {
		desc     string
		method   string
		raw      string
		expected bool
	}{
		{desc: "headers not finished", raw: "HTTP/1.1 200 OK\r\nContent-Length: 3\r\n", expected: false},
		{desc: "length short", raw: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nab", expected: false},
		{desc: "length met", raw: "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc", expected: true},
		{desc: "zero length", raw: "HTTP/1.1 302 Found\r\nContent-Length: 0\r\n\r\n", expected: true},
		{desc: "no content status", raw: "HTTP/1.1 304 Not Modified\r\nContent-Type: text/html\r\n\r\n", expected: true},
		{desc: "head", method: MethodHead, raw: "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 100\r\n\r\n", expected: true},
		{desc: "redirect no type no length", raw: "HTTP/1.1 302 Found\r\nLocation: /x\r\n\r\n", expected: true},
		{desc: "no type body until close", raw: "HTTP/1.1 200 OK\r\n\r\nhello", expected: false},
		{desc: "no type empty so far", raw: "HTTP/1.1 200 OK\r\nServer: x\r\n\r\n", expected: false},
		{desc: "read until close", raw: "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<html>", expected: false},
		{desc: "chunked partial", raw: "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n4\r\ntest\r\n", expected: false},
		{desc: "chunked done", raw: "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n4\r\ntest\r\n0\r\n\r\n", expected: true},
		{desc: "chunked garbage ended", raw: "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\nxx\r\n0\r\n\r\n", expected: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			method := tc.method
			if method == "" {
				method = MethodGet
			}
			if tc.expected {
				assert.True(t, IsComplete([]byte(tc.raw), method))
			} else {
				assert.False(t, IsComplete([]byte(tc.raw), method))
			}
		})
	}
}
