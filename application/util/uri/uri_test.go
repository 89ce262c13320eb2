package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type URLTestSuite struct {
	suite.Suite
}

func TestURLTestSuite(t *testing.T) {
	suite.Run(t, new(URLTestSuite))
}

func (s *URLTestSuite) TestParse() {
	testcases := []struct {
		desc     string
		input    string
		expected URL
	}{
		{
			desc:     "domain only",
			input:    "example.com",
			expected: URL{Scheme: "https", Domain: "example.com", Path: Path{}},
		},
		{
			desc:     "full url",
			input:    "http://www.Example.com:8080/a/b?x=1&y=2#frag",
			expected: URL{Scheme: "http", Domain: "www.example.com", Port: "8080", Path: Path{"a", "b"}, Query: "x=1&y=2", Fragment: "frag"},
		},
		{
			desc:     "query without path",
			input:    "https://example.com?q=1",
			expected: URL{Scheme: "https", Domain: "example.com", Path: Path{}, Query: "q=1"},
		},
		{
			desc:     "ip address",
			input:    "http://127.0.0.1:8000/",
			expected: URL{Scheme: "http", Domain: "127.0.0.1", Port: "8000", Path: Path{}},
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			got, err := Parse(tc.input)
			s.Require().NoError(err)
			s.Equal(tc.expected, got)
		})
	}
}

func (s *URLTestSuite) TestParseInvalid() {
	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "empty", input: ""},
		{desc: "single label", input: "https://localhost/"},
		{desc: "empty label", input: "https://example..com/"},
		{desc: "bad port", input: "https://example.com:http/"},
		{desc: "port out of range", input: "https://example.com:70000/"},
		{desc: "whitespace", input: "https://exa mple.com/"},
		{desc: "bad path", input: "https://example.com/<a>"},
		{desc: "bad scheme", input: "1http://example.com/"},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			_, err := Parse(tc.input)
			s.ErrorIs(err, ErrInvalidURL)
		})
	}
}

func (s *URLTestSuite) TestEqualIgnoresSchemeAndFragment() {
	u1 := MustParse("http://example.com/a#one")
	u2 := MustParse("https://example.com/a#two")
	u3 := MustParse("https://example.com:8443/a")

	s.True(u1.Equal(u2))
	s.Equal(u1.Key(), u2.Key())
	s.False(u1.Equal(u3))
}

func (s *URLTestSuite) TestString() {
	testcases := []struct {
		input  string
		str    string
		href   string
		target string
	}{
		{
			input:  "example.com",
			str:    "https://example.com/",
			href:   "https://example.com/",
			target: "/",
		},
		{
			input:  "http://example.com:81/a/b/?q=1#x",
			str:    "http://example.com:81/a/b/",
			href:   "http://example.com:81/a/b/?q=1",
			target: "/a/b/?q=1",
		},
		{
			input:  "https://example.com/index.html",
			str:    "https://example.com/index.html",
			href:   "https://example.com/index.html",
			target: "/index.html",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.input, func() {
			u := MustParse(tc.input)
			s.Equal(tc.str, u.String())
			s.Equal(tc.href, u.Href())
			s.Equal(tc.target, u.RequestTarget())
		})
	}
}

func (s *URLTestSuite) TestOrigin() {
	s.Equal("https://example.com/", MustParse("https://example.com/a/b").Origin())
	s.Equal("http://example.com:81/", MustParse("http://example.com:81/a").Origin())

	s.True(MustParse("http://example.com/a").SameOrigin(MustParse("https://example.com/b")))
	s.False(MustParse("https://example.com/a").SameOrigin(MustParse("https://other.com/a")))
}

func TestResolve(t *testing.T) {
	base, err := Parse("http://a.com/b/c/d;p?q")
	require.NoError(t, err)

	testcases := []struct {
		input  string
		output string
	}{
		{input: "g", output: "http://a.com/b/c/g"},
		{input: "./g", output: "http://a.com/b/c/g"},
		{input: "g/", output: "http://a.com/b/c/g/"},
		{input: "/g", output: "http://a.com/g"},
		{input: "//g.org", output: "http://g.org/"},
		{input: "?y", output: "http://a.com/b/c/d;p?y"},
		{input: "g?y", output: "http://a.com/b/c/g?y"},
		{input: ";x", output: "http://a.com/b/c/;x"},
		{input: "", output: "http://a.com/b/c/d;p?q"},
		{input: ".", output: "http://a.com/b/c/"},
		{input: "..", output: "http://a.com/b/"},
		{input: "../g", output: "http://a.com/b/g"},
		{input: "../../../g", output: "http://a.com/g"},
		{input: "https://other.org/x", output: "https://other.org/x"},
	}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := Resolve(base, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.output, got.Href())
		})
	}
}
