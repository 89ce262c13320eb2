package status

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "Found", Text(Found))
	assert.Equal(t, "Too Many Requests", Text(429))
	assert.Empty(t, Text(299))
}

func TestClasses(t *testing.T) {
	testcases := []struct {
		code         uint
		redirection  bool
		keepsMethod  bool
		hasNoContent bool
	}{
		{code: 100, hasNoContent: true},
		{code: 200},
		{code: 204, hasNoContent: true},
		{code: 301, redirection: true},
		{code: 302, redirection: true},
		{code: 303, redirection: true},
		{code: 304, redirection: true, hasNoContent: true},
		{code: 307, redirection: true, keepsMethod: true},
		{code: 308, redirection: true, keepsMethod: true},
		{code: 404},
	}

	for _, tc := range testcases {
		t.Run(strconv.FormatUint(uint64(tc.code), 10), func(t *testing.T) {
			assert.Equal(t, tc.redirection, IsRedirection(tc.code))
			assert.Equal(t, tc.keepsMethod, KeepsMethod(tc.code))
			assert.Equal(t, tc.hasNoContent, HasNoContent(tc.code))
		})
	}

	assert.True(t, IsSuccessful(OK))
	assert.True(t, IsClientError(NotFound))
	assert.True(t, IsServerError(BadGateway))
}
