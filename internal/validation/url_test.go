package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointValidator(t *testing.T) {
	v := NewEndpointValidator()

	tests := []struct {
		name     string
		input    string
		expected string
		errorMsg string
	}{
		{name: "https kept", input: "https://www.inoreader.com/reader/api/0", expected: "https://www.inoreader.com/reader/api/0"},
		{name: "trailing slash trimmed", input: " https://newsblur.com/ ", expected: "https://newsblur.com"},
		{name: "empty", input: "", errorMsg: "cannot be empty"},
		{name: "plain http", input: "http://theoldreader.com/reader/api/0", errorMsg: "must use https"},
		{name: "other scheme", input: "ftp://example.org", errorMsg: "must use http or https"},
		{name: "credentials", input: "https://user:pw@cloud.feedly.com/v3", errorMsg: "credentials"},
		{name: "query", input: "https://cloud.feedly.com/v3?x=1", errorMsg: "query"},
		{name: "localhost", input: "https://localhost:8080", errorMsg: "localhost"},
		{name: "loopback ip", input: "https://127.0.0.1", errorMsg: "localhost"},
		{name: "no host", input: "https:///path", errorMsg: "no host"},
		{name: "quotes", input: "https://a.example/\"x", errorMsg: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPermissiveEndpointValidator(t *testing.T) {
	got, err := NewPermissiveEndpointValidator().Validate("http://127.0.0.1:43121/reader/api/0/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:43121/reader/api/0", got)
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, IsWebURL("https://a.example/post/1"))
	assert.True(t, IsWebURL("http://a.example"))
	assert.False(t, IsWebURL("tag:a.example,2024:1"))
	assert.False(t, IsWebURL("ftp://a.example/file"))
	assert.False(t, IsWebURL("/relative/path"))
	assert.False(t, IsWebURL(""))
}

func TestHasSchemeAndHost(t *testing.T) {
	assert.True(t, HasSchemeAndHost("https://a.example/1"))
	assert.True(t, HasSchemeAndHost("ftp://a.example/1"))
	assert.False(t, HasSchemeAndHost("tag:a.example,2024:1"))
	assert.False(t, HasSchemeAndHost("a.example/1"))
	assert.False(t, HasSchemeAndHost("%zz"))
}
