package reader

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathSegmentEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "1234", want: "1234"},
		{name: "slashes", in: "feed/http://a.example/rss", want: "feed%2Fhttp:%2F%2Fa.example%2Frss"},
		{name: "sub-delimiters kept", in: "a;b,c!d*e(f)g'h", want: "a;b,c!d*e(f)g'h"},
		{name: "space", in: "my label", want: "my%20label"},
		{name: "query and fragment", in: "a?b#c%d", want: "a%3Fb%23c%25d"},
		{name: "utf-8", in: "café", want: "caf%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PathSegmentEscape(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := url.PathUnescape(got)
			assert.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestPathSegmentEscapeSurvivesRequestURL(t *testing.T) {
	c := NewClient(Inoreader, ProviderConfig{})
	req, err := c.newHTTPRequest(t.Context(), &Request{
		URL: "https://example.com/stream/contents/" + PathSegmentEscape("user/-/label/a(b),c"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "/stream/contents/user%2F-%2Flabel%2Fa(b),c", req.URL.EscapedPath())
}
