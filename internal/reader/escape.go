package reader

import "strings"

const upperhex = "0123456789ABCDEF"

// PathSegmentEscape escapes s for use as one URL path segment. Unlike
// url.PathEscape it keeps every RFC 3986 sub-delimiter plus ':' and '@'
// literal, so ids such as "user/-/label/a(b)" keep their parentheses.
func PathSegmentEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if segmentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func segmentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@", c) >= 0
}
