package textcodec

import (
	"bytes"
	"encoding/base64"
	"mime/quotedprintable"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// Property: base64 input with interspersed whitespace decodes to the same
// result as the compact string, for arbitrary payloads.
func TestDecodeBase64Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("whitespace-riddled base64 decodes to the original bytes", prop.ForAll(
		func(data []byte) bool {
			encoded := base64.StdEncoding.EncodeToString(data)
			var spaced strings.Builder
			for i, r := range encoded {
				if i > 0 && i%4 == 0 {
					spaced.WriteString("\r\n ")
				}
				spaced.WriteRune(r)
			}
			return Decode(spaced.String(), "base64") == string(data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// Property: encoding through the standard quoted-printable writer and
// decoding back is identity-preserving.
func TestDecodeQuotedPrintableRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("encode then decode is identity", prop.ForAll(
		func(data []byte) bool {
			var buf bytes.Buffer
			w := quotedprintable.NewWriter(&buf)
			w.Binary = true
			if _, err := w.Write(data); err != nil {
				return false
			}
			if err := w.Close(); err != nil {
				return false
			}
			return Decode(buf.String(), "quoted-printable") == string(data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		encoding string
		want     string
	}{
		{"plain base64", "aGVsbG8=", "base64", "hello"},
		{"base64 with embedded newlines", "aGVs\nbG8=", "base64", "hello"},
		{"invalid base64 falls back to input", "!!!not base64!!!", "base64", "!!!not base64!!!"},
		{"qp hex escape", "a=3Db", "quoted-printable", "a=b"},
		{"qp soft line break crlf", "foo=\r\nbar", "quoted-printable", "foobar"},
		{"qp soft line break lf", "foo=\nbar", "quoted-printable", "foobar"},
		{"qp dangling equals", "trailing=", "quoted-printable", "trailing"},
		{"unknown encoding is identity", "unchanged", "x-unknown", "unchanged"},
		{"empty encoding is identity", "unchanged", "", "unchanged"},
		{"encoding is case-insensitive", "aGVsbG8=", "BASE64", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.content, tt.encoding))
		})
	}
}

func TestStripHTML(t *testing.T) {
	t.Run("paragraphs become separated lines", func(t *testing.T) {
		got := StripHTML("<p>A</p><p>B</p>")
		assert.Equal(t, "A\n\nB", got)
		assert.NotContains(t, got, "<")
		assert.NotContains(t, got, ">")
	})

	t.Run("named entities decode", func(t *testing.T) {
		assert.Equal(t, `x < y & "z"`, StripHTML("x &lt; y &amp; &quot;z&quot;"))
	})

	t.Run("numeric and hex references decode", func(t *testing.T) {
		assert.Equal(t, "AB", StripHTML("&#65;&#x42;"))
	})

	t.Run("runs of newlines collapse to two", func(t *testing.T) {
		assert.Equal(t, "A\n\nB", StripHTML("A<br><br><br><br>B"))
	})

	t.Run("horizontal whitespace collapses", func(t *testing.T) {
		assert.Equal(t, "a b", StripHTML("a   \t  b"))
	})

	t.Run("malformed markup never panics", func(t *testing.T) {
		assert.NotPanics(t, func() {
			StripHTML("<div<span>broken<<>>markup</span")
		})
	})

	t.Run("table rows break lines", func(t *testing.T) {
		got := StripHTML("<table><tr><td>a</td></tr><tr><td>b</td></tr></table>")
		assert.Contains(t, got, "a")
		assert.Contains(t, got, "b")
		assert.NotContains(t, got, "<")
	})
}
