package textcodec

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
)

// Decode decodes a MIME part body according to its content-transfer-encoding.
// Decoding is best-effort: malformed input degrades to the raw string instead
// of failing the pipeline, and an unknown or absent encoding returns the input
// unchanged.
func Decode(content, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return decodeBase64(content)
	case "quoted-printable":
		return decodeQuotedPrintable(content)
	default:
		return content
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func decodeBase64(content string) string {
	compact := whitespaceRe.ReplaceAllString(content, "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return content
	}
	return string(decoded)
}

var qpEscapeRe = regexp.MustCompile(`=([0-9A-Fa-f]{2})`)

func decodeQuotedPrintable(content string) string {
	// Soft line breaks: "=" immediately followed by a line terminator.
	content = strings.ReplaceAll(content, "=\r\n", "")
	content = strings.ReplaceAll(content, "=\n", "")

	// A dangling "=" at the end of input is a truncated escape. Trimmed
	// before escape replacement so a decoded "=" (from "=3D") survives.
	content = strings.TrimSuffix(content, "=")

	return qpEscapeRe.ReplaceAllStringFunc(content, func(esc string) string {
		n, err := strconv.ParseUint(esc[1:], 16, 8)
		if err != nil {
			return esc
		}
		return string([]byte{byte(n)})
	})
}

var (
	blockTagRe    = regexp.MustCompile(`(?i)</?(?:br|div|p|h[1-6]|table|tr|td|th|ul|ol|li)\b[^>]*/?>`)
	anyTagRe      = regexp.MustCompile(`<[^>]*>`)
	decimalRefRe  = regexp.MustCompile(`&#([0-9]{1,7});`)
	hexRefRe      = regexp.MustCompile(`&#[xX]([0-9A-Fa-f]{1,6});`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
	horizontalWs  = regexp.MustCompile(`[ \t]{2,}`)
	spacedNewline = regexp.MustCompile(`[ \t]+\n`)
)

// StripHTML converts HTML markup to readable plain text. It is a heuristic
// converter, not a full HTML parser, and never fails on malformed markup.
func StripHTML(html string) string {
	text := blockTagRe.ReplaceAllString(html, "\n")
	text = anyTagRe.ReplaceAllString(text, "")

	text = decimalRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.ParseInt(decimalRefRe.FindStringSubmatch(ref)[1], 10, 32)
		if err != nil {
			return ref
		}
		return string(rune(n))
	})
	text = hexRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.ParseInt(hexRefRe.FindStringSubmatch(ref)[1], 16, 32)
		if err != nil {
			return ref
		}
		return string(rune(n))
	})

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	text = replacer.Replace(text)

	text = horizontalWs.ReplaceAllString(text, " ")
	text = spacedNewline.ReplaceAllString(text, "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
