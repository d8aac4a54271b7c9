package mimeparse

import (
	"regexp"
	"strings"

	"mailroom-backend/pkg/textcodec"
)

// Attachment is a decoded attachment part of a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParsedEmail is the result of parsing a raw RFC-822 style message.
type ParsedEmail struct {
	Headers        map[string]string
	Body           string
	HTMLBody       string
	Attachments    []Attachment
	HasAttachments bool
	References     []string
	InReplyTo      string
	FromName       string
	FromAddress    string
}

// Empty returns a well-formed but contentless ParsedEmail. It is the
// degradation target when fetching or parsing a record fails: downstream
// logic treats it as a normal message instead of crashing the batch.
func Empty() *ParsedEmail {
	return &ParsedEmail{Headers: map[string]string{}}
}

// ParseOrEmpty parses raw and degrades to Empty on any failure.
func ParseOrEmpty(raw string) *ParsedEmail {
	parsed, err := Parse(raw)
	if err != nil || parsed == nil {
		return Empty()
	}
	return parsed
}

var (
	fromRe     = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<([^>]+)>\s*$`)
	boundaryRe = regexp.MustCompile(`(?i)boundary\s*=\s*(?:"([^"]+)"|([^\s;]+))`)
	filenameRe = regexp.MustCompile(`(?i)filename\s*=\s*(?:"([^"]+)"|([^\s;]+))`)
	tagLikeRe  = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
)

// Parse splits a raw message into headers, plain body, HTML body and
// attachments. It is intentionally lenient: folded headers are joined,
// repeated headers are last-write-wins, and a message with no blank-line
// separator is treated as all headers with an empty body.
func Parse(raw string) (*ParsedEmail, error) {
	headerBlock, bodyBlock := splitHeaderBody(raw)

	parsed := Empty()
	parsed.Headers = parseHeaders(headerBlock)

	parsed.FromName, parsed.FromAddress = parseFrom(parsed.Headers["from"])
	if refs := strings.TrimSpace(parsed.Headers["references"]); refs != "" {
		parsed.References = strings.Fields(refs)
	}
	parsed.InReplyTo = strings.TrimSpace(parsed.Headers["in-reply-to"])

	boundary := extractBoundary(parsed.Headers["content-type"])
	if boundary != "" {
		parseMultipart(parsed, bodyBlock, boundary)
	} else {
		parseSinglePart(parsed, bodyBlock)
	}

	// Some senders ship an HTML-only message whose plain rendition is empty
	// or a stub; regenerate it from the HTML body in that case.
	if parsed.HTMLBody != "" && looksEmpty(parsed.Body) {
		parsed.Body = textcodec.StripHTML(parsed.HTMLBody)
	}

	parsed.Body = strings.TrimSpace(parsed.Body)
	parsed.HasAttachments = len(parsed.Attachments) > 0
	return parsed, nil
}

func splitHeaderBody(raw string) (string, string) {
	if idx := strings.Index(raw, "\r\n\r\n"); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := strings.Index(raw, "\n\n"); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}
	return raw, ""
}

// headerAccumulator folds header lines into a map, tracking the header a
// whitespace-led continuation line belongs to.
type headerAccumulator struct {
	headers map[string]string
	current string
}

func (a *headerAccumulator) feed(line string) {
	if line == "" {
		return
	}
	if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && a.current != "" {
		a.headers[a.current] += " " + strings.TrimSpace(line)
		return
	}
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	a.headers[key] = strings.TrimSpace(line[idx+1:])
	a.current = key
}

func parseHeaders(block string) map[string]string {
	acc := headerAccumulator{headers: map[string]string{}}
	for _, line := range strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n") {
		acc.feed(line)
	}
	return acc.headers
}

// parseFrom splits a "Name <address>" header; both values fall back to the
// raw header when the pattern does not match.
func parseFrom(from string) (name, address string) {
	if m := fromRe.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return from, from
}

func extractBoundary(contentType string) string {
	m := boundaryRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func extractFilename(disposition string) string {
	m := filenameRe.FindStringSubmatch(disposition)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func parseMultipart(parsed *ParsedEmail, body, boundary string) {
	segments := strings.Split(body, "--"+boundary)
	for _, segment := range segments {
		segment = strings.TrimLeft(segment, "\r\n")
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" || trimmed == "--" {
			continue
		}

		partHeaderBlock, partBody := splitHeaderBody(segment)
		partHeaders := parseHeaders(partHeaderBlock)

		disposition := partHeaders["content-disposition"]
		contentType := strings.ToLower(partHeaders["content-type"])
		encoding := partHeaders["content-transfer-encoding"]

		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment") {
			filename := extractFilename(disposition)
			if filename == "" {
				filename = extractFilename(partHeaders["content-type"])
			}
			if filename != "" {
				parsed.Attachments = append(parsed.Attachments, Attachment{
					Filename:    filename,
					ContentType: mediaType(partHeaders["content-type"]),
					Data:        []byte(textcodec.Decode(partBody, encoding)),
				})
				continue
			}
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			decoded := strings.TrimSpace(textcodec.Decode(partBody, encoding))
			if decoded == "" {
				continue
			}
			if parsed.Body != "" {
				parsed.Body += "\n\n"
			}
			parsed.Body += decoded
		case strings.HasPrefix(contentType, "text/html"):
			// Last HTML part wins when a message carries several.
			parsed.HTMLBody = strings.TrimSpace(textcodec.Decode(partBody, encoding))
		}
	}
}

func parseSinglePart(parsed *ParsedEmail, body string) {
	encoding := parsed.Headers["content-transfer-encoding"]
	contentType := strings.ToLower(parsed.Headers["content-type"])
	decoded := textcodec.Decode(body, encoding)

	if strings.HasPrefix(contentType, "text/html") {
		parsed.HTMLBody = strings.TrimSpace(decoded)
		parsed.Body = textcodec.StripHTML(decoded)
		return
	}

	// Mislabeled single-part HTML: the declared type says plain text but the
	// payload is markup.
	if tagLikeRe.MatchString(decoded) {
		parsed.HTMLBody = strings.TrimSpace(decoded)
		parsed.Body = textcodec.StripHTML(decoded)
		return
	}
	parsed.Body = decoded
}

func mediaType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}

// looksEmpty reports whether a plain body is missing or too short to be the
// real message text (fewer than 2 lines of content).
func looksEmpty(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return true
	}
	return len(strings.Split(trimmed, "\n")) < 2
}
