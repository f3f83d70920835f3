package mailbox

import (
	"io"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"mailprofiler/core/domain"
)

const (
	maxPartSize       = 4 << 20
	maxSignatureLines = 12
)

// =============================================================================
// Message parsing
// =============================================================================

// parse turns one RFC 5322 message into a domain message. Unknown charsets
// degrade to the raw bytes instead of failing the message.
func (l *Loader) parse(r io.Reader) (*domain.RawMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, err
	}
	if mr == nil {
		return nil, err
	}

	msg := &domain.RawMessage{
		ID:      uuid.NewString(),
		Headers: collectHeaders(mr),
	}

	msg.From = mr.Header.Get("From")
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.FromName = strings.TrimSpace(addrs[0].Name)
		msg.FromAddress = strings.ToLower(strings.TrimSpace(addrs[0].Address))
	}
	if addrs, err := mr.Header.AddressList("To"); err == nil {
		for _, a := range addrs {
			msg.To = append(msg.To, strings.ToLower(strings.TrimSpace(a.Address)))
		}
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.ReceivedAt = date
	}

	msg.Body = readBody(mr)
	msg.Signature, msg.Words = splitSignature(msg.Body)
	return msg, nil
}

// collectHeaders flattens the header block into a canonically keyed map.
// Repeated Received fields are joined with newlines so the transport trail
// survives; for any other repeated field the first value wins.
func collectHeaders(mr *mail.Reader) map[string]string {
	headers := make(map[string]string)
	fields := mr.Header.Fields()
	for fields.Next() {
		key := textproto.CanonicalMIMEHeaderKey(fields.Key())
		value := strings.TrimSpace(fields.Value())
		if prev, ok := headers[key]; ok {
			if key == "Received" {
				headers[key] = prev + "\n" + value
			}
			continue
		}
		headers[key] = value
	}
	return headers
}

// readBody returns the first text/plain part, falling back to a stripped
// text/html part for HTML-only messages. Attachments are never read.
func readBody(mr *mail.Reader) string {
	var plain, htmlBody string
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		ctype, _, err := h.ContentType()
		if err != nil || ctype == "" {
			ctype = "text/plain"
		}
		switch ctype {
		case "text/plain":
			if plain == "" {
				plain = readPart(p.Body)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = readPart(p.Body)
			}
		}
		if plain != "" {
			break
		}
	}

	if plain != "" {
		return normalizeBody(plain)
	}
	return normalizeBody(stripHTML(htmlBody))
}

// readPart drains a part, keeping whatever decoded before any error so a
// truncated transfer encoding still contributes text.
func readPart(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxPartSize))
	return string(b)
}

func normalizeBody(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// =============================================================================
// Signature split
// =============================================================================

// signatureMarkers are closing lines, compared after lowercasing and
// stripping trailing punctuation.
var signatureMarkers = map[string]bool{
	"best regards": true,
	"regards":      true,
	"sincerely":    true,
	"thanks":       true,
	"thank you":    true,
	"cheers":       true,
	"br":           true,
}

// splitSignature finds the trailing signature block and returns it together
// with the word count of the body above it. A marker only counts when the
// block it opens fits in maxSignatureLines, so a "thanks" deep inside a long
// body does not swallow the rest of the message.
func splitSignature(body string) (string, int) {
	if body == "" {
		return "", 0
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !isSignatureMarker(line) {
			continue
		}
		if len(lines)-i > maxSignatureLines {
			continue
		}
		sig := strings.TrimSpace(strings.Join(lines[i:], "\n"))
		words := len(strings.Fields(strings.Join(lines[:i], "\n")))
		return sig, words
	}
	return "", len(strings.Fields(body))
}

func isSignatureMarker(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	if l == "--" {
		return true
	}
	l = strings.TrimRight(l, " \t,.!:;")
	return signatureMarkers[l]
}

// =============================================================================
// HTML fallback
// =============================================================================

// blockTags force a line break when their tag closes, keeping paragraph
// structure visible in the stripped text.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// stripHTML reduces an HTML part to its visible text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	tz := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	hidden := 0
	for {
		tt := tz.Next()
		switch tt {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					hidden++
				} else if hidden > 0 {
					hidden--
				}
			case blockTags[tag]:
				b.WriteByte('\n')
			}
		case html.TextToken:
			if hidden == 0 {
				b.Write(tz.Text())
			}
		}
	}
}

// collapseLines trims every line and squeezes blank-line runs to one.
func collapseLines(s string) string {
	var out []string
	blank := true
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
