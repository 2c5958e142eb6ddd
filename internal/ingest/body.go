package ingest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"google.golang.org/api/gmail/v1"
)

// ErrNoBody is returned when a message has no readable text or HTML part.
var ErrNoBody = errors.New("message has no text body")

// MessageText returns a message's plain-text body. When no text/plain part
// exists, the first text/html part is converted to text.
func MessageText(msg *gmail.Message) (string, error) {
	if msg == nil || msg.Payload == nil {
		return "", ErrNoBody
	}

	if part := findPart(msg.Payload, "text/plain"); part != nil {
		data, err := decodeBody(part.Body.Data)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(data), nil
	}

	if part := findPart(msg.Payload, "text/html"); part != nil {
		data, err := decodeBody(part.Body.Data)
		if err != nil {
			return "", err
		}
		return htmlToText(strings.NewReader(data)), nil
	}

	return "", ErrNoBody
}

// findPart walks the MIME tree depth-first for a part with mimeType and data.
func findPart(part *gmail.MessagePart, mimeType string) *gmail.MessagePart {
	if part == nil {
		return nil
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return part
	}
	for _, child := range part.Parts {
		if found := findPart(child, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// decodeBody decodes Gmail's base64url body data, padded or not.
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", fmt.Errorf("failed to decode message body: %w", err)
		}
	}
	return string(decoded), nil
}

// htmlToText extracts visible text, one block per line.
func htmlToText(r io.Reader) string {
	z := html.NewTokenizer(r)

	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head", "title":
				skip++
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "td":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head", "title":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
