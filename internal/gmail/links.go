package gmail

import (
	"regexp"
	"strings"
)

// UnsubscribeMethod is one entry of a List-Unsubscribe header.
type UnsubscribeMethod struct {
	Type string `json:"type"` // "mailto" or "http"
	URL  string `json:"url"`
}

// UnsubscribeMethods parses the message's List-Unsubscribe header (RFC 2369).
func (m *Message) UnsubscribeMethods() []UnsubscribeMethod {
	return parseListUnsubscribe(m.Header("List-Unsubscribe"))
}

func parseListUnsubscribe(header string) []UnsubscribeMethod {
	var out []UnsubscribeMethod
	for _, part := range strings.Split(header, "<") {
		end := strings.Index(part, ">")
		if end == -1 {
			continue
		}
		u := strings.TrimSpace(part[:end])
		switch {
		case strings.HasPrefix(u, "mailto:"):
			out = append(out, UnsubscribeMethod{Type: "mailto", URL: u})
		case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
			out = append(out, UnsubscribeMethod{Type: "http", URL: u})
		}
	}
	return out
}

// DocLink is a reference to a Drive file found in a message body. DocumentID
// is the Drive item id.
type DocLink struct {
	URL        string `json:"url"`
	DocumentID string `json:"documentId"`
	Type       string `json:"type"` // document, spreadsheet, presentation or drive
}

var docLinkPatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`https?://docs\.google\.com/document/d/([a-zA-Z0-9_-]+)`), "document"},
	{regexp.MustCompile(`https?://docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`), "spreadsheet"},
	{regexp.MustCompile(`https?://docs\.google\.com/presentation/d/([a-zA-Z0-9_-]+)`), "presentation"},
	{regexp.MustCompile(`https?://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`), "drive"},
	{regexp.MustCompile(`https?://drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`), "drive"},
}

// ExtractDocLinks finds Docs and Drive links in text, each document once.
func ExtractDocLinks(text string) []DocLink {
	seen := map[string]bool{}
	var out []DocLink
	for _, p := range docLinkPatterns {
		for _, match := range p.re.FindAllStringSubmatch(text, -1) {
			if seen[match[1]] {
				continue
			}
			seen[match[1]] = true
			out = append(out, DocLink{URL: match[0], DocumentID: match[1], Type: p.kind})
		}
	}
	return out
}

// DocLinks returns the Drive documents linked from the message bodies.
func (m *Message) DocLinks() []DocLink {
	return ExtractDocLinks(m.BodyText + "\n" + m.BodyHTML)
}
