package gmail

import (
	"encoding/base64"
	"errors"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// fromAPIMessage normalizes a message fetched with format=full.
func fromAPIMessage(m *gmail.Message, loc *time.Location) *Message {
	out := &Message{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		LabelIDs:     append([]string(nil), m.LabelIds...),
		Snippet:      m.Snippet,
		SizeEstimate: m.SizeEstimate,
		Headers:      map[string]string{},
	}

	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			name := textproto.CanonicalMIMEHeaderKey(h.Name)
			if _, ok := out.Headers[name]; !ok {
				out.Headers[name] = h.Value
			}
		}
	}

	out.Subject = out.Header("Subject")
	if from := ParseAddressList(out.Header("From")); len(from) > 0 {
		out.From = from[0]
	}
	out.To = ParseAddressList(out.Header("To"))
	out.Cc = ParseAddressList(out.Header("Cc"))
	out.Bcc = ParseAddressList(out.Header("Bcc"))
	out.ReplyTo = ParseAddressList(out.Header("Reply-To"))
	out.MessageIDHeader = out.Header("Message-Id")
	out.References = out.Header("References")
	out.Date = messageDate(out.Header("Date"), m.InternalDate, loc)

	walkParts(m.Payload, func(part *gmail.MessagePart) {
		if part.Body == nil {
			return
		}
		if part.Filename != "" && part.Body.AttachmentId != "" {
			out.Attachments = append(out.Attachments, Attachment{
				ID:        part.Body.AttachmentId,
				MessageID: m.Id,
				PartID:    part.PartId,
				Filename:  part.Filename,
				MimeType:  part.MimeType,
				Size:      part.Body.Size,
			})
			return
		}
		if part.Body.Data == "" || part.Filename != "" {
			return
		}
		switch {
		case out.BodyText == "" && strings.HasPrefix(part.MimeType, "text/plain"):
			if data, err := decodeData(part.Body.Data); err == nil {
				out.BodyText = string(data)
			}
		case out.BodyHTML == "" && strings.HasPrefix(part.MimeType, "text/html"):
			if data, err := decodeData(part.Body.Data); err == nil {
				out.BodyHTML = string(data)
			}
		}
	})
	return out
}

func fromAPIThread(t *gmail.Thread, loc *time.Location) *Thread {
	out := &Thread{ID: t.Id, Snippet: t.Snippet}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, fromAPIMessage(m, loc))
	}
	sortChronological(out.Messages)
	return out
}

func fromAPILabel(l *gmail.Label) *Label {
	return &Label{
		ID:             l.Id,
		Name:           l.Name,
		Type:           l.Type,
		MessagesTotal:  l.MessagesTotal,
		MessagesUnread: l.MessagesUnread,
		ThreadsTotal:   l.ThreadsTotal,
		ThreadsUnread:  l.ThreadsUnread,
	}
}

// messageDate prefers the Date header and falls back to the provider's
// internal receive time in milliseconds.
func messageDate(header string, internalMillis int64, loc *time.Location) time.Time {
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t.In(loc)
		}
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis).In(loc)
	}
	return time.Time{}
}

// walkParts visits part and all of its descendants depth first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeData decodes the provider's base64url payloads. Some responses omit
// padding or use the standard alphabet.
func decodeData(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("failed to decode message data")
}
