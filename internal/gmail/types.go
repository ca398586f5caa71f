package gmail

import (
	"net/mail"
	"strings"
	"time"
)

// System label ids.
const (
	LabelInbox     = "INBOX"
	LabelUnread    = "UNREAD"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelSent      = "SENT"
	LabelDraft     = "DRAFT"
	LabelSpam      = "SPAM"
	LabelTrash     = "TRASH"
)

// Label types.
const (
	LabelTypeSystem = "system"
	LabelTypeUser   = "user"
)

// Address is a parsed mailbox.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// String formats a as an RFC 5322 mailbox.
func (a Address) String() string {
	if a.Email == "" {
		return ""
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// ParseAddress parses a single mailbox such as "Ann <ann@example.com>".
func ParseAddress(s string) (Address, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return Address{}, err
	}
	return Address{Name: addr.Name, Email: addr.Address}, nil
}

// ParseAddressList parses a comma separated header value. Unparseable
// entries are kept verbatim as the email so no recipient is silently lost.
func ParseAddressList(s string) []Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err == nil {
		out := make([]Address, 0, len(list))
		for _, a := range list {
			out = append(out, Address{Name: a.Name, Email: a.Address})
		}
		return out
	}
	var out []Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, err := ParseAddress(part); err == nil {
			out = append(out, a)
			continue
		}
		out = append(out, Address{Email: part})
	}
	return out
}

// Attachment describes one attached file. Data is never loaded eagerly; use
// Service.AttachmentData with ID.
type Attachment struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	PartID    string `json:"partId,omitempty"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
}

// Message is a snapshot of one email.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"threadId"`
	LabelIDs     []string     `json:"labelIds,omitempty"`
	Subject      string       `json:"subject"`
	From         Address      `json:"from"`
	To           []Address    `json:"to,omitempty"`
	Cc           []Address    `json:"cc,omitempty"`
	Bcc          []Address    `json:"bcc,omitempty"`
	ReplyTo      []Address    `json:"replyTo,omitempty"`
	Date         time.Time    `json:"date"`
	Snippet      string       `json:"snippet,omitempty"`
	BodyText     string       `json:"bodyText,omitempty"`
	BodyHTML     string       `json:"bodyHtml,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	SizeEstimate int64        `json:"sizeEstimate"`

	// MessageIDHeader and References are the RFC 5322 threading headers.
	MessageIDHeader string `json:"messageIdHeader,omitempty"`
	References      string `json:"references,omitempty"`

	// Headers holds every header by canonical name, first value wins.
	Headers map[string]string `json:"-"`
}

// Header returns the named header, case-insensitively.
func (m *Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (m *Message) HasLabel(id string) bool {
	for _, l := range m.LabelIDs {
		if l == id {
			return true
		}
	}
	return false
}

func (m *Message) IsUnread() bool    { return m.HasLabel(LabelUnread) }
func (m *Message) IsStarred() bool   { return m.HasLabel(LabelStarred) }
func (m *Message) IsImportant() bool { return m.HasLabel(LabelImportant) }
func (m *Message) InInbox() bool     { return m.HasLabel(LabelInbox) }

func (m *Message) HasAttachments() bool {
	return len(m.Attachments) > 0
}

// Recipients returns To, Cc and Bcc in that order.
func (m *Message) Recipients() []Address {
	out := make([]Address, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Thread groups the messages sharing a thread id, oldest first.
type Thread struct {
	ID       string     `json:"id"`
	Snippet  string     `json:"snippet,omitempty"`
	Messages []*Message `json:"messages"`
}

// UnreadCount returns the number of unread messages.
func (t *Thread) UnreadCount() int {
	n := 0
	for _, m := range t.Messages {
		if m.IsUnread() {
			n++
		}
	}
	return n
}

// Participants returns every sender and recipient once, compared
// case-insensitively by address, in first-seen order.
func (t *Thread) Participants() []Address {
	seen := map[string]bool{}
	var out []Address
	add := func(a Address) {
		key := strings.ToLower(a.Email)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, a)
	}
	for _, m := range t.Messages {
		add(m.From)
		for _, a := range m.Recipients() {
			add(a)
		}
	}
	return out
}

// Latest returns the most recent message, or nil for an empty thread.
func (t *Thread) Latest() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// Subject returns the subject of the first message.
func (t *Thread) Subject() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].Subject
}

// Label is a Gmail label.
type Label struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	MessagesTotal  int64  `json:"messagesTotal"`
	MessagesUnread int64  `json:"messagesUnread"`
	ThreadsTotal   int64  `json:"threadsTotal"`
	ThreadsUnread  int64  `json:"threadsUnread"`
}

func (l *Label) IsSystem() bool {
	return l.Type == LabelTypeSystem
}
